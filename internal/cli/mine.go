package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eunmann/huimine/internal/config"
	"github.com/eunmann/huimine/internal/logctx"
	"github.com/eunmann/huimine/pkg/export"
	"github.com/eunmann/huimine/pkg/fileutil"
	"github.com/eunmann/huimine/pkg/humanfmt"
	"github.com/eunmann/huimine/pkg/itemnames"
	"github.com/eunmann/huimine/pkg/logging"
	"github.com/eunmann/huimine/pkg/memdiag"
	"github.com/eunmann/huimine/pkg/mining"
	"github.com/eunmann/huimine/pkg/ranking"
	"github.com/eunmann/huimine/pkg/report"
	"github.com/eunmann/huimine/pkg/s3fetch"
	"github.com/eunmann/huimine/pkg/txstore"
	"github.com/google/uuid"
)

func runMine(args []string) error {
	fs := flag.NewFlagSet("mine", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	minUtility := fs.Float64("min-utility", 0, "inclusive utility threshold")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.loadConfig(fs)
	if err != nil {
		return err
	}
	setByFlag := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "min-utility" {
			setByFlag = true
		}
	})
	if setByFlag {
		cfg.Mining.MinUtility = *minUtility
	}

	_, err = execute(cfg, common.memBudget, []float64{cfg.Mining.MinUtility}, false)
	return err
}

func runSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	thresholds := fs.String("thresholds", "", "comma-separated thresholds, e.g. 1000,5000,10000")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.loadConfig(fs)
	if err != nil {
		return err
	}
	if *thresholds != "" {
		vals, err := config.ParseThresholds(*thresholds)
		if err != nil {
			return fmt.Errorf("--thresholds: %w", err)
		}
		cfg.Mining.Thresholds = vals
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if len(cfg.Mining.Thresholds) == 0 {
		return errors.New("--thresholds is required")
	}

	_, err = execute(cfg, common.memBudget, cfg.Mining.Thresholds, true)
	return err
}

// execute loads the input once and mines each threshold in order, writing
// its result files before moving on. With summary set it also writes the
// sweep summary. Uploads happen last so a failed run publishes nothing.
func execute(cfg *config.Config, memBudget string, thresholds []float64, summary bool) (*report.Summary, error) {
	base, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runID := uuid.NewString()
	ctx := logctx.WithStr(base, "run_id", runID)
	log := logctx.FromContext(ctx)

	budget, err := determineMemoryBudget(memBudget, cfg.Memory.Budget)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("budget", humanfmt.Bytes(int64(budget.Total()))).
		Str("budget_source", string(budget.Source())).
		Msg("memory budget")

	tracker := memdiag.NewTracker(memdiag.DefaultConfig())
	tracker.Start()
	defer tracker.Stop()

	outDir := cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := fileutil.CleanupTmpFiles(outDir); err != nil {
		log.Warn().Err(err).Msg("failed to clean stale temp files")
	}

	remote := &lazyS3{}
	tracker.SetPhase("load")
	store, err := txstore.Load(ctx, cfg.Input.Path, remote)
	if err != nil {
		return nil, err
	}
	names, err := loadNames(ctx, cfg.Input.Mapping, remote)
	if err != nil {
		return nil, err
	}

	var db *export.SQLite
	if cfg.Output.SQLite != "" {
		db, err = export.OpenSQLite(cfg.Output.SQLite)
		if err != nil {
			return nil, err
		}
		defer db.Close()
	}

	sum := &report.Summary{
		RunID:   runID,
		Input:   cfg.Input.Path,
		MaxSize: cfg.Mining.MaxSize,
		Started: start,
	}
	var written []string

	for _, minUtility := range thresholds {
		row, paths, err := mineOne(logctx.WithRun(base, runID, minUtility), cfg, store, names, db, mining.Params{
			MinUtility: minUtility,
			MaxSize:    cfg.Mining.MaxSize,
			Workers:    cfg.Mining.Workers,
			Budget:     budget,
			Mem:        tracker,
		}, runID)
		if err != nil {
			return nil, fmt.Errorf("min utility %v: %w", minUtility, err)
		}
		sum.Rows = append(sum.Rows, row)
		written = append(written, paths...)
	}

	var client *s3fetch.Client
	if cfg.Output.Upload != "" {
		client, err = remote.get(ctx)
		if err != nil {
			return nil, fmt.Errorf("create S3 client: %w", err)
		}
		uris, err := client.UploadFiles(ctx, cfg.Output.Upload, written)
		if err != nil {
			return nil, fmt.Errorf("upload results: %w", err)
		}
		sum.Uploaded = uris
	}

	sum.Elapsed = time.Since(start).Milliseconds()
	if summary {
		paths, err := report.WriteSummary(outDir, sum)
		if err != nil {
			return nil, err
		}
		if client != nil {
			uris, err := client.UploadFiles(ctx, cfg.Output.Upload, paths)
			if err != nil {
				return nil, fmt.Errorf("upload summary: %w", err)
			}
			sum.Uploaded = append(sum.Uploaded, uris...)
		}
	}

	logging.PhaseComplete(log, "run", time.Since(start)).
		Int("thresholds", len(thresholds)).
		Int("files", len(written)).
		Int("uploaded", len(sum.Uploaded)).
		Bytes("peak_heap_bytes", int64(tracker.PeakHeap())).
		Log("run complete")
	return sum, nil
}

// mineOne mines one threshold and writes every configured output for it.
// It returns the summary row and the local files written.
func mineOne(ctx context.Context, cfg *config.Config, store *txstore.Store, names *itemnames.Names, db *export.SQLite, p mining.Params, runID string) (report.SweepRow, []string, error) {
	start := time.Now()

	res, err := mining.Run(ctx, store, p)
	if err != nil {
		return report.SweepRow{}, nil, err
	}

	// The readable file is always written; without a mapping a nil *Names
	// labels every item Unknown_<id>. Exports leave labels empty instead.
	files, err := report.WriteFiles(ctx, cfg.Output.Dir, p.MinUtility, res.Entries, names)
	if err != nil {
		return report.SweepRow{}, nil, err
	}
	var labeler export.Labeler
	if names != nil {
		labeler = names
	}
	paths := []string{files.Ranked}
	if files.Readable != "" {
		paths = append(paths, files.Readable)
	}

	if cfg.Output.Parquet || db != nil {
		rows := export.Rows(runID, p.MinUtility, res.Entries, labeler)
		if cfg.Output.Parquet {
			path := filepath.Join(cfg.Output.Dir, export.ParquetName(p.MinUtility))
			if err := export.WriteParquet(path, rows); err != nil {
				return report.SweepRow{}, nil, err
			}
			paths = append(paths, path)
		}
		if db != nil {
			run := export.RunInfo{
				RunID:      runID,
				MinUtility: p.MinUtility,
				MaxSize:    p.MaxSize,
				Input:      cfg.Input.Path,
				Elapsed:    res.Stats.Elapsed,
				CreatedAt:  time.Now().UTC(),
			}
			if err := db.WriteRun(ctx, run, rows); err != nil {
				return report.SweepRow{}, nil, err
			}
		}
	}

	logTop(ctx, res.Entries, names)

	stats := res.Stats
	return report.SweepRow{
		MinUtility: p.MinUtility,
		Patterns:   len(res.Entries),
		BySize:     ranking.CountBySize(res.Entries),
		Elapsed:    time.Since(start),
		Files:      files,
		Stats:      &stats,
	}, paths, nil
}

// logTop logs the few best itemsets of a threshold at info level.
func logTop(ctx context.Context, entries []ranking.Entry, names *itemnames.Names) {
	log := logctx.FromContext(ctx)
	for i, e := range ranking.TopN(entries, 5) {
		log.Info().
			Int("rank", i+1).
			Strs("items", names.Labels(e.Items)).
			Str("utility", humanfmt.Utility(e.Utility)).
			Int("support", e.Support).
			Msg("top itemset")
	}
}
