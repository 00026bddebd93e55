// Package cli implements the command-line interface for huimine.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/eunmann/huimine/internal/config"
	"github.com/eunmann/huimine/pkg/humanfmt"
	"github.com/eunmann/huimine/pkg/itemnames"
	"github.com/eunmann/huimine/pkg/logging"
	"github.com/eunmann/huimine/pkg/membudget"
	"github.com/eunmann/huimine/pkg/s3fetch"
)

const usage = `usage: huimine <command> [options]
commands:
  mine     mine one threshold
  sweep    mine each configured threshold and write a summary
  rules    derive recommendation rules from a result file
  top      print the best itemsets of a result file
  summary  print the summary of a finished sweep`

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "mine":
		return runMine(args[1:])
	case "sweep":
		return runSweep(args[1:])
	case "rules":
		return runRules(args[1:])
	case "top":
		return runTop(args[1:])
	case "summary":
		return runSummary(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// commonFlags are shared by mine and sweep. Only flags that were set on
// the command line override the loaded configuration.
type commonFlags struct {
	configPath string
	input      string
	mapping    string
	maxSize    int
	workers    int
	outDir     string
	parquet    bool
	sqlite     string
	upload     string
	memBudget  string
	debug      bool
	human      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default huimine.yaml if present)")
	fs.StringVar(&c.input, "in", "", "transaction file: local path, .gz, s3:// URI or - for stdin")
	fs.StringVar(&c.mapping, "mapping", "", "item mapping JSON (product code to id); without it the readable file shows Unknown_<id>")
	fs.IntVar(&c.maxSize, "max-size", 0, "largest itemset size to mine")
	fs.IntVar(&c.workers, "workers", 0, "worker goroutines (0 = NumCPU)")
	fs.StringVar(&c.outDir, "out", "", "output directory for result files")
	fs.BoolVar(&c.parquet, "parquet", false, "also write a Parquet file per threshold")
	fs.StringVar(&c.sqlite, "sqlite", "", "append results to this SQLite database")
	fs.StringVar(&c.upload, "upload", "", "upload written files under this s3:// prefix")
	fs.StringVar(&c.memBudget, "mem-budget", "", "frontier memory budget, e.g. 4GiB (default 50% of RAM)")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&c.human, "human", false, "human-readable console logs")
}

// apply copies explicitly set flags onto cfg.
func (c *commonFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Input.Path = c.input
		case "mapping":
			cfg.Input.Mapping = c.mapping
		case "max-size":
			cfg.Mining.MaxSize = c.maxSize
		case "workers":
			cfg.Mining.Workers = c.workers
		case "out":
			cfg.Output.Dir = c.outDir
		case "parquet":
			cfg.Output.Parquet = c.parquet
		case "sqlite":
			cfg.Output.SQLite = c.sqlite
		case "upload":
			cfg.Output.Upload = c.upload
		case "debug":
			cfg.Logging.Debug = c.debug
		case "human":
			cfg.Logging.Human = c.human
		}
	})
}

// loadConfig loads the configuration, applies flags and validates the
// result. It also initialises logging.
func (c *commonFlags) loadConfig(fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Input.Path == "" {
		return nil, errors.New("--in is required")
	}
	logging.Init(cfg.Logging.Debug, cfg.Logging.Human)
	return cfg, nil
}

// determineMemoryBudget resolves the frontier budget. Precedence is the
// --mem-budget flag, then HUIMINE_MEM_BUDGET, then the config file, then
// half of system RAM.
func determineMemoryBudget(cliValue, configValue string) (*membudget.Budget, error) {
	envValue := os.Getenv(membudget.EnvVar)
	if cliValue == "" && envValue == "" && configValue != "" {
		n, err := humanfmt.ParseBytes(configValue)
		if err != nil {
			return nil, fmt.Errorf("parse memory.budget: %w", err)
		}
		return membudget.New(n, membudget.BudgetSourceConfig), nil
	}
	return membudget.Resolve(cliValue, envValue)
}

// lazyS3 creates the S3 client on first use so local runs never load AWS
// configuration.
type lazyS3 struct {
	once   sync.Once
	client *s3fetch.Client
	err    error
}

func (l *lazyS3) get(ctx context.Context) (*s3fetch.Client, error) {
	l.once.Do(func() {
		l.client, l.err = s3fetch.NewClient(ctx)
	})
	return l.client, l.err
}

func (l *lazyS3) StreamObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	c, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return c.StreamObject(ctx, bucket, key)
}

// loadNames loads the item mapping when uri is set. A nil result means
// itemsets are reported by id only.
func loadNames(ctx context.Context, uri string, remote *lazyS3) (*itemnames.Names, error) {
	if uri == "" {
		return nil, nil
	}
	names, err := itemnames.Load(ctx, uri, remote)
	if err != nil {
		return nil, fmt.Errorf("load item mapping: %w", err)
	}
	return names, nil
}
