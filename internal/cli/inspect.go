package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/eunmann/huimine/pkg/export"
	"github.com/eunmann/huimine/pkg/fileutil"
	"github.com/eunmann/huimine/pkg/humanfmt"
	"github.com/eunmann/huimine/pkg/itemset"
	"github.com/eunmann/huimine/pkg/logging"
	"github.com/eunmann/huimine/pkg/ranking"
	"github.com/eunmann/huimine/pkg/report"
	"github.com/eunmann/huimine/pkg/rules"
)

// RulesFileName is the default rules output name, next to the results.
const RulesFileName = "recommendation_rules.json"

// stdout receives command output. Tests replace it.
var stdout io.Writer = os.Stdout

func runRules(args []string) error {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	results := fs.String("results", "", "ranked result file (.txt or .parquet)")
	mapping := fs.String("mapping", "", "item mapping JSON (product code to id)")
	out := fs.String("out", "", "rules output path (default "+RulesFileName+" next to --results)")
	basket := fs.String("basket", "", "comma-separated item labels to print suggestions for")
	debug := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *results == "" {
		return errors.New("--results is required")
	}
	logging.Init(*debug, true)

	ctx := context.Background()
	entries, err := readResults(*results)
	if err != nil {
		return err
	}
	names, err := loadNames(ctx, *mapping, &lazyS3{})
	if err != nil {
		return err
	}

	derived := rules.Derive(entries, names)
	path := *out
	if path == "" {
		path = filepath.Join(filepath.Dir(*results), RulesFileName)
	}
	if err := rules.WriteFile(path, derived); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	log := logging.WithPhase("rules")
	log.Info().
		Str("path", path).
		Int("itemsets", len(entries)).
		Int("rules", len(derived)).
		Msg("rules written")

	if *basket == "" {
		return nil
	}
	items := splitList(*basket)
	suggestions := rules.NewIndex(derived).Suggest(items)
	if len(suggestions) == 0 {
		fmt.Fprintf(stdout, "no suggestions for %s\n", strings.Join(items, ", "))
		return nil
	}
	for _, r := range suggestions {
		fmt.Fprintf(stdout, "%s -> %s (%s)\n",
			strings.Join(r.Input, ", "), r.Suggest, humanfmt.Utility(r.ExpectedUtility))
	}
	return nil
}

func runTop(args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	results := fs.String("results", "", "ranked result file (.txt or .parquet)")
	mapping := fs.String("mapping", "", "item mapping JSON (product code to id)")
	n := fs.Int("n", 10, "number of itemsets to print (negative prints all)")
	size := fs.Int("size", 0, "only print itemsets of this size (0 = any)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *results == "" {
		return errors.New("--results is required")
	}

	entries, err := readResults(*results)
	if err != nil {
		return err
	}
	names, err := loadNames(context.Background(), *mapping, &lazyS3{})
	if err != nil {
		return err
	}

	if *size > 0 {
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.Items.Len() == *size {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUTILITY\tSUPPORT\tITEMS")
	for i, e := range ranking.TopN(ranking.Rank(entries), *n) {
		label := e.Items.String()
		if names != nil {
			label = strings.Join(names.Labels(e.Items), ", ")
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, humanfmt.Utility(e.Utility), e.Support, label)
	}
	return tw.Flush()
}

func runSummary(args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	dir := fs.String("dir", "output/patterns", "output directory of a sweep")

	if err := fs.Parse(args); err != nil {
		return err
	}

	path := filepath.Join(*dir, report.SummaryJSONName)
	if !fileutil.Exists(path) {
		return fmt.Errorf("no sweep summary in %s", *dir)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sum, err := report.ReadSummary(f)
	if err != nil {
		return err
	}

	if err := sum.WriteText(stdout); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nMIN UTILITY\tPATTERNS\tBY SIZE\tELAPSED")
	for _, r := range sum.Rows {
		sizes := make([]string, 0, len(r.BySize))
		for size := 1; size <= sum.MaxSize; size++ {
			if n := r.BySize[size]; n > 0 {
				sizes = append(sizes, fmt.Sprintf("%d:%d", size, n))
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			humanfmt.Utility(r.MinUtility), r.Patterns, strings.Join(sizes, " "), humanfmt.Duration(r.Elapsed))
	}
	return tw.Flush()
}

// readResults reads a ranked text result file or a Parquet export.
func readResults(path string) ([]ranking.Entry, error) {
	if !fileutil.Exists(path) {
		return nil, fmt.Errorf("results file %s not found", path)
	}
	if !export.IsParquet(path) {
		return report.ReadFile(path)
	}
	rows, err := export.ReadParquet(path)
	if err != nil {
		return nil, err
	}
	entries := make([]ranking.Entry, len(rows))
	for i, r := range rows {
		items := make(itemset.Itemset, len(r.ItemIDs))
		for j, id := range r.ItemIDs {
			items[j] = uint32(id)
		}
		entries[i] = ranking.Entry{Items: items, Utility: r.Utility, Support: int(r.Support)}
	}
	return entries, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
