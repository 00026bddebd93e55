package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eunmann/huimine/pkg/export"
	"github.com/eunmann/huimine/pkg/membudget"
	"github.com/eunmann/huimine/pkg/report"
	"github.com/eunmann/huimine/pkg/rules"
)

const sampleTransactions = "1:1:5.00 2:1:3.00\n1:2:5.00\n2:3:3.00\n"

const sampleMapping = `{"85123A": 1, "71053": 2}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// isolate runs the test in an empty directory so no huimine.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestRunNoArgs(t *testing.T) {
	err := Run(nil)
	if err == nil {
		t.Fatal("expected error with no args")
	}
	if !strings.Contains(err.Error(), "usage") {
		t.Errorf("expected usage message, got: %v", err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	err := Run([]string{"unknown"})
	if err == nil {
		t.Fatal("expected error with unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected 'unknown command' error, got: %v", err)
	}
}

func TestMineMissingInput(t *testing.T) {
	isolate(t)
	err := Run([]string{"mine", "--min-utility", "10"})
	if err == nil {
		t.Fatal("expected error with missing --in")
	}
	if !strings.Contains(err.Error(), "--in") {
		t.Errorf("expected '--in' error, got: %v", err)
	}
}

func TestMineInvalidUpload(t *testing.T) {
	dir := isolate(t)
	in := writeFile(t, dir, "tx.txt", sampleTransactions)
	err := Run([]string{"mine", "--in", in, "--upload", "/not/s3"})
	if err == nil {
		t.Fatal("expected error with non-s3 upload target")
	}
}

func TestRulesMissingResults(t *testing.T) {
	err := Run([]string{"rules"})
	if err == nil || !strings.Contains(err.Error(), "--results") {
		t.Errorf("expected '--results' error, got: %v", err)
	}
}

func TestTopMissingResults(t *testing.T) {
	err := Run([]string{"top"})
	if err == nil || !strings.Contains(err.Error(), "--results") {
		t.Errorf("expected '--results' error, got: %v", err)
	}
}

func TestMineWritesAllOutputs(t *testing.T) {
	dir := isolate(t)
	in := writeFile(t, dir, "tx.txt", sampleTransactions)
	mapping := writeFile(t, dir, "item_mapping.json", sampleMapping)
	out := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "results.db")

	err := Run([]string{
		"mine", "--in", in, "--mapping", mapping, "--out", out,
		"--min-utility", "10", "--parquet", "--sqlite", dbPath, "--workers", "2",
	})
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	ranked := filepath.Join(out, report.FileName(10))
	entries, err := report.ReadFile(ranked)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d itemsets, want 2", len(entries))
	}
	if entries[0].Items.String() != "1" || entries[1].Items.String() != "2" {
		t.Errorf("order = %v, %v", entries[0].Items, entries[1].Items)
	}

	readable, err := os.ReadFile(report.ReadableName(ranked))
	if err != nil {
		t.Fatalf("readable file: %v", err)
	}
	if !strings.Contains(string(readable), "85123A") {
		t.Errorf("readable file lacks labels:\n%s", readable)
	}

	rows, err := export.ReadParquet(filepath.Join(out, export.ParquetName(10)))
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	if len(rows) != 2 || rows[0].Labels != "85123A" || rows[1].Labels != "71053" {
		t.Errorf("parquet rows = %+v", rows)
	}

	db, err := export.OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	n, ok, err := db.RunCount(context.Background(), rows[0].RunID, 10)
	if err != nil || !ok || n != 2 {
		t.Errorf("RunCount = %d, %v, %v", n, ok, err)
	}
}

func TestSweepWritesSummary(t *testing.T) {
	dir := isolate(t)
	in := writeFile(t, dir, "tx.txt", sampleTransactions)
	out := filepath.Join(dir, "out")

	err := Run([]string{"sweep", "--in", in, "--out", out, "--thresholds", "10,13"})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	f, err := os.Open(filepath.Join(out, report.SummaryJSONName))
	if err != nil {
		t.Fatalf("summary.json: %v", err)
	}
	defer f.Close()
	sum, err := report.ReadSummary(f)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if len(sum.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(sum.Rows))
	}
	if sum.Rows[0].Patterns != 2 || sum.Rows[1].Patterns != 1 {
		t.Errorf("patterns = %d, %d, want 2, 1", sum.Rows[0].Patterns, sum.Rows[1].Patterns)
	}
	if sum.RunID == "" {
		t.Error("summary has no run id")
	}
	if _, err := os.Stat(filepath.Join(out, report.SummaryTextName)); err != nil {
		t.Errorf("text summary: %v", err)
	}

	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	if err := Run([]string{"summary", "--dir", out}); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(buf.String(), "Min Utility 13: 1 patterns") {
		t.Errorf("summary output lacks threshold line:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "1:2") {
		t.Errorf("summary output lacks size breakdown:\n%s", buf.String())
	}
}

func TestSummaryMissing(t *testing.T) {
	dir := isolate(t)
	err := Run([]string{"summary", "--dir", dir})
	if err == nil || !strings.Contains(err.Error(), "no sweep summary") {
		t.Errorf("expected 'no sweep summary' error, got: %v", err)
	}
}

func TestMineWithoutMappingWritesUnknownLabels(t *testing.T) {
	dir := isolate(t)
	in := writeFile(t, dir, "tx.txt", sampleTransactions)
	out := filepath.Join(dir, "out")

	if err := Run([]string{"mine", "--in", in, "--out", out, "--min-utility", "10"}); err != nil {
		t.Fatalf("mine: %v", err)
	}

	readable, err := os.ReadFile(report.ReadableName(filepath.Join(out, report.FileName(10))))
	if err != nil {
		t.Fatalf("readable file: %v", err)
	}
	if !strings.Contains(string(readable), "Unknown_1") || !strings.Contains(string(readable), "Unknown_2") {
		t.Errorf("readable file lacks Unknown_<id> labels:\n%s", readable)
	}
}

func TestTopResultsNotFound(t *testing.T) {
	dir := isolate(t)
	err := Run([]string{"top", "--results", filepath.Join(dir, "missing.txt")})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected 'not found' error, got: %v", err)
	}
}

func TestRulesAndTop(t *testing.T) {
	dir := isolate(t)
	results := writeFile(t, dir, report.FileName(5),
		"1 2 #UTIL: 20.00 #SUP: 1\n1 #UTIL: 15.00 #SUP: 2\n2 #UTIL: 12.00 #SUP: 2\n")
	mapping := writeFile(t, dir, "item_mapping.json", sampleMapping)

	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	err := Run([]string{"rules", "--results", results, "--mapping", mapping, "--basket", "71053"})
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, RulesFileName))
	if err != nil {
		t.Fatalf("rules file: %v", err)
	}
	defer f.Close()
	got, err := rules.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rules, want 2", len(got))
	}
	if !strings.Contains(buf.String(), "71053 -> 85123A") {
		t.Errorf("suggestion output = %q", buf.String())
	}

	buf.Reset()
	if err := Run([]string{"top", "--results", results, "--mapping", mapping, "-n", "2"}); err != nil {
		t.Fatalf("top: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("top printed %d lines, want header + 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "85123A, 71053") {
		t.Errorf("first row = %q", lines[1])
	}
}

func TestDetermineMemoryBudgetCLI(t *testing.T) {
	t.Setenv(membudget.EnvVar, "")
	budget, err := determineMemoryBudget("4GiB", "1GiB")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Total() != 4*1024*1024*1024 {
		t.Errorf("Total() = %d, want %d", budget.Total(), 4*1024*1024*1024)
	}
	if budget.Source() != membudget.BudgetSourceCLI {
		t.Errorf("Source() = %s, want %s", budget.Source(), membudget.BudgetSourceCLI)
	}
}

func TestDetermineMemoryBudgetEnvOverridesConfig(t *testing.T) {
	t.Setenv(membudget.EnvVar, "2GiB")

	budget, err := determineMemoryBudget("", "1GiB")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Total() != 2*1024*1024*1024 {
		t.Errorf("Total() = %d, want %d", budget.Total(), 2*1024*1024*1024)
	}
	if budget.Source() != membudget.BudgetSourceEnv {
		t.Errorf("Source() = %s, want %s", budget.Source(), membudget.BudgetSourceEnv)
	}
}

func TestDetermineMemoryBudgetCLIOverridesEnv(t *testing.T) {
	t.Setenv(membudget.EnvVar, "2GiB")

	budget, err := determineMemoryBudget("8GiB", "")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Total() != 8*1024*1024*1024 {
		t.Errorf("Total() = %d, want %d", budget.Total(), 8*1024*1024*1024)
	}
	if budget.Source() != membudget.BudgetSourceCLI {
		t.Errorf("Source() = %s, want %s", budget.Source(), membudget.BudgetSourceCLI)
	}
}

func TestDetermineMemoryBudgetConfig(t *testing.T) {
	t.Setenv(membudget.EnvVar, "")

	budget, err := determineMemoryBudget("", "512MiB")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Total() != 512*1024*1024 {
		t.Errorf("Total() = %d, want %d", budget.Total(), 512*1024*1024)
	}
	if budget.Source() != membudget.BudgetSourceConfig {
		t.Errorf("Source() = %s, want %s", budget.Source(), membudget.BudgetSourceConfig)
	}
}

func TestDetermineMemoryBudgetDefault(t *testing.T) {
	t.Setenv(membudget.EnvVar, "")

	budget, err := determineMemoryBudget("", "")
	if err != nil {
		t.Fatalf("determineMemoryBudget error: %v", err)
	}
	if budget.Source() != membudget.BudgetSourceAuto50Pct && budget.Source() != membudget.BudgetSourceDefault {
		t.Errorf("Source() = %s, want auto-50pct or default", budget.Source())
	}
}

func TestDetermineMemoryBudgetInvalid(t *testing.T) {
	t.Setenv(membudget.EnvVar, "")
	if _, err := determineMemoryBudget("invalid", ""); err == nil || !strings.Contains(err.Error(), "--mem-budget") {
		t.Errorf("expected '--mem-budget' in error, got: %v", err)
	}
	if _, err := determineMemoryBudget("", "lots"); err == nil || !strings.Contains(err.Error(), "memory.budget") {
		t.Errorf("expected 'memory.budget' in error, got: %v", err)
	}

	t.Setenv(membudget.EnvVar, "badvalue")
	if _, err := determineMemoryBudget("", ""); err == nil || !strings.Contains(err.Error(), membudget.EnvVar) {
		t.Errorf("expected %s in error, got: %v", membudget.EnvVar, err)
	}
}
