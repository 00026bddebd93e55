package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/huimine/pkg/fileutil"
	"github.com/eunmann/huimine/pkg/mining"
	"github.com/goccy/go-json"
)

const (
	SummaryTextName = "mining_results_summary.txt"
	SummaryJSONName = "summary.json"
)

// SweepRow is one threshold of a sweep.
type SweepRow struct {
	MinUtility float64       `json:"min_utility"`
	Patterns   int           `json:"patterns"`
	BySize     map[int]int   `json:"by_size"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Files      Files         `json:"files"`
	Stats      *mining.Stats `json:"stats,omitempty"`
}

// Summary describes a sweep over several thresholds of one input.
type Summary struct {
	RunID    string     `json:"run_id"`
	Input    string     `json:"input"`
	MaxSize  int        `json:"max_size"`
	Started  time.Time  `json:"started"`
	Elapsed  int64      `json:"elapsed_ms"`
	Rows     []SweepRow `json:"thresholds"`
	Uploaded []string   `json:"uploaded,omitempty"`
}

// WriteText renders the human summary, one threshold per line.
func (s *Summary) WriteText(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("HIGH-UTILITY ITEMSET MINING SUMMARY\n")
	sb.WriteString("===================================\n\n")
	fmt.Fprintf(&sb, "Input: %s\nMax size: %d\nRun: %s\n\n", s.Input, s.MaxSize, s.RunID)
	for _, r := range s.Rows {
		fmt.Fprintf(&sb, "Min Utility %s: %d patterns -> %s\n",
			groupThousands(r.MinUtility), r.Patterns, r.Files.Ranked)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteSummary writes the text and JSON summaries into dir and returns
// their paths.
func WriteSummary(dir string, s *Summary) ([]string, error) {
	textPath := filepath.Join(dir, SummaryTextName)
	if err := fileutil.WriteAtomic(textPath, s.WriteText); err != nil {
		return nil, fmt.Errorf("write %s: %w", textPath, err)
	}

	jsonPath := filepath.Join(dir, SummaryJSONName)
	err := fileutil.WriteAtomic(jsonPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	})
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", jsonPath, err)
	}
	return []string{textPath, jsonPath}, nil
}

// ReadSummary decodes a summary.json.
func ReadSummary(r io.Reader) (*Summary, error) {
	var s Summary
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}

// groupThousands formats v with comma separators, keeping any fraction.
func groupThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	if hasFrac {
		sb.WriteByte('.')
		sb.WriteString(frac)
	}
	return sb.String()
}
