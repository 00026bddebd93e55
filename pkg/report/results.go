// Package report writes and reads ranked result files and sweep summaries.
//
// A result file has one line per itemset in rank order:
//
//	<id1> <id2> ... #UTIL: <utility> #SUP: <support>
//
// The readable companion replaces ids with labels.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/huimine/internal/logctx"
	"github.com/eunmann/huimine/pkg/fileutil"
	"github.com/eunmann/huimine/pkg/itemset"
	"github.com/eunmann/huimine/pkg/logging"
	"github.com/eunmann/huimine/pkg/ranking"
)

const (
	utilMarker = " #UTIL: "
	supMarker  = " #SUP: "
)

// Labeler names items in the readable rendering.
type Labeler interface {
	Label(id uint32) string
}

// FileName returns the result file name for a threshold, e.g.
// high_utility_itemsets_1000.txt.
func FileName(minUtility float64) string {
	return "high_utility_itemsets_" + strconv.FormatFloat(minUtility, 'f', -1, 64) + ".txt"
}

// ReadableName returns the companion path of a result file.
func ReadableName(path string) string {
	return strings.TrimSuffix(path, ".txt") + "_readable.txt"
}

// WriteRanked writes entries in the ranked result format.
func WriteRanked(w io.Writer, entries []ranking.Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		bw.WriteString(e.Items.String())
		writeTail(bw, e)
	}
	return bw.Flush()
}

// WriteReadable writes entries with every id replaced by its label.
func WriteReadable(w io.Writer, entries []ranking.Entry, names Labeler) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		for i, id := range e.Items {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(names.Label(id))
		}
		writeTail(bw, e)
	}
	return bw.Flush()
}

func writeTail(bw *bufio.Writer, e ranking.Entry) {
	bw.WriteString(utilMarker)
	bw.WriteString(strconv.FormatFloat(e.Utility, 'f', 2, 64))
	bw.WriteString(supMarker)
	bw.WriteString(strconv.Itoa(e.Support))
	bw.WriteByte('\n')
}

// Files are the paths written for one threshold.
type Files struct {
	Ranked   string `json:"ranked"`
	Readable string `json:"readable,omitempty"`
}

// WriteFiles writes the ranked file for minUtility into dir and, when
// names is non-nil, its readable companion. Each file is renamed into
// place only once fully written.
func WriteFiles(ctx context.Context, dir string, minUtility float64, entries []ranking.Entry, names Labeler) (Files, error) {
	log := logctx.FromContext(ctx)
	start := time.Now()

	files := Files{Ranked: filepath.Join(dir, FileName(minUtility))}
	err := fileutil.WriteAtomic(files.Ranked, func(w io.Writer) error {
		return WriteRanked(w, entries)
	})
	if err != nil {
		return Files{}, fmt.Errorf("write %s: %w", files.Ranked, err)
	}

	if names != nil {
		files.Readable = ReadableName(files.Ranked)
		err := fileutil.WriteAtomic(files.Readable, func(w io.Writer) error {
			return WriteReadable(w, entries, names)
		})
		if err != nil {
			return Files{}, fmt.Errorf("write %s: %w", files.Readable, err)
		}
	}

	logging.FileCreated(log, "report", time.Since(start)).
		Str("path", files.Ranked).
		Str("readable", files.Readable).
		Int("itemsets", len(entries)).
		Log("result files written")
	return files, nil
}

// Parse reads a ranked result file. Blank lines and lines starting with
// '#' are skipped.
func Parse(r io.Reader) ([]ranking.Entry, error) {
	var entries []ranking.Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return entries, nil
}

func parseLine(line string) (ranking.Entry, error) {
	head, tail, ok := strings.Cut(line, strings.TrimLeft(utilMarker, " "))
	if !ok {
		return ranking.Entry{}, fmt.Errorf("%w: missing #UTIL: %q", ErrMalformedResult, line)
	}
	utilStr, supStr, hasSup := strings.Cut(tail, strings.TrimLeft(supMarker, " "))

	items, err := itemset.Parse(head)
	if err != nil || items.Len() == 0 {
		return ranking.Entry{}, fmt.Errorf("%w: itemset %q", ErrMalformedResult, strings.TrimSpace(head))
	}
	utility, err := strconv.ParseFloat(strings.TrimSpace(utilStr), 64)
	if err != nil {
		return ranking.Entry{}, fmt.Errorf("%w: utility %q", ErrMalformedResult, strings.TrimSpace(utilStr))
	}

	support := 0
	if hasSup {
		support, err = strconv.Atoi(strings.TrimSpace(supStr))
		if err != nil {
			return ranking.Entry{}, fmt.Errorf("%w: support %q", ErrMalformedResult, strings.TrimSpace(supStr))
		}
	}
	return ranking.Entry{Items: items, Utility: utility, Support: support}, nil
}

// ReadFile parses the ranked result file at path.
func ReadFile(path string) ([]ranking.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}
