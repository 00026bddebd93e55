package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/huimine/pkg/fileutil"
	"github.com/eunmann/huimine/pkg/logging"
	"github.com/parquet-go/parquet-go"
)

// ParquetName returns the Parquet file name for a threshold.
func ParquetName(minUtility float64) string {
	return "high_utility_itemsets_" + strconv.FormatFloat(minUtility, 'f', -1, 64) + ".parquet"
}

// WriteParquet writes rows to path in a single row group.
func WriteParquet(path string, rows []ResultRow) error {
	start := time.Now()
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		pw := parquet.NewGenericWriter[ResultRow](w)
		if _, err := pw.Write(rows); err != nil {
			pw.Close()
			return fmt.Errorf("write parquet rows: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("close parquet writer: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	logging.FileCreated(*logging.L(), "export", time.Since(start)).
		Str("path", path).
		Str("format", "parquet").
		Int("rows", len(rows)).
		LogDebug("parquet file written")
	return nil
}

// ReadParquet reads rows written by WriteParquet.
func ReadParquet(path string) ([]ResultRow, error) {
	rows, err := parquet.ReadFile[ResultRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// IsParquet reports whether path names a Parquet file.
func IsParquet(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".parquet")
}
