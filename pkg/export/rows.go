// Package export writes mining results to Parquet files and SQLite
// databases for downstream analysis.
package export

import (
	"strings"

	"github.com/eunmann/huimine/pkg/ranking"
)

// Labeler names items. A nil Labeler leaves Labels empty.
type Labeler interface {
	Label(id uint32) string
}

// ResultRow is one ranked itemset of one run.
type ResultRow struct {
	RunID      string  `parquet:"run_id"`
	MinUtility float64 `parquet:"min_utility"`
	Rank       int32   `parquet:"rank"`
	Size       int32   `parquet:"size"`
	ItemIDs    []int32 `parquet:"item_ids,list"`
	Items      string  `parquet:"items"`
	Labels     string  `parquet:"labels"`
	Utility    float64 `parquet:"utility"`
	Support    int32   `parquet:"support"`
}

// Rows converts ranked entries into rows. Rank starts at 1.
func Rows(runID string, minUtility float64, entries []ranking.Entry, names Labeler) []ResultRow {
	rows := make([]ResultRow, len(entries))
	for i, e := range entries {
		ids := make([]int32, len(e.Items))
		for j, id := range e.Items {
			ids[j] = int32(id)
		}
		row := ResultRow{
			RunID:      runID,
			MinUtility: minUtility,
			Rank:       int32(i + 1),
			Size:       int32(e.Items.Len()),
			ItemIDs:    ids,
			Items:      e.Items.String(),
			Utility:    e.Utility,
			Support:    int32(e.Support),
		}
		if names != nil {
			labels := make([]string, len(e.Items))
			for j, id := range e.Items {
				labels[j] = names.Label(id)
			}
			row.Labels = strings.Join(labels, " ")
		}
		rows[i] = row
	}
	return rows
}
