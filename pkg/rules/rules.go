// Package rules derives item suggestions from high-utility itemsets.
//
// Every itemset of two or more items yields one rule per member: when a
// basket holds all the other members, suggest the missing one. Rules carry
// the itemset's utility as the expected gain and are not scored further.
package rules

import (
	"fmt"
	"io"
	"slices"

	"github.com/eunmann/huimine/pkg/fileutil"
	"github.com/eunmann/huimine/pkg/ranking"
	"github.com/goccy/go-json"
)

// Labeler names items.
type Labeler interface {
	Label(id uint32) string
}

// Rule suggests one item given the rest of its itemset.
type Rule struct {
	Input           []string `json:"input"`
	Suggest         string   `json:"suggest"`
	ExpectedUtility float64  `json:"expected_utility"`
}

// Derive builds rules from ranked entries in entry order. Within an
// itemset the suggested item follows the itemset's order. Inputs are
// sorted by label.
func Derive(entries []ranking.Entry, names Labeler) []Rule {
	var out []Rule
	for _, e := range entries {
		if e.Items.Len() < 2 {
			continue
		}
		labels := make([]string, len(e.Items))
		for i, id := range e.Items {
			labels[i] = names.Label(id)
		}
		for i := range labels {
			input := make([]string, 0, len(labels)-1)
			input = append(input, labels[:i]...)
			input = append(input, labels[i+1:]...)
			slices.Sort(input)
			out = append(out, Rule{
				Input:           input,
				Suggest:         labels[i],
				ExpectedUtility: e.Utility,
			})
		}
	}
	return out
}

// Encode writes rules as an indented JSON array.
func Encode(w io.Writer, rules []Rule) error {
	if rules == nil {
		rules = []Rule{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(rules)
}

// Decode reads a rules JSON array.
func Decode(r io.Reader) ([]Rule, error) {
	var out []Rule
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return out, nil
}

// WriteFile encodes rules to path, replacing it only once fully written.
func WriteFile(path string, rules []Rule) error {
	return fileutil.WriteAtomic(path, func(w io.Writer) error {
		return Encode(w, rules)
	})
}

// Index groups rules by their sorted input, for lookups by basket.
type Index map[string][]Rule

// NewIndex indexes rules by input. Suggestions for one input keep the
// order in which they were derived, highest utility first for ranked input.
func NewIndex(rules []Rule) Index {
	idx := make(Index)
	for _, r := range rules {
		k := key(r.Input)
		idx[k] = append(idx[k], r)
	}
	return idx
}

// Suggest returns the rules whose input is exactly basket.
func (idx Index) Suggest(basket []string) []Rule {
	b := slices.Clone(basket)
	slices.Sort(b)
	return idx[key(b)]
}

func key(sorted []string) string {
	var n int
	for _, s := range sorted {
		n += len(s) + 1
	}
	buf := make([]byte, 0, n)
	for _, s := range sorted {
		buf = append(buf, s...)
		buf = append(buf, 0)
	}
	return string(buf)
}
