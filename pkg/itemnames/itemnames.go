// Package itemnames turns item ids back into the stock codes they were
// assigned from.
package itemnames

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/eunmann/huimine/pkg/itemset"
	"github.com/eunmann/huimine/pkg/txstore"
	"github.com/goccy/go-json"
)

// ErrInvalidMapping indicates the mapping file is not a JSON object of
// stock code to item id.
var ErrInvalidMapping = errors.New("invalid item mapping")

// Names is an id to stock code lookup. The zero value and nil labels every
// item as unknown.
type Names struct {
	byID   map[uint32]string
	byCode map[string]uint32
}

// New builds Names from a stock code to id mapping. When two codes share
// an id the lexicographically smaller code wins.
func New(mapping map[string]uint32) *Names {
	n := &Names{
		byID:   make(map[uint32]string, len(mapping)),
		byCode: make(map[string]uint32, len(mapping)),
	}
	for code, id := range mapping {
		n.byCode[code] = id
		if cur, ok := n.byID[id]; !ok || code < cur {
			n.byID[id] = code
		}
	}
	return n
}

// Decode reads a mapping of the form {"85123A": 1, "71053": 2}.
func Decode(r io.Reader) (*Names, error) {
	var mapping map[string]uint32
	if err := json.NewDecoder(r).Decode(&mapping); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMapping, err)
	}
	return New(mapping), nil
}

// Load reads the mapping at uri. Sources are resolved like transaction
// input, so local, gzip and s3:// paths all work.
func Load(ctx context.Context, uri string, remote txstore.ObjectStreamer) (*Names, error) {
	rc, err := txstore.Open(ctx, uri, remote)
	if err != nil {
		return nil, fmt.Errorf("open mapping: %w", err)
	}
	defer rc.Close()

	names, err := Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", uri, err)
	}
	return names, nil
}

// Len returns the number of mapped ids.
func (n *Names) Len() int {
	if n == nil {
		return 0
	}
	return len(n.byID)
}

// Code returns the stock code for id.
func (n *Names) Code(id uint32) (string, bool) {
	if n == nil {
		return "", false
	}
	code, ok := n.byID[id]
	return code, ok
}

// ID returns the item id assigned to a stock code.
func (n *Names) ID(code string) (uint32, bool) {
	if n == nil {
		return 0, false
	}
	id, ok := n.byCode[code]
	return id, ok
}

// Label returns the stock code for id, or Unknown_<id>.
func (n *Names) Label(id uint32) string {
	if code, ok := n.Code(id); ok {
		return code
	}
	return "Unknown_" + strconv.FormatUint(uint64(id), 10)
}

// Labels labels every item of s.
func (n *Names) Labels(s itemset.Itemset) []string {
	out := make([]string, len(s))
	for i, id := range s {
		out[i] = n.Label(id)
	}
	return out
}
