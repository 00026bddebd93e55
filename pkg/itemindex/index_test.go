package itemindex

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/eunmann/huimine/pkg/txstore"
)

func buildStore(t *testing.T, s string) *txstore.Store {
	t.Helper()
	store, err := txstore.Parse(context.Background(), strings.NewReader(s))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return store
}

func TestBuildRestrictedToCandidates(t *testing.T) {
	store := buildStore(t, "1:1:1 2:1:1 3:1:1\n1:1:1 3:1:1\n2:1:1\n3:1:1 4:1:1\n")

	idx, err := Build(store, []uint32{3, 1, 3})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !slices.Equal(idx.Items(), []uint32{1, 3}) {
		t.Errorf("Items() = %v, want [1 3]", idx.Items())
	}
	if got := idx.Tids(1); !slices.Equal(got, []int32{0, 1}) {
		t.Errorf("Tids(1) = %v", got)
	}
	if got := idx.Tids(3); !slices.Equal(got, []int32{0, 1, 3}) {
		t.Errorf("Tids(3) = %v", got)
	}
	for _, id := range []uint32{2, 4, 99} {
		if idx.Tids(id) != nil {
			t.Errorf("item %d should not be indexed", id)
		}
	}
	if idx.Postings() != 5 {
		t.Errorf("Postings() = %d, want 5", idx.Postings())
	}
}

func TestBuildEmptyCandidates(t *testing.T) {
	store := buildStore(t, "1:1:1\n")
	idx, err := Build(store, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 0 || idx.Tids(1) != nil {
		t.Error("empty index should not report any item")
	}
}

func TestBuildManyItems(t *testing.T) {
	var sb strings.Builder
	for tx := range 200 {
		for item := tx; item < tx+5; item++ {
			sb.WriteString(" ")
			sb.WriteString(strconv.Itoa(item))
			sb.WriteString(":1:1.00")
		}
		sb.WriteByte('\n')
	}
	store := buildStore(t, sb.String())

	candidates := make([]uint32, 0, 204)
	for id := range uint32(204) {
		candidates = append(candidates, id)
	}
	idx, err := Build(store, candidates)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, id := range candidates {
		tids := idx.Tids(id)
		if len(tids) == 0 {
			t.Fatalf("item %d has no postings", id)
		}
		if !slices.IsSorted(tids) {
			t.Fatalf("item %d postings not sorted: %v", id, tids)
		}
		for _, tid := range tids {
			if !store.At(tid).Contains(id) {
				t.Fatalf("tx %d does not contain item %d", tid, id)
			}
		}
	}
	if idx.Postings() != 1000 {
		t.Errorf("Postings() = %d, want 1000", idx.Postings())
	}
}

func TestIntersectPositionsCommonIDs(t *testing.T) {
	tests := []struct {
		a, b []int32
		want []int32
	}{
		{nil, []int32{1}, nil},
		{[]int32{1, 3, 5}, []int32{2, 4}, nil},
		{[]int32{1, 3, 5, 7}, []int32{3, 4, 5, 8}, []int32{3, 5}},
		{[]int32{2}, []int32{2}, []int32{2}},
	}

	for _, tt := range tests {
		var got []int32
		IntersectPositions(tt.a, tt.b, func(_ int, tid int32) bool {
			got = append(got, tid)
			return true
		})
		if !slices.Equal(got, tt.want) {
			t.Errorf("IntersectPositions(%v, %v) visited %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIntersectPositions(t *testing.T) {
	a := []int32{1, 4, 6, 9}
	b := []int32{4, 5, 9}

	var pos []int
	var tids []int32
	IntersectPositions(a, b, func(p int, tid int32) bool {
		pos = append(pos, p)
		tids = append(tids, tid)
		return true
	})
	if !slices.Equal(pos, []int{1, 3}) || !slices.Equal(tids, []int32{4, 9}) {
		t.Errorf("positions = %v tids = %v", pos, tids)
	}

	calls := 0
	IntersectPositions(a, b, func(int, int32) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("expected early stop after 1 call, got %d", calls)
	}
}
