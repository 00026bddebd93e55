package itemnames

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eunmann/huimine/pkg/itemset"
	"github.com/eunmann/huimine/pkg/txstore"
)

func TestDecodeAndLabel(t *testing.T) {
	names, err := Decode(strings.NewReader(`{"85123A": 1, "71053": 2, "84406B": 3}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if names.Len() != 3 {
		t.Errorf("Len = %d, want 3", names.Len())
	}

	tests := []struct {
		id   uint32
		want string
	}{
		{1, "85123A"},
		{2, "71053"},
		{3, "84406B"},
		{99, "Unknown_99"},
	}
	for _, tt := range tests {
		if got := names.Label(tt.id); got != tt.want {
			t.Errorf("Label(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}

	if id, ok := names.ID("71053"); !ok || id != 2 {
		t.Errorf("ID(71053) = %d, %v", id, ok)
	}

	got := strings.Join(names.Labels(itemset.Itemset{1, 3, 7}), " ")
	if got != "85123A 84406B Unknown_7" {
		t.Errorf("Labels = %q", got)
	}
}

func TestNilNames(t *testing.T) {
	var names *Names
	if got := names.Label(5); got != "Unknown_5" {
		t.Errorf("Label = %q", got)
	}
	if names.Len() != 0 {
		t.Error("nil Names has entries")
	}
}

func TestNewSharedIDPicksSmallestCode(t *testing.T) {
	names := New(map[string]uint32{"B": 4, "A": 4, "C": 5})
	if got := names.Label(4); got != "A" {
		t.Errorf("Label(4) = %q, want A", got)
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, input := range []string{`[1,2]`, `{"a": "x"}`, `not json`} {
		if _, err := Decode(strings.NewReader(input)); !errors.Is(err, ErrInvalidMapping) {
			t.Errorf("Decode(%q) err = %v, want ErrInvalidMapping", input, err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "item_mapping.json")
	if err := os.WriteFile(path, []byte(`{"22423": 10}`), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := Load(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if names.Label(10) != "22423" {
		t.Errorf("Label(10) = %q", names.Label(10))
	}

	_, err = Load(context.Background(), filepath.Join(dir, "missing.json"), nil)
	if !errors.Is(err, txstore.ErrInputUnavailable) {
		t.Errorf("missing file err = %v, want ErrInputUnavailable", err)
	}
}
