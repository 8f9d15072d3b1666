package store_test

import (
	"os"
	"testing"

	"github.com/lukemcguire/webdex/internal/store"
)

func TestLetter(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"apple", "a"},
		{"Banana", "b"},
		{"3d", "other"},
		{"", "other"},
		{"_underscore", "other"},
	}
	for _, tt := range tests {
		if got := store.Letter(tt.word); got != tt.want {
			t.Errorf("Letter(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestStoreAndLoadRoundTrip(t *testing.T) {
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := s.Store(map[string]int{"apple": 2, "banana": 1}, "http://h/", "http://h/", 0); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	entries, err := s.Load("a")
	if err != nil {
		t.Fatalf("Load(a) error: %v", err)
	}
	apple, ok := entries["apple"]
	if !ok || len(apple) != 1 {
		t.Fatalf("Load(a)[apple] = %v, want one entry", apple)
	}
	if apple[0].Frequency != 2 || apple[0].RelevantURL != "http://h/" {
		t.Errorf("unexpected entry: %+v", apple[0])
	}
}

func TestStoreSortsByWordThenFrequencyDescending(t *testing.T) {
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := s.Store(map[string]int{"apple": 1}, "http://h/1", "http://h/", 0); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if err := s.Store(map[string]int{"apple": 5, "avocado": 1}, "http://h/2", "http://h/", 1); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	entries, err := s.Load("a")
	if err != nil {
		t.Fatalf("Load(a) error: %v", err)
	}

	apple := entries["apple"]
	if len(apple) != 2 {
		t.Fatalf("expected 2 apple entries, got %d", len(apple))
	}
	if apple[0].Frequency != 5 || apple[1].Frequency != 1 {
		t.Errorf("apple entries not sorted by frequency desc: %+v", apple)
	}

	count, err := s.CountEntries("a")
	if err != nil {
		t.Fatalf("CountEntries() error: %v", err)
	}
	if count != 3 {
		t.Errorf("CountEntries(a) = %d, want 3", count)
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	content := "apple http://h/ http://h/ 0 2\nmalformed line\napple http://h/ http://h/ bad 1\n"
	if err := os.WriteFile(dir+"/a.data", []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := s.Load("a")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries["apple"]) != 1 {
		t.Errorf("Load() = %v, want exactly one well-formed entry", entries["apple"])
	}
}
