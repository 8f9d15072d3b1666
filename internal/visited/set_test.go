package visited_test

import (
	"testing"

	"github.com/lukemcguire/webdex/internal/visited"
)

func TestSetVisitIfNew(t *testing.T) {
	s := visited.NewSet()

	if !s.VisitIfNew("https://a/") {
		t.Fatal("first visit should be new")
	}
	if s.VisitIfNew("https://a/") {
		t.Fatal("second visit should not be new")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSetContainsAndAdd(t *testing.T) {
	s := visited.NewSet()
	if s.Contains("https://a/") {
		t.Fatal("empty set should not contain url")
	}
	s.Add("https://a/")
	if !s.Contains("https://a/") {
		t.Fatal("set should contain url after Add")
	}
}

func TestAcceleratedSetMatchesExactSet(t *testing.T) {
	s, err := visited.NewAcceleratedSet()
	if err != nil {
		t.Fatalf("NewAcceleratedSet() error: %v", err)
	}
	defer s.Close()

	if !s.VisitIfNew("https://a/") {
		t.Fatal("first visit should be new")
	}
	if s.VisitIfNew("https://a/") {
		t.Fatal("second visit should not be new despite bloom false positives being possible")
	}
	if !s.Contains("https://a/") {
		t.Fatal("accelerated set should still contain url exactly")
	}
	if s.Contains("https://never-added/") {
		t.Fatal("accelerated set should not contain a url it never saw")
	}
}

func TestAcceleratedSetClose(t *testing.T) {
	s, err := visited.NewAcceleratedSet()
	if err != nil {
		t.Fatalf("NewAcceleratedSet() error: %v", err)
	}
	s.Add("https://a/")
	if err := s.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
