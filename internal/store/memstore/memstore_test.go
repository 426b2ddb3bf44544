package memstore

import (
	"testing"

	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, New())
}

func TestIsolation(t *testing.T) {
	s := New()
	id, err := s.Add(&models.Todo{Title: "original"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := s.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Title = "mutated copy"

	again, err := s.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Title != "original" {
		t.Errorf("caller mutation leaked into store: %q", again.Title)
	}
}
