package checks

import (
	"context"
	"testing"

	"eliwatch/internal/source"
)

type dummyCheck struct {
	id string
}

func (c *dummyCheck) ID() string          { return c.id }
func (c *dummyCheck) Title() string       { return "Dummy Check" }
func (c *dummyCheck) Description() string { return "Does nothing" }
func (c *dummyCheck) Evaluate(ctx context.Context, src *source.Source, p Prober) (Result, error) {
	return Result{}, nil
}

func TestRegistry(t *testing.T) {
	mu.Lock()
	saved := registry
	registry = make(map[string]Check)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		registry = saved
		mu.Unlock()
	})

	Register(&dummyCheck{id: "check2"})
	Register(&dummyCheck{id: "check1"})

	all := List()
	if len(all) != 2 || all[0].ID() != "check1" {
		t.Fatalf("expected sorted [check1 check2], got %v", all)
	}
	if _, ok := all[0].(*AllowListWrapper); !ok {
		t.Errorf("registered checks must be wrapped, got %T", all[0])
	}

	selected, err := Resolve("check1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(selected) != 1 || selected[0].ID() != "check1" {
		t.Errorf("expected check1, got %v", selected)
	}

	selected, err = Resolve(" check2 , check1,check2 ")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(selected) != 2 || selected[0].ID() != "check2" {
		t.Errorf("expected [check2 check1], got %v", selected)
	}

	selected, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(selected) != 2 {
		t.Errorf("expected 2 checks, got %d", len(selected))
	}

	if _, err := Resolve("unknown"); err == nil {
		t.Error("expected error for unknown check")
	}

	if _, ok := Lookup("check1"); !ok {
		t.Error("Lookup should find check1")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register(&dummyCheck{id: "check1"})
}
