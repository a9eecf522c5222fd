package template

import "testing"

func TestDefaultsSeededOnFirstOpen(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	all, err := store.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	for _, grade := range []string{"primary", "middle", "high"} {
		if len(all[grade]) != 3 {
			t.Fatalf("expected 3 seeded templates for %s, got %d", grade, len(all[grade]))
		}
	}
}

func TestAddDeleteIncrement(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	tpl, err := store.Add("primary", "再接再厉！", []string{"鼓励"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if tpl.ID == "" || tpl.CreatedAt == nil {
		t.Fatalf("expected assigned id and timestamp: %+v", tpl)
	}

	if err := store.IncrementUsage("primary", tpl.ID); err != nil {
		t.Fatalf("IncrementUsage() error = %v", err)
	}
	all, _ := store.All()
	found := false
	for _, got := range all["primary"] {
		if got.ID == tpl.ID {
			found = true
			if got.UsageCount != 1 {
				t.Fatalf("expected usage 1, got %d", got.UsageCount)
			}
		}
	}
	if !found {
		t.Fatal("added template not persisted")
	}

	if err := store.Delete("primary", tpl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	all, _ = store.All()
	for _, got := range all["primary"] {
		if got.ID == tpl.ID {
			t.Fatal("template not deleted")
		}
	}

	// Missing grade or id: no-op.
	if err := store.Delete("kindergarten", "t1"); err != nil {
		t.Fatalf("Delete(missing grade) error = %v", err)
	}
	if err := store.IncrementUsage("primary", "tpl-nope"); err != nil {
		t.Fatalf("IncrementUsage(missing) error = %v", err)
	}
}
