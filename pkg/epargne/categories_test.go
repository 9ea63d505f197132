package epargne

import (
	"sort"
	"testing"
)

func TestDefaultCategoriesSeeded(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	categories, err := core.ListCategories()
	assertNoError(t, err, "ListCategories")
	if len(categories) != len(DefaultCategories) {
		t.Fatalf("expected %d seeded categories, got %d", len(DefaultCategories), len(categories))
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("categories not sorted: %v", names)
	}
	for _, want := range DefaultCategories {
		found := false
		for _, got := range names {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing seeded category %q", want)
		}
	}
}

func TestAddCategory(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	id, err := core.AddCategory("  Crypto  ")
	assertNoError(t, err, "AddCategory")
	if id == 0 {
		t.Fatal("expected a category id")
	}

	_, err = core.AddCategory("Crypto")
	assertErrorCode(t, err, ErrCodeDuplicate, "duplicate name after trim")

	_, err = core.AddCategory("   ")
	assertErrorCode(t, err, ErrCodeInvalidParameters, "blank name")
}

func TestDeleteCategory(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := core.AddCategory("Crypto")
	assertNoError(t, err, "AddCategory")
	assertNoError(t, core.DeleteCategory("Crypto"), "DeleteCategory")
	assertErrorCode(t, core.DeleteCategory("Crypto"), ErrCodeNotFound, "second delete")
}

func TestDeleteCategoryRefusedWhileReferenced(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 1000, 3, 5, 0)
	assertErrorCode(t, core.DeleteCategory(sim.Category), ErrCodeInvalidParameters, "referenced category")

	// Once the simulation is gone the category can be removed.
	assertNoError(t, core.DeleteSimulation("alice", sim.ID), "DeleteSimulation")
	assertNoError(t, core.DeleteCategory(sim.Category), "delete once unreferenced")
}
