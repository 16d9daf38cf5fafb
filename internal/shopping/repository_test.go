package shopping

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
)

func seedItems(t *testing.T, env *testEnv, userID string, names ...string) []Item {
	t.Helper()
	items := make([]Item, len(names))
	for i, name := range names {
		items[i] = Item{
			ID:           uuid.NewString(),
			UserID:       userID,
			Name:         name,
			DisplayOrder: i + 1,
			CreatedAt:    time.Now().UTC(),
		}
	}
	if err := env.shopping.InsertBatch(context.Background(), items); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	return items
}

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("MaxDisplayOrderEmptyList", func(t *testing.T) {
		env := newTestEnv(t)
		max, err := env.shopping.MaxDisplayOrder(ctx, "alice")
		if err != nil {
			t.Fatalf("MaxDisplayOrder failed: %v", err)
		}
		if max != 0 {
			t.Errorf("Expected 0 for an empty list, got %d", max)
		}
	})

	t.Run("SetChecked", func(t *testing.T) {
		env := newTestEnv(t)
		items := seedItems(t, env, "alice", "Milk")

		if err := env.shopping.SetChecked(ctx, "alice", items[0].ID, true); err != nil {
			t.Fatalf("SetChecked failed: %v", err)
		}
		listed, _ := env.shopping.ListByUser(ctx, "alice")
		if !listed[0].IsChecked {
			t.Error("Expected item to be checked")
		}

		if err := env.shopping.SetChecked(ctx, "bob", items[0].ID, false); err != sql.ErrNoRows {
			t.Errorf("Expected sql.ErrNoRows for a foreign item, got %v", err)
		}
	})

	t.Run("ReorderRewritesDense", func(t *testing.T) {
		env := newTestEnv(t)
		items := seedItems(t, env, "alice", "Milk", "Bread", "Jam")

		if err := env.shopping.Reorder(ctx, "alice", []string{items[2].ID, items[0].ID, items[1].ID}); err != nil {
			t.Fatalf("Reorder failed: %v", err)
		}
		listed, err := env.shopping.ListByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		want := []string{"Jam", "Milk", "Bread"}
		for i, name := range want {
			if listed[i].Name != name {
				t.Errorf("Position %d: expected %s, got %s", i, name, listed[i].Name)
			}
			if listed[i].DisplayOrder != i+1 {
				t.Errorf("Position %d: expected dense order %d, got %d", i, i+1, listed[i].DisplayOrder)
			}
		}
	})

	t.Run("ReorderRejectsPartialPermutation", func(t *testing.T) {
		env := newTestEnv(t)
		items := seedItems(t, env, "alice", "Milk", "Bread")

		if err := env.shopping.Reorder(ctx, "alice", []string{items[0].ID}); err == nil {
			t.Fatal("Expected an error for a partial permutation, got nil")
		}
	})

	t.Run("ReorderFailureLeavesOrderIntact", func(t *testing.T) {
		env := newTestEnv(t)
		items := seedItems(t, env, "alice", "Milk", "Bread", "Jam")

		// Correctly sized, but the last id belongs to nobody, so the
		// rewrite fails after some rows have been staged.
		err := env.shopping.Reorder(ctx, "alice", []string{items[2].ID, items[0].ID, uuid.NewString()})
		if err == nil {
			t.Fatal("Expected an error for an unknown id, got nil")
		}

		listed, listErr := env.shopping.ListByUser(ctx, "alice")
		if listErr != nil {
			t.Fatalf("ListByUser failed: %v", listErr)
		}
		want := []string{"Milk", "Bread", "Jam"}
		for i, name := range want {
			if listed[i].Name != name {
				t.Errorf("Position %d: expected %s, got %s", i, name, listed[i].Name)
			}
			if listed[i].DisplayOrder != i+1 {
				t.Errorf("Position %d: expected order %d, got %d", i, i+1, listed[i].DisplayOrder)
			}
		}
	})

	t.Run("ReorderRejectsDuplicateIDs", func(t *testing.T) {
		env := newTestEnv(t)
		items := seedItems(t, env, "alice", "Milk", "Bread")

		err := env.shopping.Reorder(ctx, "alice", []string{items[0].ID, items[0].ID})
		if err == nil {
			t.Fatal("Expected an error for a duplicated id, got nil")
		}

		listed, _ := env.shopping.ListByUser(ctx, "alice")
		if len(listed) != 2 || listed[0].Name != "Milk" || listed[1].Name != "Bread" {
			t.Error("Rejected reorder must not touch the list")
		}
	})

	t.Run("DeleteScopedToOwner", func(t *testing.T) {
		env := newTestEnv(t)
		items := seedItems(t, env, "alice", "Milk")

		if err := env.shopping.Delete(ctx, "bob", items[0].ID); err != sql.ErrNoRows {
			t.Errorf("Expected sql.ErrNoRows for a foreign delete, got %v", err)
		}
		if err := env.shopping.Delete(ctx, "alice", items[0].ID); err != nil {
			t.Errorf("Delete failed: %v", err)
		}
	})
}
