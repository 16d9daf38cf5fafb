package shopping

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"recipe-vault/internal/apperr"
	"recipe-vault/internal/database"
	"recipe-vault/internal/logger"
	"recipe-vault/internal/mealplan"
	"recipe-vault/internal/recipe"
)

type testEnv struct {
	db         *database.DB
	recipes    *recipe.Repository
	plans      *mealplan.Repository
	shopping   *Repository
	aggregator *Aggregator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	plans := mealplan.NewRepository(db.SQL)
	shoppingRepo := NewRepository(db.SQL)
	return &testEnv{
		db:         db,
		recipes:    recipe.NewRepository(db.SQL),
		plans:      plans,
		shopping:   shoppingRepo,
		aggregator: NewAggregator(db.SQL, plans, shoppingRepo, log),
	}
}

func (e *testEnv) addRecipe(t *testing.T, userID, title string, ingredients ...recipe.Ingredient) string {
	t.Helper()
	rec := &recipe.Recipe{ID: uuid.NewString(), UserID: userID, Title: title, Ingredients: ingredients}
	if err := e.recipes.Create(context.Background(), rec); err != nil {
		t.Fatalf("Failed to create recipe %q: %v", title, err)
	}
	return rec.ID
}

var week = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC) // a Monday

func TestGenerateFromMealPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("MergesCaseInsensitivelyKeepingFirstCasing", func(t *testing.T) {
		env := newTestEnv(t)
		r1 := env.addRecipe(t, "alice", "Pancakes",
			recipe.Ingredient{Name: "Flour", Unit: "200g"},
			recipe.Ingredient{Name: "Egg"},
		)
		r2 := env.addRecipe(t, "alice", "Shortbread",
			recipe.Ingredient{Name: "flour", Unit: "100g"},
			recipe.Ingredient{Name: "Butter"},
		)
		if _, err := env.plans.AddItem(ctx, "alice", week, 0, r1); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if _, err := env.plans.AddItem(ctx, "alice", week, 1, r2); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}

		created, err := env.aggregator.GenerateFromMealPlan(ctx, "alice", week)
		if err != nil {
			t.Fatalf("GenerateFromMealPlan failed: %v", err)
		}
		if created != 3 {
			t.Fatalf("Expected 3 created items, got %d", created)
		}

		items, err := env.shopping.ListByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("Expected 3 items, got %d", len(items))
		}
		if items[0].Name != "Flour" {
			t.Errorf("Expected first-seen casing 'Flour', got '%s'", items[0].Name)
		}
		if items[0].Memo == nil || *items[0].Memo != "200g" {
			t.Errorf("Expected memo '200g' from the winning occurrence, got %v", items[0].Memo)
		}
		if items[1].Name != "Egg" || items[1].Memo != nil {
			t.Errorf("Expected 'Egg' with no memo, got '%s' memo=%v", items[1].Name, items[1].Memo)
		}
		if items[2].Name != "Butter" || items[2].Memo != nil {
			t.Errorf("Expected 'Butter' with no memo, got '%s' memo=%v", items[2].Name, items[2].Memo)
		}
	})

	t.Run("AdditiveAcrossRuns", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.addRecipe(t, "alice", "Soup", recipe.Ingredient{Name: "Leek"}, recipe.Ingredient{Name: "Potato"})
		if _, err := env.plans.AddItem(ctx, "alice", week, 2, r); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}

		// Generation is intentionally additive, not a union with prior
		// runs: the user may be topping up supplies.
		for i := 0; i < 2; i++ {
			if _, err := env.aggregator.GenerateFromMealPlan(ctx, "alice", week); err != nil {
				t.Fatalf("Run %d failed: %v", i+1, err)
			}
		}
		items, err := env.shopping.ListByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(items) != 4 {
			t.Errorf("Expected the second run to double the items to 4, got %d", len(items))
		}
	})

	t.Run("RepeatedRecipeDedupedWithinOneRun", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.addRecipe(t, "alice", "Omelette", recipe.Ingredient{Name: "Egg"}, recipe.Ingredient{Name: "Chives"})
		for day := 0; day < 3; day++ {
			if _, err := env.plans.AddItem(ctx, "alice", week, day, r); err != nil {
				t.Fatalf("AddItem failed: %v", err)
			}
		}

		created, err := env.aggregator.GenerateFromMealPlan(ctx, "alice", week)
		if err != nil {
			t.Fatalf("GenerateFromMealPlan failed: %v", err)
		}
		if created != 2 {
			t.Errorf("Expected 2 items for a recipe planned three times, got %d", created)
		}
	})

	t.Run("NewItemsSortAfterExisting", func(t *testing.T) {
		env := newTestEnv(t)
		existing := []Item{
			{ID: uuid.NewString(), UserID: "alice", Name: "Salt", DisplayOrder: 1, CreatedAt: time.Now().UTC()},
			{ID: uuid.NewString(), UserID: "alice", Name: "Pepper", DisplayOrder: 7, CreatedAt: time.Now().UTC()},
		}
		if err := env.shopping.InsertBatch(ctx, existing); err != nil {
			t.Fatalf("InsertBatch failed: %v", err)
		}

		r := env.addRecipe(t, "alice", "Stew",
			recipe.Ingredient{Name: "Beef", Unit: "500g"},
			recipe.Ingredient{Name: "Carrot"},
		)
		if _, err := env.plans.AddItem(ctx, "alice", week, 4, r); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if _, err := env.aggregator.GenerateFromMealPlan(ctx, "alice", week); err != nil {
			t.Fatalf("GenerateFromMealPlan failed: %v", err)
		}

		items, err := env.shopping.ListByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(items) != 4 {
			t.Fatalf("Expected 4 items, got %d", len(items))
		}
		if items[2].Name != "Beef" || items[2].DisplayOrder != 8 {
			t.Errorf("Expected 'Beef' at order 8, got '%s' at %d", items[2].Name, items[2].DisplayOrder)
		}
		if items[3].Name != "Carrot" || items[3].DisplayOrder != 9 {
			t.Errorf("Expected 'Carrot' at order 9, got '%s' at %d", items[3].Name, items[3].DisplayOrder)
		}
	})

	t.Run("DeterministicOrderByDayThenCreation", func(t *testing.T) {
		env := newTestEnv(t)
		sunday := env.addRecipe(t, "alice", "Roast", recipe.Ingredient{Name: "Chicken"})
		monday := env.addRecipe(t, "alice", "Toast", recipe.Ingredient{Name: "Bread"})
		// Insert the later day first; aggregation order must follow the
		// plan's day ordering, not insertion order.
		if _, err := env.plans.AddItem(ctx, "alice", week, 6, sunday); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if _, err := env.plans.AddItem(ctx, "alice", week, 0, monday); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}

		if _, err := env.aggregator.GenerateFromMealPlan(ctx, "alice", week); err != nil {
			t.Fatalf("GenerateFromMealPlan failed: %v", err)
		}
		items, err := env.shopping.ListByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(items) != 2 || items[0].Name != "Bread" || items[1].Name != "Chicken" {
			t.Errorf("Expected [Bread Chicken] in day order, got %v", itemNames(items))
		}
	})

	t.Run("MemoJoinsUnitAndNotes", func(t *testing.T) {
		env := newTestEnv(t)
		r := env.addRecipe(t, "alice", "Curry",
			recipe.Ingredient{Name: "Ginger", Unit: "1 knob", Notes: "fresh"},
		)
		if _, err := env.plans.AddItem(ctx, "alice", week, 3, r); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if _, err := env.aggregator.GenerateFromMealPlan(ctx, "alice", week); err != nil {
			t.Fatalf("GenerateFromMealPlan failed: %v", err)
		}
		items, _ := env.shopping.ListByUser(ctx, "alice")
		if len(items) != 1 || items[0].Memo == nil || *items[0].Memo != "1 knob fresh" {
			t.Fatalf("Expected memo '1 knob fresh', got %v", items[0].Memo)
		}
	})

	t.Run("MissingPlanIsEmptyPlan", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.aggregator.GenerateFromMealPlan(ctx, "alice", week)
		if !apperr.IsCode(err, apperr.CodeEmptyPlan) {
			t.Fatalf("Expected empty_plan, got %v", err)
		}
	})

	t.Run("PlanWithNoItemsIsEmptyPlan", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.plans.GetOrCreate(ctx, "alice", week); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		_, err := env.aggregator.GenerateFromMealPlan(ctx, "alice", week)
		if !apperr.IsCode(err, apperr.CodeEmptyPlan) {
			t.Fatalf("Expected empty_plan, got %v", err)
		}
		items, _ := env.shopping.ListByUser(ctx, "alice")
		if len(items) != 0 {
			t.Errorf("Rejected generation must create nothing, got %d items", len(items))
		}
	})
}

func itemNames(items []Item) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}
