package shopping

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"recipe-vault/internal/apperr"
	"recipe-vault/internal/logger"
	"recipe-vault/internal/mealplan"
	"recipe-vault/internal/recipe"
)

// Aggregator turns a week's meal plan into shopping items: it merges
// ingredient lists across every planned recipe by normalized name and
// appends the result to the user's list in one batch.
//
// Generation is deliberately additive: running it twice for the same
// plan produces two disjoint sets of items so the user can top up
// supplies. Callers should warn before re-invoking it.
type Aggregator struct {
	db       *sql.DB
	plans    *mealplan.Repository
	shopping *Repository
	log      *logger.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(db *sql.DB, plans *mealplan.Repository, shopping *Repository, log *logger.Logger) *Aggregator {
	return &Aggregator{
		db:       db,
		plans:    plans,
		shopping: shopping,
		log:      log,
	}
}

// GenerateFromMealPlan aggregates the ingredients of every recipe in the
// user's plan for the given week and appends them to the shopping list.
// Duplicate ingredients merge by trimmed, case-folded name with the
// first-seen casing kept; the iteration order (day ascending, then item
// creation order) is deterministic for a given stored plan, and the new
// items' display orders follow it starting after the user's current
// maximum. Returns the number of items created.
func (a *Aggregator) GenerateFromMealPlan(ctx context.Context, userID string, weekStart time.Time) (int, error) {
	plan, err := a.plans.GetByWeek(ctx, userID, weekStart)
	if err != nil {
		return 0, apperr.Infra(err, "failed to load meal plan")
	}
	if plan == nil {
		return 0, apperr.New(apperr.CodeEmptyPlan, "no meal plan for this week")
	}

	entries, err := a.plans.Entries(ctx, plan.ID)
	if err != nil {
		return 0, apperr.Infra(err, "failed to load meal plan entries")
	}
	if len(entries) == 0 {
		return 0, apperr.New(apperr.CodeEmptyPlan, "meal plan has no recipes")
	}

	merged := mergeIngredients(entries)
	if len(merged) == 0 {
		return 0, apperr.New(apperr.CodeEmptyPlan, "planned recipes have no ingredients")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Infra(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	repo := a.shopping.WithTx(tx)
	max, err := repo.MaxDisplayOrder(ctx, userID)
	if err != nil {
		return 0, apperr.Infra(err, "failed to read display order")
	}

	now := time.Now().UTC()
	items := make([]Item, len(merged))
	for i, ing := range merged {
		items[i] = Item{
			ID:           uuid.NewString(),
			UserID:       userID,
			Name:         ing.name,
			Memo:         ing.memo,
			DisplayOrder: max + i + 1,
			CreatedAt:    now,
		}
	}
	if err := repo.InsertBatch(ctx, items); err != nil {
		return 0, apperr.Infra(err, "failed to insert shopping items")
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Infra(err, "failed to commit shopping items")
	}

	a.log.Info("generated shopping list", "user_id", userID,
		"week_start", mealplan.NormalizeWeekStart(weekStart).Format("2006-01-02"), "items", len(items))
	return len(items), nil
}

type mergedIngredient struct {
	name string
	memo *string
}

// mergeIngredients deduplicates by trimmed, lower-cased ingredient name
// across all entries, preserving first-occurrence order and casing.
func mergeIngredients(entries []mealplan.Entry) []mergedIngredient {
	seen := make(map[string]bool)
	var out []mergedIngredient
	for _, e := range entries {
		for _, ing := range e.Recipe.Ingredients {
			name := strings.TrimSpace(ing.Name)
			key := strings.ToLower(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, mergedIngredient{name: name, memo: synthesizeMemo(ing)})
		}
	}
	return out
}

// synthesizeMemo joins the non-empty unit and notes fields with a single
// space. Both empty means no memo at all, never an empty string.
func synthesizeMemo(ing recipe.Ingredient) *string {
	var parts []string
	if u := strings.TrimSpace(ing.Unit); u != "" {
		parts = append(parts, u)
	}
	if n := strings.TrimSpace(ing.Notes); n != "" {
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return nil
	}
	memo := strings.Join(parts, " ")
	return &memo
}
