package mealplan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recipe-vault/internal/apperr"
	"recipe-vault/internal/database"
)

// Repository is a database-backed store for meal plans and their items.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a new Repository.
func NewRepository(d database.DBTX) *Repository {
	return &Repository{db: d}
}

// WithTx returns a Repository that runs its queries inside tx.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

// GetOrCreate returns the plan for (userID, weekStart), creating an empty
// one if none exists yet. Re-upserting an existing week is a no-op.
func (r *Repository) GetOrCreate(ctx context.Context, userID string, weekStart time.Time) (*MealPlan, error) {
	week := NormalizeWeekStart(weekStart)
	key := week.Format(weekStartLayout)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_plans (id, user_id, week_start, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, week_start) DO NOTHING`,
		uuid.NewString(), userID, key, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert meal plan: %w", err)
	}
	return r.GetByWeek(ctx, userID, week)
}

// GetByWeek retrieves the plan for (userID, weekStart) with its items
// ordered by day-of-week ascending, then creation order. Returns
// (nil, nil) when no plan exists.
func (r *Repository) GetByWeek(ctx context.Context, userID string, weekStart time.Time) (*MealPlan, error) {
	key := NormalizeWeekStart(weekStart).Format(weekStartLayout)

	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, week_start, created_at
		FROM meal_plans WHERE user_id = ? AND week_start = ?`, userID, key)

	var plan MealPlan
	var week string
	if err := row.Scan(&plan.ID, &plan.UserID, &week, &plan.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}
	ws, err := time.ParseInLocation(weekStartLayout, week, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse week start %q: %w", week, err)
	}
	plan.WeekStart = ws

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, meal_plan_id, day_of_week, recipe_id, created_at
		FROM meal_plan_items WHERE meal_plan_id = ?
		ORDER BY day_of_week ASC, created_at ASC`, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plan items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.MealPlanID, &it.DayOfWeek, &it.RecipeID, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan item: %w", err)
		}
		plan.Items = append(plan.Items, it)
	}
	return &plan, rows.Err()
}

// AddItem appends a (day, recipe) assignment to the user's plan for the
// given week, creating the plan first if needed.
func (r *Repository) AddItem(ctx context.Context, userID string, weekStart time.Time, dayOfWeek int, recipeID string) (*Item, error) {
	plan, err := r.GetOrCreate(ctx, userID, weekStart)
	if err != nil {
		return nil, apperr.Infra(err, "failed to resolve meal plan")
	}

	it := Item{
		ID:         uuid.NewString(),
		MealPlanID: plan.ID,
		DayOfWeek:  dayOfWeek,
		RecipeID:   recipeID,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO meal_plan_items (id, meal_plan_id, day_of_week, recipe_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		it.ID, it.MealPlanID, it.DayOfWeek, it.RecipeID, it.CreatedAt,
	)
	if err != nil {
		return nil, apperr.Infra(err, "failed to insert meal plan item")
	}
	return &it, nil
}

// RemoveItem deletes an item after confirming the item's parent plan
// belongs to the caller.
func (r *Repository) RemoveItem(ctx context.Context, userID, itemID string) error {
	row := r.db.QueryRowContext(ctx, `
		SELECT p.user_id FROM meal_plan_items i
		JOIN meal_plans p ON p.id = i.meal_plan_id
		WHERE i.id = ?`, itemID)

	var owner string
	if err := row.Scan(&owner); err != nil {
		if err == sql.ErrNoRows {
			return apperr.New(apperr.CodeNotFound, "meal plan item not found")
		}
		return apperr.Infra(err, "failed to load meal plan item")
	}
	if owner != userID {
		return apperr.New(apperr.CodeForbidden, "meal plan item belongs to another user")
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM meal_plan_items WHERE id = ?`, itemID); err != nil {
		return apperr.Infra(err, "failed to delete meal plan item")
	}
	return nil
}

// Entries returns the plan's items joined with their recipes, in the
// plan's canonical order (day ascending, then creation order). The
// ordering is what makes shopping-list generation deterministic.
func (r *Repository) Entries(ctx context.Context, planID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.day_of_week, r.id, r.user_id, r.title, r.ingredients
		FROM meal_plan_items i
		JOIN recipes r ON r.id = i.recipe_id
		WHERE i.meal_plan_id = ?
		ORDER BY i.day_of_week ASC, i.created_at ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plan entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ingredients string
		if err := rows.Scan(&e.ItemID, &e.DayOfWeek, &e.Recipe.ID, &e.Recipe.UserID, &e.Recipe.Title, &ingredients); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(ingredients), &e.Recipe.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients for recipe %s: %w", e.Recipe.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
