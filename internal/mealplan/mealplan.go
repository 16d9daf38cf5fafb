package mealplan

import (
	"time"

	"recipe-vault/internal/recipe"
)

// MealPlan is one user's recipe assignments for one calendar week, keyed
// by the week's normalized start date. Plans are created lazily on first
// assignment and never deleted, only emptied.
type MealPlan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	WeekStart time.Time `json:"week_start"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Item assigns one recipe to one day of the plan's week (0 = Monday).
type Item struct {
	ID         string    `json:"id"`
	MealPlanID string    `json:"meal_plan_id"`
	DayOfWeek  int       `json:"day_of_week"`
	RecipeID   string    `json:"recipe_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Entry is a plan item joined with its recipe, in the plan's canonical
// order. The shopping aggregator iterates these.
type Entry struct {
	ItemID    string
	DayOfWeek int
	Recipe    recipe.Recipe
}

// NormalizeWeekStart truncates t to the Monday of its ISO week at
// midnight UTC, so any timestamp inside a week addresses the same plan.
func NormalizeWeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := t.Truncate(24 * time.Hour)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

const weekStartLayout = "2006-01-02"
