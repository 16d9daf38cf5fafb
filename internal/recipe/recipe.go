package recipe

import "time"

// Ingredient is a single line of a recipe's ingredient list. Unit is
// free-text ("200g", "2 tbsp") and Notes carries anything that is neither
// name nor quantity.
type Ingredient struct {
	Name  string `json:"name"`
	Unit  string `json:"unit,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Step is a single preparation instruction.
type Step struct {
	OrderIndex   int    `json:"order_index"`
	Instruction  string `json:"instruction"`
	TimerSeconds *int   `json:"timer_seconds,omitempty"`
}

// Recipe is a user-owned recipe. ParentRecipeID is a convenience pointer
// to at most one explicit derivation parent; the full many-to-many
// derivation graph lives in the relation package.
type Recipe struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	Title          string       `json:"title"`
	Ingredients    []Ingredient `json:"ingredients"`
	Steps          []Step       `json:"steps"`
	ParentRecipeID *string      `json:"parent_recipe_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
