package relation

import "time"

// Relation is a directed derivation edge meaning "the child recipe uses
// the parent recipe as a sub-recipe". Edges are never mutated in place:
// metadata edits replace the row, and deleting either endpoint recipe
// removes the edge.
type Relation struct {
	ID             string    `json:"id"`
	ParentRecipeID string    `json:"parent_recipe_id"`
	ChildRecipeID  string    `json:"child_recipe_id"`
	Quantity       *string   `json:"quantity,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChildSpec describes one proposed edge in an attach batch.
type ChildSpec struct {
	RecipeID string  `json:"recipe_id"`
	Quantity *string `json:"quantity,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}
