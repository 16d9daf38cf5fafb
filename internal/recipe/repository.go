package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recipe-vault/internal/database"
)

// Repository is a database-backed repository for recipes.
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

// Create inserts a new recipe.
func (r *Repository) Create(ctx context.Context, rec *Recipe) error {
	ingredients, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes (id, user_id, title, parent_recipe_id, ingredients, steps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Title, rec.ParentRecipeID, string(ingredients), string(steps), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// Update rewrites a recipe's mutable fields and bumps updated_at.
func (r *Repository) Update(ctx context.Context, rec *Recipe) error {
	ingredients, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	rec.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE recipes
		SET title = ?, parent_recipe_id = ?, ingredients = ?, steps = ?, updated_at = ?
		WHERE id = ?`,
		rec.Title, rec.ParentRecipeID, string(ingredients), string(steps), rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Get retrieves a recipe by its ID. Returns (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Recipe, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, parent_recipe_id, ingredients, steps, created_at, updated_at
		FROM recipes WHERE id = ?`, id)

	rec, err := scanRecipe(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}
	return rec, nil
}

// GetByIDs retrieves multiple recipes by id, regardless of owner. Callers
// use the returned owner ids to distinguish absent from foreign recipes.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, title, parent_recipe_id, ingredients, steps, created_at, updated_at
		FROM recipes WHERE id IN (%s)`, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipes by IDs: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		recipes = append(recipes, *rec)
	}
	return recipes, rows.Err()
}

// ListByUser retrieves a user's recipes, minus excludeIDs, optionally
// filtered by a case-insensitive substring match on the title, ordered by
// most recently updated first.
func (r *Repository) ListByUser(ctx context.Context, userID string, excludeIDs []string, search string) ([]Recipe, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, title, parent_recipe_id, ingredients, steps, created_at, updated_at
		FROM recipes WHERE user_id = ?`)
	args := []interface{}{userID}

	if len(excludeIDs) > 0 {
		sb.WriteString(fmt.Sprintf(" AND id NOT IN (%s)", placeholders(len(excludeIDs))))
		args = append(args, toArgs(excludeIDs)...)
	}
	if search != "" {
		sb.WriteString(" AND instr(lower(title), lower(?)) > 0")
		args = append(args, search)
	}
	sb.WriteString(" ORDER BY updated_at DESC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		recipes = append(recipes, *rec)
	}
	return recipes, rows.Err()
}

// Delete removes a recipe. Relation edges and meal-plan items referencing
// it go with it via foreign-key cascades.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecipe(row rowScanner) (*Recipe, error) {
	var rec Recipe
	var parentID sql.NullString
	var ingredients, steps string

	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Title, &parentID, &ingredients, &steps, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		rec.ParentRecipeID = &parentID.String
	}
	if err := json.Unmarshal([]byte(ingredients), &rec.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &rec.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	return &rec, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
