package relation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"recipe-vault/internal/database"
)

// Repository is a database-backed repository for derivation edges.
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

// InsertBatch inserts a set of edges. Callers needing all-or-nothing
// semantics run it through WithTx.
func (r *Repository) InsertBatch(ctx context.Context, edges []Relation) error {
	for _, e := range edges {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO recipe_relations (id, parent_recipe_id, child_recipe_id, quantity, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.ParentRecipeID, e.ChildRecipeID, e.Quantity, e.Notes, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert relation %s -> %s: %w", e.ParentRecipeID, e.ChildRecipeID, err)
		}
	}
	return nil
}

// GetByID retrieves a single edge. Returns (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*Relation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, parent_recipe_id, child_recipe_id, quantity, notes, created_at
		FROM recipe_relations WHERE id = ?`, id)

	var rel Relation
	if err := row.Scan(&rel.ID, &rel.ParentRecipeID, &rel.ChildRecipeID, &rel.Quantity, &rel.Notes, &rel.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get relation by ID: %w", err)
	}
	return &rel, nil
}

// ListByParent returns all edges whose parent is the given recipe.
func (r *Repository) ListByParent(ctx context.Context, parentRecipeID string) ([]Relation, error) {
	return r.list(ctx, `
		SELECT id, parent_recipe_id, child_recipe_id, quantity, notes, created_at
		FROM recipe_relations WHERE parent_recipe_id = ? ORDER BY created_at ASC`, parentRecipeID)
}

// ChildrenOf returns the edges leaving any of the given parents in one
// query, so a traversal issues one round trip per frontier rather than
// one per node.
func (r *Repository) ChildrenOf(ctx context.Context, parentRecipeIDs []string) ([]Relation, error) {
	if len(parentRecipeIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id, parent_recipe_id, child_recipe_id, quantity, notes, created_at
		FROM recipe_relations WHERE parent_recipe_id IN (%s)`, placeholders(len(parentRecipeIDs)))
	return r.list(ctx, query, toArgs(parentRecipeIDs)...)
}

// ParentsOf is the reverse of ChildrenOf: edges arriving at any of the
// given children, batched the same way.
func (r *Repository) ParentsOf(ctx context.Context, childRecipeIDs []string) ([]Relation, error) {
	if len(childRecipeIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id, parent_recipe_id, child_recipe_id, quantity, notes, created_at
		FROM recipe_relations WHERE child_recipe_id IN (%s)`, placeholders(len(childRecipeIDs)))
	return r.list(ctx, query, toArgs(childRecipeIDs)...)
}

// Delete removes a single edge. Returns sql.ErrNoRows when absent.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipe_relations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]Relation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	defer rows.Close()

	var rels []Relation
	for rows.Next() {
		var rel Relation
		if err := rows.Scan(&rel.ID, &rel.ParentRecipeID, &rel.ChildRecipeID, &rel.Quantity, &rel.Notes, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relation row: %w", err)
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
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
