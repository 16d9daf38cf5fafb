package shopping

import (
	"context"
	"database/sql"
	"fmt"

	"recipe-vault/internal/database"
)

// Repository handles persistence of shopping items.
type Repository struct {
	db   database.DBTX
	base *sql.DB
}

// NewRepository creates a new shopping item repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, base: d}
}

// WithTx returns a Repository that runs its queries inside tx.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, base: r.base}
}

// MaxDisplayOrder returns the user's current highest display order, or 0
// when the list is empty.
func (r *Repository) MaxDisplayOrder(ctx context.Context, userID string) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(display_order), 0) FROM shopping_items WHERE user_id = ?`, userID)
	var max int
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max display order: %w", err)
	}
	return max, nil
}

// InsertBatch inserts items in order. Callers needing all-or-nothing
// semantics run it through WithTx.
func (r *Repository) InsertBatch(ctx context.Context, items []Item) error {
	for _, it := range items {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO shopping_items (id, user_id, name, memo, is_checked, display_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.UserID, it.Name, it.Memo, it.IsChecked, it.DisplayOrder, it.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert shopping item %q: %w", it.Name, err)
		}
	}
	return nil
}

// ListByUser returns the user's shopping list in display order.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, memo, is_checked, display_order, created_at
		FROM shopping_items WHERE user_id = ?
		ORDER BY display_order ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.UserID, &it.Name, &it.Memo, &it.IsChecked, &it.DisplayOrder, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shopping item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetChecked flips an item's checked flag, scoped to the owning user.
// Returns sql.ErrNoRows when the item is absent or foreign.
func (r *Repository) SetChecked(ctx context.Context, userID, itemID string, checked bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shopping_items SET is_checked = ? WHERE id = ? AND user_id = ?`,
		checked, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to update shopping item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an item, scoped to the owning user.
func (r *Repository) Delete(ctx context.Context, userID, itemID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM shopping_items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete shopping item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Reorder rewrites the user's display orders to match orderedIDs, dense
// from 1. The permutation must name every item exactly once. Everything
// runs in one transaction, with orders written negative first and then
// flipped, so neither a mid-loop failure nor a transient collision with
// the per-user uniqueness constraint can surface to readers.
func (r *Repository) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return fmt.Errorf("reorder lists item %s more than once", id)
		}
		seen[id] = true
	}

	tx, err := r.base.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder transaction: %w", err)
	}
	defer tx.Rollback()

	count := 0
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shopping_items WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count shopping items: %w", err)
	}
	if count != len(orderedIDs) {
		return fmt.Errorf("reorder must list all %d items, got %d", count, len(orderedIDs))
	}

	for i, id := range orderedIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE shopping_items SET display_order = ? WHERE id = ? AND user_id = ?`,
			-(i + 1), id, userID)
		if err != nil {
			return fmt.Errorf("failed to reorder shopping item %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE shopping_items SET display_order = -display_order WHERE user_id = ? AND display_order < 0`,
		userID); err != nil {
		return fmt.Errorf("failed to finalize reorder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}
