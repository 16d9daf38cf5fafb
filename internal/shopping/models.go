package shopping

import "time"

// Item is one line of a user's shopping list. Memo is nil rather than
// the empty string when there is nothing to say. DisplayOrder values are
// unique per user and strictly increasing on append, so list order
// survives inserts and drag-reorder alike.
type Item struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Memo         *string   `json:"memo,omitempty"`
	IsChecked    bool      `json:"is_checked"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}
