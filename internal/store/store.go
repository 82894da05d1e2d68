package store

import (
	"context"
	"errors"

	"github.com/taskhive/todo-api/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist or is not
	// owned by the caller. The two cases are deliberately
	// indistinguishable so item existence never leaks across users.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when registration collides with
	// an existing username.
	ErrDuplicateUsername = errors.New("username already exists")
)

// UserStore owns user records.
type UserStore interface {
	// FindByUsername returns the user or ErrNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// Create assigns a unique id and persists the user. Fails with
	// ErrDuplicateUsername on a username collision.
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// ItemStore provides CRUD over task items. Every operation takes the
// resolved owner id from the verified identity and uses it as the sole
// ownership filter; client-supplied owner ids are never trusted.
type ItemStore interface {
	// ListByOwner returns all items owned by ownerID, in insertion order.
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Item, error)
	// Create assigns a unique id, stamps the item with ownerID and persists it.
	Create(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error)
	// FindOwned looks up by (id == itemID AND ownerId == ownerID) and
	// returns ErrNotFound otherwise.
	FindOwned(ctx context.Context, ownerID, itemID int64) (*models.Item, error)
	// Update applies the non-nil patch fields to an owned item and
	// returns the updated record, or ErrNotFound.
	Update(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error)
	// Delete removes an owned item and returns the deleted record, or
	// ErrNotFound.
	Delete(ctx context.Context, ownerID, itemID int64) (*models.Item, error)
}

// UsernameExists reports whether a username is already taken.
func UsernameExists(ctx context.Context, users UserStore, username string) (bool, error) {
	_, err := users.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
