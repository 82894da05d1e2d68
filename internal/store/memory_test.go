package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/todo-api/internal/models"
)

func TestMemoryUsers_CreateAssignsSequentialIDs(t *testing.T) {
	mem := NewMemory()
	users := mem.Users()
	ctx := context.Background()

	alice, err := users.Create(ctx, &models.User{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.ID)

	bob, err := users.Create(ctx, &models.User{Username: "bob", Password: "pw2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), bob.ID)
}

func TestMemoryUsers_DuplicateUsername(t *testing.T) {
	mem := NewMemory()
	users := mem.Users()
	ctx := context.Background()

	first, err := users.Create(ctx, &models.User{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	_, err = users.Create(ctx, &models.User{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	// The original record is untouched.
	found, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, "pw1", found.Password)
}

func TestMemoryUsers_FindByUsername(t *testing.T) {
	mem := NewMemory()
	users := mem.Users()
	ctx := context.Background()

	_, err := users.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := UsernameExists(ctx, users, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = users.Create(ctx, &models.User{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	exists, err = UsernameExists(ctx, users, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryItems_OwnershipIsolation(t *testing.T) {
	mem := NewMemory()
	items := mem.Items()
	ctx := context.Background()

	created, err := items.Create(ctx, 1, &models.Item{Name: "buy milk"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int64(1), created.OwnerID)

	// Owner sees the item.
	mine, err := items.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "buy milk", mine[0].Name)

	// Another user sees nothing and cannot touch it.
	theirs, err := items.ListByOwner(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = items.FindOwned(ctx, 2, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = items.Update(ctx, 2, created.ID, models.ItemPatch{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = items.Delete(ctx, 2, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryItems_CreateIgnoresClientOwner(t *testing.T) {
	mem := NewMemory()
	items := mem.Items()
	ctx := context.Background()

	created, err := items.Create(ctx, 7, &models.Item{Name: "x", OwnerID: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.OwnerID)
}

func TestMemoryItems_ListInsertionOrder(t *testing.T) {
	mem := NewMemory()
	items := mem.Items()
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		_, err := items.Create(ctx, 1, &models.Item{Name: name})
		require.NoError(t, err)
	}

	listed, err := items.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "first", listed[0].Name)
	assert.Equal(t, "second", listed[1].Name)
	assert.Equal(t, "third", listed[2].Name)
}

func TestMemoryItems_UpdatePatchSemantics(t *testing.T) {
	mem := NewMemory()
	items := mem.Items()
	ctx := context.Background()

	created, err := items.Create(ctx, 1, &models.Item{Name: "buy milk"})
	require.NoError(t, err)

	// Patch completion only; name survives.
	done := true
	updated, err := items.Update(ctx, 1, created.ID, models.ItemPatch{IsComplete: &done})
	require.NoError(t, err)
	assert.Equal(t, "buy milk", updated.Name)
	assert.True(t, updated.IsComplete)

	// Patch name only; completion survives.
	name := "buy oat milk"
	updated, err = items.Update(ctx, 1, created.ID, models.ItemPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "buy oat milk", updated.Name)
	assert.True(t, updated.IsComplete)

	// Empty patch is a no-op.
	updated, err = items.Update(ctx, 1, created.ID, models.ItemPatch{})
	require.NoError(t, err)
	assert.Equal(t, "buy oat milk", updated.Name)
	assert.True(t, updated.IsComplete)
}

func TestMemoryItems_DeleteIsTerminal(t *testing.T) {
	mem := NewMemory()
	items := mem.Items()
	ctx := context.Background()

	created, err := items.Create(ctx, 1, &models.Item{Name: "buy milk"})
	require.NoError(t, err)

	deleted, err := items.Delete(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, "buy milk", deleted.Name)

	// Second delete of the same id reports not found.
	_, err = items.Delete(ctx, 1, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	listed, err := items.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
