package store

import (
	"context"
	"sort"
	"sync"

	"github.com/taskhive/todo-api/internal/models"
)

// Memory is an in-process backend implementing both stores behind one
// mutex. It backs local development and the test suites; semantics
// (id assignment, ownership scoping, error conflation) match the
// DynamoDB backend exactly.
type Memory struct {
	mu         sync.Mutex
	users      map[int64]models.User
	byUsername map[string]int64
	items      map[int64]models.Item
	lastUserID int64
	lastItemID int64
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[int64]models.User),
		byUsername: make(map[string]int64),
		items:      make(map[int64]models.Item),
	}
}

// Users returns the UserStore view of the backend.
func (m *Memory) Users() UserStore { return memoryUsers{m} }

// Items returns the ItemStore view of the backend.
func (m *Memory) Items() ItemStore { return memoryItems{m} }

// Ping always succeeds; the backend lives in-process.
func (m *Memory) Ping(ctx context.Context) error { return nil }

type memoryUsers struct{ m *Memory }

func (s memoryUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	id, ok := s.m.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	user := s.m.users[id]
	return &user, nil
}

func (s memoryUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, exists := s.m.byUsername[user.Username]; exists {
		return nil, ErrDuplicateUsername
	}

	s.m.lastUserID++
	created := *user
	created.ID = s.m.lastUserID

	s.m.users[created.ID] = created
	s.m.byUsername[created.Username] = created.ID

	return &created, nil
}

type memoryItems struct{ m *Memory }

func (s memoryItems) ListByOwner(ctx context.Context, ownerID int64) ([]models.Item, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	items := make([]models.Item, 0)
	for _, item := range s.m.items {
		if item.OwnerID == ownerID {
			items = append(items, item)
		}
	}
	// Ids are sequential, so id order is insertion order.
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items, nil
}

func (s memoryItems) Create(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	s.m.lastItemID++
	created := *item
	created.ID = s.m.lastItemID
	created.OwnerID = ownerID

	s.m.items[created.ID] = created
	return &created, nil
}

func (s memoryItems) FindOwned(ctx context.Context, ownerID, itemID int64) (*models.Item, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.findOwnedLocked(ownerID, itemID)
}

func (s memoryItems) findOwnedLocked(ownerID, itemID int64) (*models.Item, error) {
	item, ok := s.m.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (s memoryItems) Update(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	current, err := s.findOwnedLocked(ownerID, itemID)
	if err != nil {
		return nil, err
	}

	updated := *current
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.IsComplete != nil {
		updated.IsComplete = *patch.IsComplete
	}

	s.m.items[itemID] = updated
	return &updated, nil
}

func (s memoryItems) Delete(ctx context.Context, ownerID, itemID int64) (*models.Item, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	deleted, err := s.findOwnedLocked(ownerID, itemID)
	if err != nil {
		return nil, err
	}

	delete(s.m.items, itemID)
	return deleted, nil
}
