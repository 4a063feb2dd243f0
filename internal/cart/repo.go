package cart

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repo is the persistence boundary for carts and their line items.
type Repo interface {
	CreateCart(ctx context.Context, c Cart) error
	CartByID(ctx context.Context, id string) (Cart, error)
	TouchCart(ctx context.Context, c Cart) error
	LiveCartIDs(ctx context.Context, now time.Time) ([]string, error)

	Items(ctx context.Context, cartID string) ([]Item, error)
	ItemByID(ctx context.Context, cartID, itemID string) (Item, error)
	InsertItem(ctx context.Context, it Item) error
	UpdateItem(ctx context.Context, it Item) error
	DeleteItem(ctx context.Context, cartID, itemID string) error
	SaveItems(ctx context.Context, items []Item) error
}

// MemoryRepo is an in-memory Repo used by tests.
type MemoryRepo struct {
	mu    sync.Mutex
	carts map[string]Cart
	items map[string][]Item
}

// NewMemoryRepo returns an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		carts: make(map[string]Cart),
		items: make(map[string][]Item),
	}
}

func (m *MemoryRepo) CreateCart(_ context.Context, c Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.ID] = c
	return nil
}

func (m *MemoryRepo) CartByID(_ context.Context, id string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrCartNotFound
	}
	return c, nil
}

func (m *MemoryRepo) TouchCart(_ context.Context, c Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[c.ID]; !ok {
		return ErrCartNotFound
	}
	m.carts[c.ID] = c
	return nil
}

func (m *MemoryRepo) LiveCartIDs(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, c := range m.carts {
		if c.ExpiresAt.IsZero() || c.ExpiresAt.After(now) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryRepo) Items(_ context.Context, cartID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, len(m.items[cartID]))
	copy(out, m.items[cartID])
	return out, nil
}

func (m *MemoryRepo) ItemByID(_ context.Context, cartID, itemID string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items[cartID] {
		if it.ID == itemID {
			return it, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (m *MemoryRepo) InsertItem(_ context.Context, it Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.CartID] = append(m.items[it.CartID], it)
	return nil
}

func (m *MemoryRepo) UpdateItem(_ context.Context, it Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items[it.CartID] {
		if existing.ID == it.ID {
			m.items[it.CartID][i] = it
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *MemoryRepo) DeleteItem(_ context.Context, cartID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[cartID]
	for i, it := range items {
		if it.ID == itemID {
			m.items[cartID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *MemoryRepo) SaveItems(_ context.Context, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		existing := m.items[it.CartID]
		for i := range existing {
			if existing[i].ID == it.ID {
				existing[i] = it
				break
			}
		}
	}
	return nil
}
