package store

import (
	"context"
	"slices"
	"sync"
	"time"

	perrors "github.com/abgdnv/shoppe/internal/errors"
	"github.com/abgdnv/shoppe/internal/query"
	"github.com/google/uuid"
)

// InMemoryStore implements ProductStore using an in-memory map.
// It is used by tests and by local runs without a database.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
	now      func() time.Time
}

// InMemoryOption configures an InMemoryStore.
type InMemoryOption func(*InMemoryStore)

// WithClock sets the source of CreatedAt timestamps.
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		products: make(map[uuid.UUID]Product),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) FindAll(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(query.Filter{}), nil
}

func (s *InMemoryStore) Find(_ context.Context, filter query.Filter, offset, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.sorted(filter)
	if offset < 0 || offset >= len(matched) {
		return []Product{}, nil
	}
	end := offset + min(limit, len(matched)-offset)
	return matched[offset:end], nil
}

func (s *InMemoryStore) Count(_ context.Context, filter query.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.products {
		if filter.Match(p.Name, p.Price) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) Create(_ context.Context, params CreateParams) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Product{
		ID:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		Price:       params.Price,
		Image:       copyString(params.Image),
		CreatedAt:   s.now().UTC(),
	}
	s.products[p.ID] = p
	return clone(p), nil
}

func (s *InMemoryStore) Update(_ context.Context, params UpdateParams) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[params.ID]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	p.Name = params.Name
	p.Description = params.Description
	p.Price = params.Price
	p.Image = copyString(params.Image)
	s.products[p.ID] = p
	return clone(p), nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return perrors.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

// sorted returns copies of the products matching filter, newest first. Callers hold the lock.
func (s *InMemoryStore) sorted(filter query.Filter) []Product {
	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Match(p.Name, p.Price) {
			list = append(list, *clone(p))
		}
	}
	slices.SortFunc(list, func(a, b Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return list
}

// compareIDs orders UUIDs by their bytes, the same order PostgreSQL uses for the uuid type.
func compareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func clone(p Product) *Product {
	p.Image = copyString(p.Image)
	return &p
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
