// Package store provides persistence for catalog products.
package store

import (
	"context"
	"time"

	"github.com/abgdnv/shoppe/internal/query"
	"github.com/google/uuid"
)

// Product is a persisted catalog product.
type Product struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Price       float64   `db:"price"`
	Image       *string   `db:"image"`
	CreatedAt   time.Time `db:"created_at"`
}

// CreateParams holds the writable fields of a new product. ID and CreatedAt are assigned by the store.
type CreateParams struct {
	Name        string
	Description string
	Price       float64
	Image       *string
}

// UpdateParams replaces every writable field of the product with ID.
type UpdateParams struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       float64
	Image       *string
}

// ProductStore is an interface for product storage operations.
// Every listing is ordered newest first, with id descending as the tiebreaker.
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindAll returns every product.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]Product, error)

	// Find returns at most limit products matching filter, skipping the first offset.
	Find(ctx context.Context, filter query.Filter, offset, limit int) ([]Product, error)

	// Count returns the number of products matching filter.
	Count(ctx context.Context, filter query.Filter) (int64, error)

	// Create adds a new product and returns it with its generated ID and CreatedAt.
	Create(ctx context.Context, params CreateParams) (*Product, error)

	// Update replaces the writable fields of an existing product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, params UpdateParams) (*Product, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
