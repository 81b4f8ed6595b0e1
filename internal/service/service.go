// Package service provides the implementation of catalog business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/shoppe/internal/query"
	"github.com/abgdnv/shoppe/internal/store"
	"github.com/abgdnv/shoppe/pkg/messaging"
	"github.com/abgdnv/shoppe/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

// ProductService defines the methods for managing catalog products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// List returns one page of the products matching q, newest first, with the total match count.
	List(ctx context.Context, q query.Query) (*ProductPage, error)

	// FindAll returns every product, newest first.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// Create adds a new product to the catalog.
	Create(ctx context.Context, product ProductPayload) (*ProductDto, error)

	// Update replaces the details of an existing product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id uuid.UUID, product ProductPayload) (*ProductDto, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// Ready reports whether the backing store is reachable.
	Ready(ctx context.Context) error
}

// Service implements ProductService.
type Service struct {
	store     store.ProductStore
	publisher messaging.Publisher
	logger    *slog.Logger
	created   metric.Int64Counter
	updated   metric.Int64Counter
	deleted   metric.Int64Counter
}

// NewService creates a new instance of ProductService.
func NewService(productStore store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("catalog")
	return &Service{
		store:     productStore,
		publisher: publisher,
		logger:    logger.With("component", "service"),
		created:   mustCounter(meter, "products_created", "Total number of created products"),
		updated:   mustCounter(meter, "products_updated", "Total number of updated products"),
		deleted:   mustCounter(meter, "products_deleted", "Total number of deleted products"),
	}
}

func mustCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		panic(fmt.Sprintf("failed to create %s counter: %v", name, err))
	}
	return counter
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Image       *string   `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductPage is one page of a filtered listing.
type ProductPage struct {
	Items      []ProductDto `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"totalPages"`
}

// EmptyPage is the page shown when a listing cannot be served.
func EmptyPage(page int) *ProductPage {
	return &ProductPage{Items: []ProductDto{}, Page: page, PageSize: query.PageSize}
}

// List runs the page query and the count query concurrently with the same filter.
func (s *Service) List(ctx context.Context, q query.Query) (*ProductPage, error) {
	var (
		products []store.Product
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.store.Find(gctx, q.Filter, q.Window.Offset, q.Window.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Items:      toDtos(products),
		Page:       q.Window.Page,
		PageSize:   q.Window.Limit,
		Total:      total,
		TotalPages: query.TotalPages(total),
	}, nil
}

// FindAll retrieves every product and returns them as ProductDTOs.
func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return toDtos(products), nil
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return toDto(product), nil
}

// Create creates a new product, publishes products.created and returns the product as a ProductDto.
func (s *Service) Create(ctx context.Context, product ProductPayload) (*ProductDto, error) {
	p, err := s.store.Create(ctx, store.CreateParams{
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.Float64(),
		Image:       product.Image,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.created.Add(ctx, 1)

	s.publish(ctx, events.ProductCreatedEvent{
		Carrier:    carrierFrom(ctx),
		Product:    toEvent(p),
		OccurredAt: time.Now().UTC(),
	})
	return toDto(p), nil
}

// Update replaces the product's details, publishes products.updated and returns the updated product.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) Update(ctx context.Context, id uuid.UUID, product ProductPayload) (*ProductDto, error) {
	p, err := s.store.Update(ctx, store.UpdateParams{
		ID:          id,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.Float64(),
		Image:       product.Image,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	s.updated.Add(ctx, 1)

	s.publish(ctx, events.ProductUpdatedEvent{
		Carrier:    carrierFrom(ctx),
		Product:    toEvent(p),
		OccurredAt: time.Now().UTC(),
	})
	return toDto(p), nil
}

// DeleteByID deletes a product by its ID and publishes products.deleted.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	s.deleted.Add(ctx, 1)

	s.publish(ctx, events.ProductDeletedEvent{
		Carrier:    carrierFrom(ctx),
		ProductID:  id,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish is best-effort: the change is already committed, so a failure is only logged.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
	}
}

func carrierFrom(ctx context.Context) propagation.MapCarrier {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}

func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:          product.ID.String(),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Image:       product.Image,
		CreatedAt:   product.CreatedAt,
	}
}

func toEvent(product *store.Product) events.Product {
	return events.Product{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Image:       product.Image,
		CreatedAt:   product.CreatedAt,
	}
}
