package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	perrors "github.com/abgdnv/shoppe/internal/errors"
	"github.com/abgdnv/shoppe/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	productColumns = "id, name, description, price, image, created_at"
	listingOrder   = " ORDER BY created_at DESC, id DESC"
)

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	rows, err := p.db.Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return &product, nil
}

// FindAll retrieves every product, newest first.
func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	return p.collect(ctx, "SELECT "+productColumns+" FROM products"+listingOrder)
}

// Find retrieves one window of the products matching filter, newest first.
func (p *PgStore) Find(ctx context.Context, filter query.Filter, offset, limit int) ([]Product, error) {
	where, args := whereClause(filter)
	args = append(args, limit, offset)
	sql := fmt.Sprintf("SELECT %s FROM products%s%s LIMIT $%d OFFSET $%d",
		productColumns, where, listingOrder, len(args)-1, len(args))
	return p.collect(ctx, sql, args...)
}

// Count returns the number of products matching filter.
func (p *PgStore) Count(ctx context.Context, filter query.Filter) (int64, error) {
	where, args := whereClause(filter)
	var total int64
	if err := p.db.QueryRow(ctx, "SELECT count(*) FROM products"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

// Create inserts a new product; the database assigns id and created_at.
func (p *PgStore) Create(ctx context.Context, params CreateParams) (*Product, error) {
	rows, err := p.db.Query(ctx,
		"INSERT INTO products (name, description, price, image) VALUES ($1, $2, $3, $4) RETURNING "+productColumns,
		params.Name, params.Description, params.Price, params.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

// Update modifies an existing product's details.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) Update(ctx context.Context, params UpdateParams) (*Product, error) {
	rows, err := p.db.Query(ctx,
		"UPDATE products SET name = $2, description = $3, price = $4, image = $5 WHERE id = $1 RETURNING "+productColumns,
		params.ID, params.Name, params.Description, params.Price, params.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}

// DeleteByID removes a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return perrors.ErrProductNotFound
	}
	return nil
}

// Ping checks the database connection.
func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *PgStore) collect(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

// whereClause renders filter as a SQL WHERE clause with positional arguments starting at $1.
// It returns an empty clause for the zero filter.
func whereClause(filter query.Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.Name != "" {
		args = append(args, "%"+escapeLike(filter.Name)+"%")
		conds = append(conds, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if filter.Price != nil {
		args = append(args, filter.Price.Min)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
		if filter.Price.Max != nil {
			args = append(args, *filter.Price.Max)
			conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
