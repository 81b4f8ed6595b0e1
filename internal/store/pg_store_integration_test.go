package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	perrors "github.com/abgdnv/shoppe/internal/errors"
	"github.com/abgdnv/shoppe/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "CATALOG_SKIP_INTEGRATION_TESTS"

// PgStoreSuite runs the PgStore against a real PostgreSQL container.
type PgStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       ProductStore
	logger      *slog.Logger
	ctx         context.Context
}

func (s *PgStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// 1. Start a PostgreSQL container and wait until it accepts connections.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("catalog_db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 2. Apply the embedded migrations.
	require.NoError(s.T(), Migrate(connStr), "Failed to apply migrations")
	// applying twice is a no-op
	require.NoError(s.T(), Migrate(connStr))

	// 3. Connect.
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")
	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		if err = s.dbPool.Ping(s.ctx); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	s.store = NewPgStore(s.dbPool)
}

func (s *PgStoreSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

// SetupTest empties the products table before each test.
func (s *PgStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE products")
	require.NoError(s.T(), err, "Failed to truncate products table")
}

func TestPgStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PgStoreSuite))
}

func (s *PgStoreSuite) create(name string, price float64) *Product {
	p, err := s.store.Create(s.ctx, CreateParams{Name: name, Description: name + " description", Price: price})
	s.Require().NoError(err)
	return p
}

func (s *PgStoreSuite) TestCreateAndFindByID() {
	image := "https://img.example/mug.png"
	created, err := s.store.Create(s.ctx, CreateParams{Name: "Red Mug", Description: "Ceramic", Price: 9.99, Image: &image})
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, created.ID)
	s.False(created.CreatedAt.IsZero())

	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.Equal("Red Mug", found.Name)
	s.Equal("Ceramic", found.Description)
	s.Equal(9.99, found.Price)
	s.Require().NotNil(found.Image)
	s.Equal(image, *found.Image)
}

func (s *PgStoreSuite) TestFindByID_NotFound() {
	found, err := s.store.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, perrors.ErrProductNotFound)
	s.Nil(found)
}

func (s *PgStoreSuite) TestCreate_RejectsNegativePrice() {
	_, err := s.store.Create(s.ctx, CreateParams{Name: "x", Description: "x", Price: -1})
	s.Error(err)
}

func (s *PgStoreSuite) TestFindAll() {
	all, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)

	s.create("first", 1)
	s.create("second", 2)

	all, err = s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"second", "first"}, names(all))
}

func (s *PgStoreSuite) TestFindAndCount() {
	for i := 1; i <= 20; i++ {
		s.create(fmt.Sprintf("Item %02d", i), float64(i*10))
	}
	s.create("100% Cotton_Shirt", 15)
	s.create("Crème Brûlée", 7)
	maxPrice := 100.0

	testCases := []struct {
		name     string
		filter   query.Filter
		offset   int
		expected []string
		count    int64
	}{
		{
			name:     "third page",
			filter:   query.Filter{Name: "item"},
			offset:   16,
			expected: []string{"Item 04", "Item 03", "Item 02", "Item 01"},
			count:    20,
		},
		{
			name:     "closed price range",
			filter:   query.Filter{Name: "ITEM", Price: &query.PriceRange{Min: 50, Max: &maxPrice}},
			expected: []string{"Item 10", "Item 09", "Item 08", "Item 07", "Item 06", "Item 05"},
			count:    6,
		},
		{
			name:     "open price range",
			filter:   query.Filter{Price: &query.PriceRange{Min: 190}},
			expected: []string{"Item 20", "Item 19"},
			count:    2,
		},
		{
			name:     "offset of the largest page",
			filter:   query.Filter{Name: "item"},
			offset:   (query.MaxPage - 1) * query.PageSize,
			expected: []string{},
			count:    20,
		},
		{
			name:     "non ascii name folds case",
			filter:   query.Filter{Name: "CRÈME"},
			expected: []string{"Crème Brûlée"},
			count:    1,
		},
		{
			name:     "percent is literal",
			filter:   query.Filter{Name: "0%"},
			expected: []string{"100% Cotton_Shirt"},
			count:    1,
		},
		{
			name:     "underscore is literal",
			filter:   query.Filter{Name: "n_s"},
			expected: []string{"100% Cotton_Shirt"},
			count:    1,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			found, err := s.store.Find(s.ctx, tc.filter, tc.offset, query.PageSize)
			s.Require().NoError(err)
			count, err := s.store.Count(s.ctx, tc.filter)
			s.Require().NoError(err)
			s.Equal(tc.expected, names(found))
			s.Equal(tc.count, count)
		})
	}
}

func (s *PgStoreSuite) TestUpdate() {
	created := s.create("Mug", 5)

	updated, err := s.store.Update(s.ctx, UpdateParams{ID: created.ID, Name: "Big Mug", Description: "bigger", Price: 7.5})
	s.Require().NoError(err)
	s.Equal("Big Mug", updated.Name)
	s.Equal(7.5, updated.Price)
	assert.WithinDuration(s.T(), created.CreatedAt, updated.CreatedAt, 0)

	_, err = s.store.Update(s.ctx, UpdateParams{ID: uuid.New(), Name: "x", Description: "x"})
	s.ErrorIs(err, perrors.ErrProductNotFound)
}

func (s *PgStoreSuite) TestDeleteByID() {
	created := s.create("Mug", 5)

	s.Require().NoError(s.store.DeleteByID(s.ctx, created.ID))
	s.ErrorIs(s.store.DeleteByID(s.ctx, created.ID), perrors.ErrProductNotFound)
	s.NoError(s.store.Ping(s.ctx))
}
