package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	perrors "github.com/abgdnv/shoppe/internal/errors"
	"github.com/abgdnv/shoppe/internal/query"
	"github.com/abgdnv/shoppe/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProductService is a mock implementation of the ProductService interface
type mockProductService struct {
	product  *service.ProductDto
	products []service.ProductDto
	page     *service.ProductPage
	error    error
	gotQuery query.Query
	gotID    uuid.UUID
	payload  service.ProductPayload
	calls    int
}

func (m *mockProductService) List(_ context.Context, q query.Query) (*service.ProductPage, error) {
	m.calls++
	m.gotQuery = q
	if m.error != nil {
		return nil, m.error
	}
	return m.page, nil
}

func (m *mockProductService) FindAll(_ context.Context) ([]service.ProductDto, error) {
	m.calls++
	if m.error != nil {
		return nil, m.error
	}
	return m.products, nil
}

func (m *mockProductService) FindByID(_ context.Context, id uuid.UUID) (*service.ProductDto, error) {
	m.calls++
	m.gotID = id
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) Create(_ context.Context, p service.ProductPayload) (*service.ProductDto, error) {
	m.calls++
	m.payload = p
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) Update(_ context.Context, id uuid.UUID, p service.ProductPayload) (*service.ProductDto, error) {
	m.calls++
	m.gotID = id
	m.payload = p
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) DeleteByID(_ context.Context, id uuid.UUID) error {
	m.calls++
	m.gotID = id
	return m.error
}

func (m *mockProductService) Ready(_ context.Context) error {
	return m.error
}

// envelope mirrors web.Envelope with a raw data field for assertions.
type envelope struct {
	Success          bool              `json:"success"`
	Data             json.RawMessage   `json:"data"`
	Message          string            `json:"message"`
	Error            string            `json:"error"`
	ValidationErrors map[string]string `json:"validation_errors"`
}

var (
	mockID   = uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	mockDto  = &service.ProductDto{ID: mockID.String(), Name: "Red Mug", Description: "Ceramic", Price: 9.99, CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	errStore = errors.New("connection refused")
)

func serve(t *testing.T, svc service.ProductService, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(r)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func Test_Handler_List(t *testing.T) {
	t.Run("passes parsed parameters to the service", func(t *testing.T) {
		page := &service.ProductPage{Items: []service.ProductDto{*mockDto}, Page: 2, PageSize: 8, Total: 9, TotalPages: 2}
		svc := &mockProductService{page: page}

		rec, env := serve(t, svc, http.MethodGet, "/?query=mug&price=50-100&page=2", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
		assert.Equal(t, "mug", svc.gotQuery.Filter.Name)
		require.NotNil(t, svc.gotQuery.Filter.Price)
		assert.Equal(t, 50.0, svc.gotQuery.Filter.Price.Min)
		assert.Equal(t, 100.0, *svc.gotQuery.Filter.Price.Max)
		assert.Equal(t, query.Window{Page: 2, Offset: 8, Limit: 8}, svc.gotQuery.Window)

		var got service.ProductPage
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, *page, got)
	})

	t.Run("malformed price imposes no constraint", func(t *testing.T) {
		svc := &mockProductService{page: service.EmptyPage(1)}

		rec, _ := serve(t, svc, http.MethodGet, "/?price=abc-10&page=zero", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, svc.gotQuery.Filter.Price)
		assert.Equal(t, 1, svc.gotQuery.Window.Page)
		assert.Equal(t, []string{query.ParamPrice, query.ParamPage}, svc.gotQuery.Ignored)
	})

	t.Run("store failure serves an empty page", func(t *testing.T) {
		svc := &mockProductService{error: errStore}

		rec, env := serve(t, svc, http.MethodGet, "/?page=3", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
		assert.JSONEq(t, `{"items":[],"page":3,"pageSize":8,"total":0,"totalPages":0}`, string(env.Data))
	})
}

func Test_Handler_FindAll(t *testing.T) {
	testCases := []struct {
		name           string
		svc            *mockProductService
		expectedStatus int
		expectedData   string
		expectedError  string
	}{
		{
			name:           "Success - products found",
			svc:            &mockProductService{products: []service.ProductDto{*mockDto}},
			expectedStatus: http.StatusOK,
			expectedData:   `[{"id":"123e4567-e89b-12d3-a456-426614174000","name":"Red Mug","description":"Ceramic","price":9.99,"image":null,"createdAt":"2025-06-01T12:00:00Z"}]`,
		},
		{
			name:           "Success - empty catalog",
			svc:            &mockProductService{products: []service.ProductDto{}},
			expectedStatus: http.StatusOK,
			expectedData:   `[]`,
		},
		{
			name:           "Error - store failure",
			svc:            &mockProductService{error: errStore},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Error fetching products",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := serve(t, tc.svc, http.MethodGet, "/api/products", "")
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tc.expectedError != "" {
				assert.False(t, env.Success)
				assert.Equal(t, tc.expectedError, env.Error)
				assert.NotContains(t, rec.Body.String(), errStore.Error())
				return
			}
			assert.True(t, env.Success)
			assert.JSONEq(t, tc.expectedData, string(env.Data))
		})
	}
}

func Test_Handler_FindByID(t *testing.T) {
	testCases := []struct {
		name           string
		path           string
		svc            *mockProductService
		expectedStatus int
		expectedError  string
		expectCall     bool
	}{
		{
			name:           "Success - product found",
			path:           "/api/products/" + mockID.String(),
			svc:            &mockProductService{product: mockDto},
			expectedStatus: http.StatusOK,
			expectCall:     true,
		},
		{
			name:           "Error - product not found",
			path:           "/api/products/" + mockID.String(),
			svc:            &mockProductService{error: perrors.ErrProductNotFound},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Product not found",
			expectCall:     true,
		},
		{
			name:           "Error - unparseable id",
			path:           "/api/products/not-a-uuid",
			svc:            &mockProductService{},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Product not found",
		},
		{
			name:           "Error - store failure",
			path:           "/api/products/" + mockID.String(),
			svc:            &mockProductService{error: errStore},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Error fetching product",
			expectCall:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := serve(t, tc.svc, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, tc.expectedError, env.Error)
			assert.Equal(t, tc.expectedError == "", env.Success)
			if tc.expectCall {
				assert.Equal(t, mockID, tc.svc.gotID)
			} else {
				assert.Zero(t, tc.svc.calls)
			}
		})
	}
}

func Test_Handler_Create(t *testing.T) {
	testCases := []struct {
		name            string
		body            string
		svc             *mockProductService
		expectedStatus  int
		expectedMessage string
		expectedError   string
		expectedFields  map[string]string
		expectedPayload *service.ProductPayload
	}{
		{
			name:            "Success - created",
			body:            `{"name":" Red Mug ","description":"Ceramic","price":9.99,"image":""}`,
			svc:             &mockProductService{product: mockDto},
			expectedStatus:  http.StatusCreated,
			expectedMessage: "Product created successfully",
			expectedPayload: &service.ProductPayload{Name: "Red Mug", Description: "Ceramic", Price: service.NewPrice(9.99)},
		},
		{
			name:            "Success - price as numeric string",
			body:            `{"name":"Red Mug","description":"Ceramic","price":"9.99"}`,
			svc:             &mockProductService{product: mockDto},
			expectedStatus:  http.StatusCreated,
			expectedMessage: "Product created successfully",
			expectedPayload: &service.ProductPayload{Name: "Red Mug", Description: "Ceramic", Price: service.NewPrice(9.99)},
		},
		{
			name:           "Error - invalid JSON",
			body:           `{"name":`,
			svc:            &mockProductService{},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request body",
		},
		{
			name:           "Error - missing fields",
			body:           `{"name":"Red Mug"}`,
			svc:            &mockProductService{},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Missing required fields",
			expectedFields: map[string]string{"description": "failed on rule: required", "price": "failed on rule: required"},
		},
		{
			name:           "Error - negative price",
			body:           `{"name":"Red Mug","description":"Ceramic","price":-1}`,
			svc:            &mockProductService{},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid product fields",
			expectedFields: map[string]string{"price": "failed on rule: gte"},
		},
		{
			name:           "Error - store failure",
			body:           `{"name":"Red Mug","description":"Ceramic","price":9.99}`,
			svc:            &mockProductService{error: errStore},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Error creating product",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := serve(t, tc.svc, http.MethodPost, "/api/products", tc.body)
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, tc.expectedMessage, env.Message)
			assert.Equal(t, tc.expectedError, env.Error)
			assert.Equal(t, tc.expectedFields, env.ValidationErrors)
			if tc.expectedPayload != nil {
				assert.Equal(t, *tc.expectedPayload, tc.svc.payload)
				assert.True(t, env.Success)
				assert.NotEmpty(t, env.Data)
			}
			if tc.expectedStatus == http.StatusBadRequest {
				assert.Zero(t, tc.svc.calls)
			}
		})
	}
}

func Test_Handler_Update(t *testing.T) {
	path := "/api/products/" + mockID.String()
	body := `{"name":"Blue Mug","description":"Ceramic","price":0}`
	testCases := []struct {
		name            string
		path            string
		body            string
		svc             *mockProductService
		expectedStatus  int
		expectedMessage string
		expectedError   string
	}{
		{
			name:            "Success - updated",
			path:            path,
			body:            body,
			svc:             &mockProductService{product: mockDto},
			expectedStatus:  http.StatusOK,
			expectedMessage: "Product updated successfully",
		},
		{
			name:           "Error - missing price",
			path:           path,
			body:           `{"name":"Blue Mug","description":"Ceramic"}`,
			svc:            &mockProductService{},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Missing required fields",
		},
		{
			name:           "Error - product not found",
			path:           path,
			body:           body,
			svc:            &mockProductService{error: perrors.ErrProductNotFound},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Product not found",
		},
		{
			name:           "Error - unparseable id",
			path:           "/api/products/42",
			body:           body,
			svc:            &mockProductService{},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Product not found",
		},
		{
			name:           "Error - store failure",
			path:           path,
			body:           body,
			svc:            &mockProductService{error: errStore},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Error updating product",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := serve(t, tc.svc, http.MethodPut, tc.path, tc.body)
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, tc.expectedMessage, env.Message)
			assert.Equal(t, tc.expectedError, env.Error)
			if tc.expectedStatus == http.StatusOK {
				assert.Equal(t, mockID, tc.svc.gotID)
				assert.Equal(t, service.NewPrice(0), tc.svc.payload.Price)
			}
		})
	}
}

func Test_Handler_DeleteByID(t *testing.T) {
	testCases := []struct {
		name            string
		svc             *mockProductService
		expectedStatus  int
		expectedMessage string
		expectedError   string
	}{
		{
			name:            "Success - deleted",
			svc:             &mockProductService{},
			expectedStatus:  http.StatusOK,
			expectedMessage: "Product deleted successfully",
		},
		{
			name:           "Error - product not found",
			svc:            &mockProductService{error: perrors.ErrProductNotFound},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Product not found",
		},
		{
			name:           "Error - store failure",
			svc:            &mockProductService{error: errStore},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Error deleting product",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := serve(t, tc.svc, http.MethodDelete, "/api/products/"+mockID.String(), "")
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, tc.expectedMessage, env.Message)
			assert.Equal(t, tc.expectedError, env.Error)
			assert.Empty(t, env.Data)
			assert.Equal(t, mockID, tc.svc.gotID)
		})
	}
}

func Test_Handler_Probes(t *testing.T) {
	rec, _ := serve(t, &mockProductService{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, &mockProductService{}, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, &mockProductService{error: errStore}, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
