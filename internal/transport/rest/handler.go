// Package rest provides HTTP handlers for the catalog.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	perrors "github.com/abgdnv/shoppe/internal/errors"
	"github.com/abgdnv/shoppe/internal/query"
	"github.com/abgdnv/shoppe/internal/service"
	"github.com/abgdnv/shoppe/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds create and update bodies. Images may arrive inline as data URIs.
const maxBodyBytes = 10 << 20

const (
	msgCreated  = "Product created successfully"
	msgUpdated  = "Product updated successfully"
	msgDeleted  = "Product deleted successfully"
	msgNotFound = "Product not found"

	errFetchingProducts = "Error fetching products"
	errFetchingProduct  = "Error fetching product"
	errCreatingProduct  = "Error creating product"
	errUpdatingProduct  = "Error updating product"
	errDeletingProduct  = "Error deleting product"
	errInvalidBody      = "Invalid request body"
	errMissingFields    = "Missing required fields"
	errInvalidFields    = "Invalid product fields"
)

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new catalog Handler with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	validate := validator.New()
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		service:  service,
		validate: validate,
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the catalog.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.DeleteByID)
		})
	})

	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadyCheck)
}

// List serves one page of the filtered listing. It fails open: a store error
// is logged and answered with an empty page.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := r.URL.Query()
	q := query.Build(query.Params{
		Query: values.Get(query.ParamQuery),
		Price: values.Get(query.ParamPrice),
		Page:  values.Get(query.ParamPage),
	})
	if len(q.Ignored) > 0 {
		h.logger.WarnContext(ctx, "Ignoring malformed listing parameters", "params", q.Ignored,
			query.ParamPrice, values.Get(query.ParamPrice), query.ParamPage, values.Get(query.ParamPage))
	}

	page, err := h.service.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error listing products, serving empty page", "error", err)
		page = service.EmptyPage(q.Window.Page)
	}
	web.RespondData(w, h.logger, http.StatusOK, page)
}

// FindAll retrieves every product, newest first.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.FindAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error retrieving product list", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, errFetchingProducts)
		return
	}
	h.logger.DebugContext(ctx, "Successfully retrieved product list", "count", len(list))
	web.RespondData(w, h.logger, http.StatusOK, list)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := web.ParseID(w, r, h.logger, msgNotFound)
	if !ok {
		return
	}

	found, err := h.service.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			h.logger.WarnContext(ctx, "Product not found", "ID", id)
			web.RespondError(w, h.logger, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, errFetchingProduct)
		return
	}
	web.RespondData(w, h.logger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	created, err := h.service.Create(ctx, payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error creating product", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, errCreatingProduct)
		return
	}
	h.logger.InfoContext(ctx, "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondMessage(w, h.logger, http.StatusCreated, msgCreated, created)
}

// Update replaces every writable field of a product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := web.ParseID(w, r, h.logger, msgNotFound)
	if !ok {
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	updated, err := h.service.Update(ctx, id, payload)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			h.logger.WarnContext(ctx, "Product not found for update", "ID", id)
			web.RespondError(w, h.logger, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "Error updating product", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, errUpdatingProduct)
		return
	}
	h.logger.InfoContext(ctx, "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondMessage(w, h.logger, http.StatusOK, msgUpdated, updated)
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := web.ParseID(w, r, h.logger, msgNotFound)
	if !ok {
		return
	}

	if err := h.service.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			h.logger.WarnContext(ctx, "Product not found for deletion", "ID", id)
			web.RespondError(w, h.logger, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "Error deleting product", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, errDeletingProduct)
		return
	}
	h.logger.InfoContext(ctx, "Product deleted successfully", "ID", id)
	web.RespondMessage(w, h.logger, http.StatusOK, msgDeleted, nil)
}

// HealthCheck is a simple liveness endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReadyCheck reports 503 while the store is unreachable.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Store is not ready", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// decodePayload reads, normalizes and validates a product body. On failure it has
// already written the 400 response.
func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (service.ProductPayload, bool) {
	ctx := r.Context()
	var payload service.ProductPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		h.logger.WarnContext(ctx, "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return payload, false
	}
	payload.Normalize()

	if err := h.validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			h.logger.ErrorContext(ctx, "Error validating request body", "error", err)
			web.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
			return payload, false
		}
		message := errInvalidFields
		fields := make(map[string]string, len(validationErrors))
		for _, fieldErr := range validationErrors {
			fields[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			if fieldErr.Tag() == "required" {
				message = errMissingFields
			}
		}
		h.logger.WarnContext(ctx, "Validation errors occurred", "errors", fields)
		web.RespondValidationError(w, h.logger, message, fields)
		return payload, false
	}
	return payload, true
}
