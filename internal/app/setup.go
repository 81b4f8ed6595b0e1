// Package app wires the catalog service together.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/shoppe/internal/config"
	"github.com/abgdnv/shoppe/internal/service"
	"github.com/abgdnv/shoppe/internal/store"
	"github.com/abgdnv/shoppe/internal/transport/rest"
	"github.com/abgdnv/shoppe/pkg/messaging"
	"github.com/abgdnv/shoppe/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

const ServiceName = "catalog"

type Dependencies struct {
	ProductService service.ProductService
	Health         *health.Server
	Logger         *slog.Logger
}

// SetupDependencies builds the service layer over productStore. Events go to publisher.
func SetupDependencies(productStore store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		ProductService: service.NewService(productStore, publisher, logger),
		Health:         health.NewServer(),
		Logger:         logger,
	}
}

// SetupHttpHandler builds the router with middleware, catalog routes and /metrics.
// Used by E2E tests to exercise the full HTTP stack without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	rest.NewHandler(deps.ProductService, deps.Logger).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
}

// SetupHttpServer creates and configures the HTTP server of the catalog.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	return server.NewHTTPServer(httpCfg, ServiceName, SetupHttpHandler(deps))
}

// SetupGrpcServer creates the gRPC server. It serves the standard health service backed by deps.Health.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, server.HealthRegistration(deps.Health))
}
