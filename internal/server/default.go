package server

import (
	"fmt"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	catalogservices "github.com/gemelli/tenantcore/modules/catalog/services"
	"github.com/gemelli/tenantcore/pkg/application"
	"github.com/gemelli/tenantcore/pkg/configuration"
	"github.com/gemelli/tenantcore/pkg/identity"
	"github.com/gemelli/tenantcore/pkg/middleware"
	"github.com/gemelli/tenantcore/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default wires the request pipeline from logging through principal extraction,
// optional rate limiting, tenant resolution and the per-request tenant session.
// Modules must be loaded first.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	catalog, ok := app.Service(catalogservices.CatalogService{}).(*catalogservices.CatalogService)
	if !ok || catalog == nil {
		return nil, fmt.Errorf("catalog module is not loaded")
	}
	if app.Tenants() == nil {
		return nil, fmt.Errorf("tenant pool registry is not configured")
	}

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.LoggerOptions{
			RequestIDHeader: conf.RequestIDHeader,
			RealIPHeader:    conf.RealIPHeader,
		}),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.CorsAllowedOrigins...),

		middleware.TracedMiddleware("database"),
		middleware.ProvideMasterPool(options.Pool),

		middleware.TracedMiddleware("principal"),
		middleware.WithPrincipal(identity.HeaderExtractor{
			UserIDHeader:       conf.Identity.UserIDHeader,
			UserNameHeader:     conf.Identity.UserNameHeader,
			UserEmailHeader:    conf.Identity.UserEmailHeader,
			OrganizationHeader: conf.Identity.OrganizationHeader,
		}),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		switch conf.RateLimit.Storage {
		case "redis":
			var err error
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.PerTenant,
				Period:            conf.RateLimit.Period,
				Store:             store,
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("tenant"),
		middleware.WithTenantContext(),
		middleware.ResolveTenant(catalog),
		middleware.WithTenantSession(app.Tenants()),
	)
	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app), nil
}
