package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/http"
	httpH "github.com/yungbote/estrella-backend/internal/http/handlers"
	httpMW "github.com/yungbote/estrella-backend/internal/http/middleware"
	"github.com/yungbote/estrella-backend/internal/observability"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health         *httpH.HealthHandler
	Auth           *httpH.AuthHandler
	Catalog        *httpH.CatalogHandler
	Cart           *httpH.CartHandler
	Checkout       *httpH.CheckoutHandler
	ServiceRequest *httpH.ServiceRequestHandler
	Support        *httpH.SupportHandler
	Realtime       *httpH.RealtimeHandler
	Intake         *httpH.IntakeHandler
}

func healthDeps(db *gorm.DB, clients Clients) map[string]httpH.Pinger {
	deps := map[string]httpH.Pinger{
		"database": httpH.PingFunc(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if clients.Redis != nil {
		deps["redis"] = httpH.PingFunc(func(ctx context.Context) error {
			return clients.Redis.Ping(ctx).Err()
		})
	}
	return deps
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, clients Clients, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:         httpH.NewHealthHandler(healthDeps(db, clients)),
		Auth:           httpH.NewAuthHandler(services.Auth),
		Catalog:        httpH.NewCatalogHandler(services.Catalog),
		Cart:           httpH.NewCartHandler(services.Checkout),
		Checkout:       httpH.NewCheckoutHandler(services.Checkout),
		ServiceRequest: httpH.NewServiceRequestHandler(services.ServiceRequest),
		Support:        httpH.NewSupportHandler(services.Support),
		Realtime:       httpH.NewRealtimeHandler(log, sseHub),
		Intake:         httpH.NewIntakeHandler(log, clients.Local, clients.Local, clients.Local),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                   log,
		ServiceName:           cfg.ServiceName,
		CORSOrigins:           cfg.CORSOrigins,
		IntakeToken:           cfg.IntakeToken,
		Metrics:               metrics,
		AuthMiddleware:        middleware.Auth,
		HealthHandler:         handlers.Health,
		AuthHandler:           handlers.Auth,
		CatalogHandler:        handlers.Catalog,
		CartHandler:           handlers.Cart,
		CheckoutHandler:       handlers.Checkout,
		ServiceRequestHandler: handlers.ServiceRequest,
		SupportHandler:        handlers.Support,
		RealtimeHandler:       handlers.Realtime,
		IntakeHandler:         handlers.Intake,
	})
}
