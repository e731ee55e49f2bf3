package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/estrella-backend/internal/http/handlers"
	httpMW "github.com/yungbote/estrella-backend/internal/http/middleware"
	"github.com/yungbote/estrella-backend/internal/observability"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	IntakeToken    string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler         *httpH.HealthHandler
	AuthHandler           *httpH.AuthHandler
	CatalogHandler        *httpH.CatalogHandler
	CartHandler           *httpH.CartHandler
	CheckoutHandler       *httpH.CheckoutHandler
	ServiceRequestHandler *httpH.ServiceRequestHandler
	SupportHandler        *httpH.SupportHandler
	RealtimeHandler       *httpH.RealtimeHandler
	IntakeHandler         *httpH.IntakeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "estrella-backend"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/guest", cfg.AuthHandler.Guest)
		}
	}

	// Login reads an existing guest token when present so the cart follows
	// the session into the account.
	if cfg.AuthHandler != nil && cfg.AuthMiddleware != nil {
		api.POST("/login", cfg.AuthMiddleware.OptionalAuth(), cfg.AuthHandler.Login)
	} else if cfg.AuthHandler != nil {
		api.POST("/login", cfg.AuthHandler.Login)
	}

	// Intake (service to service)
	if cfg.IntakeHandler != nil {
		intake := api.Group("/intake")
		intake.Use(httpMW.RequireIntakeToken(cfg.IntakeToken))
		intake.POST("/orders", cfg.IntakeHandler.SubmitOrder)
		intake.GET("/orders/:id", cfg.IntakeHandler.OrderStatus)
		intake.POST("/service-requests", cfg.IntakeHandler.SubmitServiceRequest)
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.AuthHandler != nil {
			protected.GET("/me", cfg.AuthHandler.Me)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// Catalog
		if cfg.CatalogHandler != nil {
			protected.GET("/restaurants", cfg.CatalogHandler.ListRestaurants)
			protected.GET("/restaurants/:id", cfg.CatalogHandler.GetRestaurant)
			protected.GET("/restaurants/:id/menu/:itemId", cfg.CatalogHandler.GetMenuItem)

			admin := protected.Group("/admin")
			admin.Use(httpMW.RequireRole(ctxutil.RoleAdmin))
			admin.POST("/restaurants", cfg.CatalogHandler.CreateRestaurant)
			admin.PATCH("/restaurants/:id", cfg.CatalogHandler.UpdateRestaurant)
			admin.DELETE("/restaurants/:id", cfg.CatalogHandler.DeleteRestaurant)
		}

		// Cart
		if cfg.CartHandler != nil {
			protected.GET("/cart", cfg.CartHandler.GetCart)
			protected.DELETE("/cart", cfg.CartHandler.ClearCart)
			protected.POST("/cart/items", cfg.CartHandler.AddItem)
			protected.PATCH("/cart/items/:key", cfg.CartHandler.UpdateItem)
			protected.DELETE("/cart/items/:key", cfg.CartHandler.RemoveItem)
		}

		// Checkout
		if cfg.CheckoutHandler != nil {
			protected.POST("/checkout/confirm", cfg.CheckoutHandler.Confirm)
			protected.POST("/checkout/edit", cfg.CheckoutHandler.Edit)
			protected.POST("/checkout/submit", cfg.CheckoutHandler.Submit)
		}

		// Service requests
		if cfg.ServiceRequestHandler != nil {
			protected.GET("/service-requests/tariffs", cfg.ServiceRequestHandler.Tariffs)
			protected.GET("/service-requests/slots", cfg.ServiceRequestHandler.Slots)
			protected.GET("/service-requests", cfg.ServiceRequestHandler.View)
			protected.POST("/service-requests/confirm", cfg.ServiceRequestHandler.Confirm)
			protected.POST("/service-requests/edit", cfg.ServiceRequestHandler.Edit)
			protected.POST("/service-requests/submit", cfg.ServiceRequestHandler.Submit)
			protected.POST("/service-requests/reset", cfg.ServiceRequestHandler.Reset)
		}

		// Support
		if cfg.SupportHandler != nil {
			protected.POST("/support/ask", cfg.SupportHandler.Ask)
			protected.GET("/support/contact", cfg.SupportHandler.Contact)
		}
	}

	return r
}
