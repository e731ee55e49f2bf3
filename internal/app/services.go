package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/modules/checkout"
	"github.com/yungbote/estrella-backend/internal/modules/servicerequest"
	"github.com/yungbote/estrella-backend/internal/modules/support"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/services"
)

type Services struct {
	Auth           services.AuthService
	CatalogCache   *services.CatalogCache
	Catalog        services.CatalogService
	Checkout       services.CheckoutService
	ServiceRequest services.ServiceRequestService
	Support        services.SupportService
	Notifier       services.StorefrontNotifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	// Every instance publishes through the bus; the forwarder fans out to the
	// local hub, so a single process and a fleet behave the same.
	emitter := &services.BusEmitter{Bus: clients.SSEBus, Log: log}
	notifier := services.NewStorefrontNotifier(emitter)

	authService := services.NewAuthService(db, log, repos.User, cfg.JWTSecretKey, cfg.AccessTokenTTL)

	cache := services.NewCatalogCache(log, repos.Restaurant)
	catalogService := services.NewCatalogService(db, log, repos.Restaurant, cache, notifier)

	checkoutCfg := checkout.Config{
		Fee:              cart.FeePolicy{Flat: cfg.DeliveryFee},
		MinContactLength: cfg.MinContactLen,
		SubmitTimeout:    cfg.IntakeTimeout,
	}
	if clients.SubmitLock != nil {
		checkoutCfg.Lock = clients.SubmitLock
	}
	checkoutService := services.NewCheckoutService(
		log,
		clients.CartStore,
		catalogService,
		clients.OrderIntake,
		notifier,
		checkoutCfg,
		cfg.SessionIdleTTL,
	)

	tariffs, err := servicerequest.LoadTariffs(cfg.TariffsYAML)
	if err != nil {
		return Services{}, fmt.Errorf("load tariffs: %w", err)
	}
	loc, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		log.Warn("Unknown SCHEDULE_TIMEZONE, using UTC", "timezone", cfg.ScheduleTimezone, "error", err)
		loc = time.UTC
	}
	serviceRequestService := services.NewServiceRequestService(log, clients.ServiceIntake, notifier, servicerequest.Config{
		Tariffs:       tariffs,
		Location:      loc,
		SubmitTimeout: cfg.IntakeTimeout,
	})

	var asker services.Asker
	if clients.OpenAI != nil {
		asker = support.NewAssistant(log, clients.OpenAI, clients.OrderLookup)
	}
	supportService := services.NewSupportService(log, asker, notifier, cfg.WhatsAppNumber)

	return Services{
		Auth:           authService,
		CatalogCache:   cache,
		Catalog:        catalogService,
		Checkout:       checkoutService,
		ServiceRequest: serviceRequestService,
		Support:        supportService,
		Notifier:       notifier,
	}, nil
}
