package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	catalogrepo "github.com/yungbote/estrella-backend/internal/data/repos/catalog"
	"github.com/yungbote/estrella-backend/internal/domain/cart"
	types "github.com/yungbote/estrella-backend/internal/domain/catalog"
	"github.com/yungbote/estrella-backend/internal/domain/notification"
	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/apierr"
)

const (
	MessageRestaurantCreated = "¡Restaurante agregado con éxito!"
	MessageRestaurantUpdated = "¡Restaurante actualizado con éxito!"
	MessageRestaurantDeleted = "Restaurante eliminado con éxito."
	MessageRestaurantSaveErr = "Error al guardar el restaurante."
	MessageRestaurantDelErr  = "Error al eliminar el restaurante."
)

var timeNow = time.Now

type MenuItemDraft struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       decimal.Decimal   `json:"price"`
	ImageURL    string            `json:"imageUrl"`
	Rating      float64           `json:"rating"`
	ReviewCount int               `json:"reviews"`
	Ingredients []cart.Ingredient `json:"ingredients"`
	IsFeatured  bool              `json:"isPopular"`
}

type RestaurantDraft struct {
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"imageUrl"`
	Rating       float64         `json:"rating"`
	DeliveryFee  string          `json:"deliveryFee"`
	DeliveryTime string          `json:"deliveryTime"`
	Menu         []MenuItemDraft `json:"menu"`
}

// RestaurantPatch carries only the fields the admin changed.
type RestaurantPatch struct {
	Name         *string  `json:"name"`
	Category     *string  `json:"category"`
	ImageURL     *string  `json:"imageUrl"`
	Rating       *float64 `json:"rating"`
	DeliveryFee  *string  `json:"deliveryFee"`
	DeliveryTime *string  `json:"deliveryTime"`
}

// AdminResult pairs a write outcome with the toast shown to the admin.
type AdminResult struct {
	Restaurant   *types.Restaurant         `json:"restaurant,omitempty"`
	Notification notification.Notification `json:"notification"`
}

type CatalogService interface {
	List(ctx context.Context, filter catalogrepo.Filter) ([]*types.Restaurant, error)
	Get(ctx context.Context, id int64) (*types.Restaurant, error)
	GetItem(ctx context.Context, restaurantID, itemID int64) (*types.MenuItem, error)
	Refresh(ctx context.Context) error
	Create(ctx context.Context, draft RestaurantDraft) (AdminResult, error)
	Update(ctx context.Context, id int64, patch RestaurantPatch) (AdminResult, error)
	Delete(ctx context.Context, id int64) (AdminResult, error)
}

type catalogService struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     catalogrepo.RestaurantRepo
	cache    *CatalogCache
	notifier StorefrontNotifier
}

func NewCatalogService(db *gorm.DB, log *logger.Logger, repo catalogrepo.RestaurantRepo, cache *CatalogCache, notifier StorefrontNotifier) CatalogService {
	return &catalogService{
		db:       db,
		log:      log.With("service", "CatalogService"),
		repo:     repo,
		cache:    cache,
		notifier: notifier,
	}
}

func (cs *catalogService) List(ctx context.Context, filter catalogrepo.Filter) ([]*types.Restaurant, error) {
	items, err := cs.cache.List(ctx, filter)
	if err != nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "catalog_unavailable", err)
	}
	return items, nil
}

func (cs *catalogService) Get(ctx context.Context, id int64) (*types.Restaurant, error) {
	r, ok, err := cs.cache.Get(ctx, id)
	if err != nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "catalog_unavailable", err)
	}
	if !ok {
		return nil, fmt.Errorf("restaurant %d: %w", id, pkgerrors.ErrNotFound)
	}
	return r, nil
}

func (cs *catalogService) GetItem(ctx context.Context, restaurantID, itemID int64) (*types.MenuItem, error) {
	r, err := cs.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	item, ok := r.FindItem(itemID)
	if !ok {
		return nil, fmt.Errorf("menu item %d: %w", itemID, pkgerrors.ErrNotFound)
	}
	return item, nil
}

func (cs *catalogService) Refresh(ctx context.Context) error {
	if err := cs.cache.Refresh(ctx); err != nil {
		return apierr.New(http.StatusServiceUnavailable, "catalog_unavailable", err)
	}
	return nil
}

func validateRestaurant(name, category string, rating float64) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(category) == "" {
		return fmt.Errorf("name and category are required: %w", pkgerrors.ErrInvalidArgument)
	}
	if rating < 0 || rating > 5 {
		return fmt.Errorf("rating must be between 0 and 5: %w", pkgerrors.ErrInvalidArgument)
	}
	return nil
}

func (d RestaurantDraft) build() (*types.Restaurant, error) {
	if err := validateRestaurant(d.Name, d.Category, d.Rating); err != nil {
		return nil, err
	}
	r := &types.Restaurant{
		Name:         strings.TrimSpace(d.Name),
		Category:     strings.TrimSpace(d.Category),
		ImageURL:     strings.TrimSpace(d.ImageURL),
		Rating:       d.Rating,
		DeliveryFee:  strings.TrimSpace(d.DeliveryFee),
		DeliveryTime: strings.TrimSpace(d.DeliveryTime),
	}
	for i, m := range d.Menu {
		if strings.TrimSpace(m.Name) == "" || m.Price.IsNegative() {
			return nil, fmt.Errorf("menu item %d needs a name and a non-negative price: %w", i, pkgerrors.ErrInvalidArgument)
		}
		item := types.MenuItem{
			Name:        strings.TrimSpace(m.Name),
			Description: m.Description,
			Price:       m.Price,
			ImageURL:    m.ImageURL,
			Rating:      m.Rating,
			ReviewCount: m.ReviewCount,
			IsFeatured:  m.IsFeatured,
		}
		if err := item.SetIngredients(m.Ingredients); err != nil {
			return nil, err
		}
		r.Menu = append(r.Menu, item)
	}
	return r, nil
}

func (p RestaurantPatch) fields() (map[string]any, error) {
	out := map[string]any{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, fmt.Errorf("name cannot be empty: %w", pkgerrors.ErrInvalidArgument)
		}
		out["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		if strings.TrimSpace(*p.Category) == "" {
			return nil, fmt.Errorf("category cannot be empty: %w", pkgerrors.ErrInvalidArgument)
		}
		out["category"] = strings.TrimSpace(*p.Category)
	}
	if p.Rating != nil {
		if *p.Rating < 0 || *p.Rating > 5 {
			return nil, fmt.Errorf("rating must be between 0 and 5: %w", pkgerrors.ErrInvalidArgument)
		}
		out["rating"] = *p.Rating
	}
	if p.ImageURL != nil {
		out["image_url"] = strings.TrimSpace(*p.ImageURL)
	}
	if p.DeliveryFee != nil {
		out["delivery_fee"] = strings.TrimSpace(*p.DeliveryFee)
	}
	if p.DeliveryTime != nil {
		out["delivery_time"] = strings.TrimSpace(*p.DeliveryTime)
	}
	return out, nil
}

// changed drops the local cache and publishes CatalogChanged; every instance
// reloads when its bus forwarder delivers the event.
func (cs *catalogService) changed(ctx context.Context) {
	cs.cache.Invalidate()
	cs.notifier.CatalogChanged(ctx)
}

func failure(msg string) notification.Notification {
	return notification.New(notification.Failure, msg, timeNow())
}

func success(msg string) notification.Notification {
	return notification.New(notification.Success, msg, timeNow())
}

func (cs *catalogService) Create(ctx context.Context, draft RestaurantDraft) (AdminResult, error) {
	r, err := draft.build()
	if err != nil {
		return AdminResult{Notification: failure(MessageRestaurantSaveErr)}, err
	}
	created, err := cs.repo.Create(ctx, nil, r)
	if err != nil {
		cs.log.Warn("Create restaurant failed", "error", err)
		return AdminResult{Notification: failure(MessageRestaurantSaveErr)}, err
	}
	cs.log.Info("Restaurant created", "restaurant_id", created.ID)
	cs.changed(ctx)
	return AdminResult{Restaurant: created, Notification: success(MessageRestaurantCreated)}, nil
}

func (cs *catalogService) Update(ctx context.Context, id int64, patch RestaurantPatch) (AdminResult, error) {
	fields, err := patch.fields()
	if err != nil {
		return AdminResult{Notification: failure(MessageRestaurantSaveErr)}, err
	}
	updated, err := cs.repo.Update(ctx, nil, id, fields)
	if err != nil {
		cs.log.Warn("Update restaurant failed", "restaurant_id", id, "error", err)
		return AdminResult{Notification: failure(MessageRestaurantSaveErr)}, err
	}
	cs.log.Info("Restaurant updated", "restaurant_id", id)
	cs.changed(ctx)
	return AdminResult{Restaurant: updated, Notification: success(MessageRestaurantUpdated)}, nil
}

func (cs *catalogService) Delete(ctx context.Context, id int64) (AdminResult, error) {
	if err := cs.repo.Delete(ctx, nil, id); err != nil {
		cs.log.Warn("Delete restaurant failed", "restaurant_id", id, "error", err)
		return AdminResult{Notification: failure(MessageRestaurantDelErr)}, err
	}
	cs.log.Info("Restaurant deleted", "restaurant_id", id)
	cs.changed(ctx)
	return AdminResult{Notification: success(MessageRestaurantDeleted)}, nil
}
