package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/data/repos"
	types "github.com/yungbote/estrella-backend/internal/domain/catalog"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

// Filter narrows List. An empty Category or "All" matches every restaurant.
// Query matches restaurant names and menu item names.
type Filter struct {
	Category string
	Query    string
}

func (f Filter) normalized() Filter {
	cat := strings.TrimSpace(f.Category)
	switch strings.ToLower(cat) {
	case "all", "todos", "todas":
		cat = ""
	}
	return Filter{Category: strings.ToLower(cat), Query: strings.ToLower(strings.TrimSpace(f.Query))}
}

// Match applies the filter in memory with the same rules as List.
func (f Filter) Match(r *types.Restaurant) bool {
	if r == nil {
		return false
	}
	n := f.normalized()
	if n.Category != "" && !strings.Contains(strings.ToLower(r.Category), n.Category) {
		return false
	}
	if n.Query == "" || strings.Contains(strings.ToLower(r.Name), n.Query) {
		return true
	}
	for _, item := range r.Menu {
		if strings.Contains(strings.ToLower(item.Name), n.Query) {
			return true
		}
	}
	return false
}

// UpdatableColumns are the restaurant columns admins may patch.
var UpdatableColumns = map[string]bool{
	"name":          true,
	"category":      true,
	"image_url":     true,
	"rating":        true,
	"delivery_fee":  true,
	"delivery_time": true,
}

type RestaurantRepo interface {
	List(ctx context.Context, tx *gorm.DB, filter Filter) ([]*types.Restaurant, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Restaurant, error)
	GetItem(ctx context.Context, tx *gorm.DB, restaurantID, itemID int64) (*types.MenuItem, error)
	Create(ctx context.Context, tx *gorm.DB, restaurant *types.Restaurant) (*types.Restaurant, error)
	Update(ctx context.Context, tx *gorm.DB, id int64, fields map[string]any) (*types.Restaurant, error)
	Delete(ctx context.Context, tx *gorm.DB, id int64) error
}

type restaurantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRestaurantRepo(db *gorm.DB, baseLog *logger.Logger) RestaurantRepo {
	repoLog := baseLog.With("repo", "RestaurantRepo")
	return &restaurantRepo{db: db, log: repoLog}
}

func preloadMenu(db *gorm.DB) *gorm.DB {
	return db.Order("menu_items.id ASC")
}

func (r *restaurantRepo) List(ctx context.Context, tx *gorm.DB, filter Filter) ([]*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	f := filter.normalized()

	q := transaction.WithContext(ctx).Model(&types.Restaurant{}).Preload("Menu", preloadMenu)
	if f.Category != "" {
		q = q.Where("LOWER(restaurants.category) LIKE ?", "%"+f.Category+"%")
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where(
			"LOWER(restaurants.name) LIKE ? OR EXISTS (SELECT 1 FROM menu_items mi WHERE mi.restaurant_id = restaurants.id AND LOWER(mi.name) LIKE ?)",
			like, like,
		)
	}

	var results []*types.Restaurant
	if err := q.Order("restaurants.id ASC").Find(&results).Error; err != nil {
		return nil, repos.MapError("list restaurants", err)
	}
	return results, nil
}

func (r *restaurantRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Restaurant
	if err := transaction.WithContext(ctx).
		Preload("Menu", preloadMenu).
		Where("id = ?", id).
		First(&out).Error; err != nil {
		return nil, repos.MapError("get restaurant", err)
	}
	return &out, nil
}

func (r *restaurantRepo) GetItem(ctx context.Context, tx *gorm.DB, restaurantID, itemID int64) (*types.MenuItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.MenuItem
	if err := transaction.WithContext(ctx).
		Where("restaurant_id = ? AND id = ?", restaurantID, itemID).
		First(&out).Error; err != nil {
		return nil, repos.MapError("get menu item", err)
	}
	return &out, nil
}

func (r *restaurantRepo) Create(ctx context.Context, tx *gorm.DB, restaurant *types.Restaurant) (*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if restaurant == nil {
		return nil, errors.New("restaurant required")
	}
	if err := transaction.WithContext(ctx).Create(restaurant).Error; err != nil {
		return nil, repos.MapError("create restaurant", err)
	}
	return restaurant, nil
}

func (r *restaurantRepo) Update(ctx context.Context, tx *gorm.DB, id int64, fields map[string]any) (*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if UpdatableColumns[k] {
			clean[k] = v
		}
	}
	if len(clean) > 0 {
		res := transaction.WithContext(ctx).
			Model(&types.Restaurant{}).
			Where("id = ?", id).
			Updates(clean)
		if res.Error != nil {
			return nil, repos.MapError("update restaurant", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, repos.MapError("update restaurant", gorm.ErrRecordNotFound)
		}
	}
	return r.GetByID(ctx, transaction, id)
}

func (r *restaurantRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Where("restaurant_id = ?", id).Delete(&types.MenuItem{}).Error; err != nil {
			return repos.MapError("delete menu items", err)
		}
		res := inner.Where("id = ?", id).Delete(&types.Restaurant{})
		if res.Error != nil {
			return repos.MapError("delete restaurant", res.Error)
		}
		if res.RowsAffected == 0 {
			return repos.MapError("delete restaurant", gorm.ErrRecordNotFound)
		}
		return nil
	})
}
