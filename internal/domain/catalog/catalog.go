package catalog

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/yungbote/estrella-backend/internal/domain/cart"
)

// Restaurant owns its menu. DeliveryFee is the label shown on the card
// ("Gratis", "$25"); checkout prices delivery from the configured FeePolicy.
type Restaurant struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string     `gorm:"column:name;not null;index" json:"name"`
	Category     string     `gorm:"column:category;not null;index" json:"category"`
	ImageURL     string     `gorm:"column:image_url" json:"imageUrl"`
	Rating       float64    `gorm:"column:rating;not null;default:0" json:"rating"`
	DeliveryFee  string     `gorm:"column:delivery_fee" json:"deliveryFee"`
	DeliveryTime string     `gorm:"column:delivery_time" json:"deliveryTime"`
	Menu         []MenuItem `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE" json:"menu"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Restaurant) TableName() string { return "restaurants" }

func (r *Restaurant) FindItem(id int64) (*MenuItem, bool) {
	for i := range r.Menu {
		if r.Menu[i].ID == id {
			return &r.Menu[i], true
		}
	}
	return nil, false
}

type MenuItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantID int64           `gorm:"column:restaurant_id;not null;index" json:"restaurantId"`
	Name         string          `gorm:"column:name;not null" json:"name"`
	Description  string          `gorm:"column:description" json:"description"`
	Price        decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null" json:"price"`
	ImageURL     string          `gorm:"column:image_url" json:"imageUrl,omitempty"`
	Rating       float64         `gorm:"column:rating" json:"rating,omitempty"`
	ReviewCount  int             `gorm:"column:review_count" json:"reviews,omitempty"`
	Ingredients  datatypes.JSON  `gorm:"column:ingredients" json:"ingredients,omitempty"`
	IsFeatured   bool            `gorm:"column:is_featured;not null;default:false" json:"isPopular,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (MenuItem) TableName() string { return "menu_items" }

func (m MenuItem) IngredientList() []cart.Ingredient {
	if len(m.Ingredients) == 0 {
		return nil
	}
	var out []cart.Ingredient
	if err := json.Unmarshal(m.Ingredients, &out); err != nil {
		return nil
	}
	return out
}

func (m *MenuItem) SetIngredients(in []cart.Ingredient) error {
	raw, err := json.Marshal(cart.NormalizeIngredients(in))
	if err != nil {
		return err
	}
	m.Ingredients = datatypes.JSON(raw)
	return nil
}

// Snapshot freezes the fields a cart line keeps.
func (m MenuItem) Snapshot() cart.ProductSnapshot {
	return cart.ProductSnapshot{
		ID:              m.ID,
		RestaurantID:    m.RestaurantID,
		Name:            m.Name,
		UnitPrice:       m.Price,
		ImageURL:        m.ImageURL,
		BaseIngredients: m.IngredientList(),
	}
}
