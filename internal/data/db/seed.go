package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/domain/catalog"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

const catalogSeedEnv = "CATALOG_SEED_YAML"

//go:embed seed/catalog.yaml
var seedFS embed.FS

type yamlCatalog struct {
	Restaurants []yamlRestaurant `yaml:"restaurants"`
}

type yamlRestaurant struct {
	ID           int64          `yaml:"id"`
	Name         string         `yaml:"name"`
	Category     string         `yaml:"category"`
	ImageURL     string         `yaml:"image_url"`
	Rating       float64        `yaml:"rating"`
	DeliveryFee  string         `yaml:"delivery_fee"`
	DeliveryTime string         `yaml:"delivery_time"`
	Menu         []yamlMenuItem `yaml:"menu"`
}

type yamlMenuItem struct {
	ID          int64             `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Price       string            `yaml:"price"`
	ImageURL    string            `yaml:"image_url"`
	Rating      float64           `yaml:"rating"`
	Reviews     int               `yaml:"reviews"`
	Featured    bool              `yaml:"featured"`
	Ingredients []cart.Ingredient `yaml:"ingredients"`
}

func readCatalogSeed() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(catalogSeedEnv)); path != "" {
		return os.ReadFile(path)
	}
	return seedFS.ReadFile("seed/catalog.yaml")
}

// ParseCatalogSeed decodes a seed document into catalog rows.
func ParseCatalogSeed(data []byte) ([]catalog.Restaurant, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	if len(doc.Restaurants) == 0 {
		return nil, errors.New("catalog seed has no restaurants")
	}
	out := make([]catalog.Restaurant, 0, len(doc.Restaurants))
	for _, yr := range doc.Restaurants {
		if strings.TrimSpace(yr.Name) == "" {
			return nil, fmt.Errorf("restaurant %d: name required", yr.ID)
		}
		r := catalog.Restaurant{
			ID:           yr.ID,
			Name:         yr.Name,
			Category:     yr.Category,
			ImageURL:     yr.ImageURL,
			Rating:       yr.Rating,
			DeliveryFee:  yr.DeliveryFee,
			DeliveryTime: yr.DeliveryTime,
		}
		for _, ym := range yr.Menu {
			price, err := decimal.NewFromString(ym.Price)
			if err != nil {
				return nil, fmt.Errorf("menu item %d: bad price %q: %w", ym.ID, ym.Price, err)
			}
			item := catalog.MenuItem{
				ID:           ym.ID,
				RestaurantID: yr.ID,
				Name:         ym.Name,
				Description:  ym.Description,
				Price:        price,
				ImageURL:     ym.ImageURL,
				Rating:       ym.Rating,
				ReviewCount:  ym.Reviews,
				IsFeatured:   ym.Featured,
			}
			if err := item.SetIngredients(ym.Ingredients); err != nil {
				return nil, err
			}
			r.Menu = append(r.Menu, item)
		}
		out = append(out, r)
	}
	return out, nil
}

// SeedCatalog inserts the seed catalog when the restaurants table is empty.
func SeedCatalog(ctx context.Context, gdb *gorm.DB, log *logger.Logger) (int, error) {
	var count int64
	if err := gdb.WithContext(ctx).Model(&catalog.Restaurant{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		log.Debug("Catalog already populated, skipping seed", "restaurants", count)
		return 0, nil
	}
	raw, err := readCatalogSeed()
	if err != nil {
		return 0, fmt.Errorf("read catalog seed: %w", err)
	}
	restaurants, err := ParseCatalogSeed(raw)
	if err != nil {
		return 0, err
	}
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range restaurants {
			if err := tx.Create(&restaurants[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	log.Info("Catalog seeded", "restaurants", len(restaurants))
	return len(restaurants), nil
}
