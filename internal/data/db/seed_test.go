package db

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/estrella-backend/internal/domain/catalog"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

func TestParseEmbeddedCatalogSeed(t *testing.T) {
	raw, err := seedFS.ReadFile("seed/catalog.yaml")
	if err != nil {
		t.Fatalf("read embedded seed: %v", err)
	}
	restaurants, err := ParseCatalogSeed(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(restaurants) != 2 {
		t.Fatalf("want 2 restaurants, got %d", len(restaurants))
	}
	rose := restaurants[0]
	pizza, ok := rose.FindItem(101)
	if !ok {
		t.Fatalf("menu item 101 missing")
	}
	if pizza.Name != "Pizza Margherita" || !pizza.Price.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected pizza: %+v", pizza)
	}
	if got := pizza.IngredientList(); len(got) != 3 || got[0].Name != "Tomate" {
		t.Fatalf("unexpected ingredients: %+v", got)
	}
	if restaurants[1].DeliveryFee != "$20" {
		t.Fatalf("delivery fee label: %q", restaurants[1].DeliveryFee)
	}
}

func TestParseCatalogSeedRejectsBadPrice(t *testing.T) {
	doc := []byte("restaurants:\n  - id: 1\n    name: X\n    menu:\n      - id: 2\n        name: Y\n        price: abc\n")
	if _, err := ParseCatalogSeed(doc); err == nil {
		t.Fatalf("expected error for bad price")
	}
}

func TestSeedCatalogIsIdempotent(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:seedtest?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logger.Nop()
	n, err := SeedCatalog(context.Background(), gdb, log)
	if err != nil || n != 2 {
		t.Fatalf("first seed: n=%d err=%v", n, err)
	}
	n, err = SeedCatalog(context.Background(), gdb, log)
	if err != nil || n != 0 {
		t.Fatalf("second seed should skip: n=%d err=%v", n, err)
	}
	var items int64
	gdb.Model(&catalog.MenuItem{}).Count(&items)
	if items != 5 {
		t.Fatalf("want 5 menu items, got %d", items)
	}
}
