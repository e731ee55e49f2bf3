package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/estrella-backend/internal/data/db"
	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/domain/catalog"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	dbSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a migrated in-memory sqlite database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := fmt.Sprintf("file:estrella_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

// SeedRestaurant inserts a restaurant with the given menu item names priced
// at 100, 200, ... in order.
func SeedRestaurant(tb testing.TB, gdb *gorm.DB, name, category string, items ...string) *catalog.Restaurant {
	tb.Helper()
	r := &catalog.Restaurant{Name: name, Category: category, DeliveryFee: "Free", DeliveryTime: "20 min"}
	for i, itemName := range items {
		item := catalog.MenuItem{
			Name:  itemName,
			Price: decimal.NewFromInt(int64(100 * (i + 1))),
		}
		if err := item.SetIngredients([]cart.Ingredient{{Name: "Queso"}, {Name: "Tomate"}}); err != nil {
			tb.Fatalf("ingredients: %v", err)
		}
		r.Menu = append(r.Menu, item)
	}
	if err := gdb.Create(r).Error; err != nil {
		tb.Fatalf("seed restaurant: %v", err)
	}
	return r
}
