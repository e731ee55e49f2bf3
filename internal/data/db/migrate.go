package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/domain/catalog"
	"github.com/yungbote/estrella-backend/internal/domain/orders"
	"github.com/yungbote/estrella-backend/internal/domain/user"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity
		&user.User{},

		// Catalog
		&catalog.Restaurant{},
		&catalog.MenuItem{},

		// Intake
		&orders.Order{},
		&orders.ServiceRequest{},
	)
}
