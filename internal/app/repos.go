package app

import (
	"gorm.io/gorm"

	catalogrepo "github.com/yungbote/estrella-backend/internal/data/repos/catalog"
	ordersrepo "github.com/yungbote/estrella-backend/internal/data/repos/orders"
	userrepo "github.com/yungbote/estrella-backend/internal/data/repos/user"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

type Repos struct {
	User           userrepo.UserRepo
	Restaurant     catalogrepo.RestaurantRepo
	Order          ordersrepo.OrderRepo
	ServiceRequest ordersrepo.ServiceRequestRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           userrepo.NewUserRepo(db, log),
		Restaurant:     catalogrepo.NewRestaurantRepo(db, log),
		Order:          ordersrepo.NewOrderRepo(db, log),
		ServiceRequest: ordersrepo.NewServiceRequestRepo(db, log),
	}
}
