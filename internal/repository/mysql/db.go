package mysql

import (
	"log"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/product"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/user"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Init opens the global GORM handle and migrates the schema.
func Init(cfg *config.MySQLConfig) *gorm.DB {
	once.Do(func() {
		var err error
		db, err = gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}

		if err = Migrate(db); err != nil {
			log.Fatalf("auto migrate failed: %v", err)
		}
	})
	return db
}

// Migrate creates/updates the tables this core owns or references.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&product.Product{},
		&order.Order{},
		&order.OrderItem{},
		&payment.Payment{},
	)
}

// DB returns the global handle.
func DB() *gorm.DB {
	return db
}
