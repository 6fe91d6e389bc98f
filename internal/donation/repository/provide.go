package repository

import (
	"github.com/hopelink/givecoin/internal/config"
	"github.com/hopelink/givecoin/internal/donation/domain"
	"gorm.io/gorm"
)

// Provide selects the repository backend from configuration and, for the
// database backend, ensures the donations table exists.
func Provide(cfg config.Config, db *gorm.DB) (domain.Repository, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		return NewMemory(), nil
	}
	if err := db.AutoMigrate(&domain.Donation{}); err != nil {
		return nil, err
	}
	return NewGorm(db), nil
}
