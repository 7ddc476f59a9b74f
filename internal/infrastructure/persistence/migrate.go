package persistence

import (
	"fmt"

	"github.com/erp/platform/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the kernel tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.ModuleEnablementModel{},
		&models.EventAuditModel{},
		&models.TriggerModel{},
		&models.TriggerExecutionModel{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
