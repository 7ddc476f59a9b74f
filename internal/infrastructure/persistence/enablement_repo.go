package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/platform/internal/domain/module"
	"github.com/erp/platform/internal/domain/shared"
	"github.com/erp/platform/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEnablementRepository implements module.EnablementRepository using GORM
type GormEnablementRepository struct {
	db *gorm.DB
}

// NewGormEnablementRepository creates a new GormEnablementRepository
func NewGormEnablementRepository(db *gorm.DB) *GormEnablementRepository {
	return &GormEnablementRepository{db: db}
}

// Upsert inserts or replaces the enablement row for (tenant, module).
func (r *GormEnablementRepository) Upsert(ctx context.Context, e *module.Enablement) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	m := models.ModuleEnablementModelFromDomain(e)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "module_code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_enabled", "config", "updated_at",
			}),
		}).
		Create(m).Error
}

// Get returns the enablement row for (tenant, module), or shared.ErrNotFound.
func (r *GormEnablementRepository) Get(ctx context.Context, tenantID uuid.UUID, code string) (*module.Enablement, error) {
	var m models.ModuleEnablementModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND module_code = ?", tenantID, code).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// ListEnabled returns the tenant's enabled modules.
func (r *GormEnablementRepository) ListEnabled(ctx context.Context, tenantID uuid.UUID) ([]*module.Enablement, error) {
	var rows []models.ModuleEnablementModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_enabled = ?", tenantID, true).
		Order("module_code ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*module.Enablement, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].ToDomain())
	}
	return result, nil
}
