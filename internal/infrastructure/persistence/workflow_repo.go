package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/platform/internal/domain/shared"
	"github.com/erp/platform/internal/domain/workflow"
	"github.com/erp/platform/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWorkflowRepository implements workflow.Repository plus the trigger
// management operations of the admin surface.
type GormWorkflowRepository struct {
	db *gorm.DB
}

// NewGormWorkflowRepository creates a new GormWorkflowRepository
func NewGormWorkflowRepository(db *gorm.DB) *GormWorkflowRepository {
	return &GormWorkflowRepository{db: db}
}

// FindEnabledTriggers returns the tenant's enabled triggers for an event type.
func (r *GormWorkflowRepository) FindEnabledTriggers(ctx context.Context, tenantID uuid.UUID, eventType string) ([]*workflow.Trigger, error) {
	var rows []models.TriggerModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND event_type = ? AND enabled = ?", tenantID, eventType, true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*workflow.Trigger, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].ToDomain())
	}
	return result, nil
}

// RecordExecution appends one trigger execution record.
func (r *GormWorkflowRepository) RecordExecution(ctx context.Context, execution *workflow.Execution) error {
	m := models.TriggerExecutionModelFromDomain(execution)
	m.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(m).Error
}

// SaveTrigger inserts or updates a trigger definition.
func (r *GormWorkflowRepository) SaveTrigger(ctx context.Context, t *workflow.Trigger) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m := models.TriggerModelFromDomain(t)
	return r.db.WithContext(ctx).Save(m).Error
}

// GetTrigger returns one trigger scoped to the tenant.
func (r *GormWorkflowRepository) GetTrigger(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Trigger, error) {
	var m models.TriggerModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// ListTriggers returns all of the tenant's triggers.
func (r *GormWorkflowRepository) ListTriggers(ctx context.Context, tenantID uuid.UUID) ([]*workflow.Trigger, error) {
	var rows []models.TriggerModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*workflow.Trigger, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].ToDomain())
	}
	return result, nil
}

// DeleteTrigger removes a trigger scoped to the tenant.
func (r *GormWorkflowRepository) DeleteTrigger(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.TriggerModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListExecutions returns a trigger's execution records, newest first.
func (r *GormWorkflowRepository) ListExecutions(ctx context.Context, tenantID, triggerID uuid.UUID, limit int) ([]*workflow.Execution, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.TriggerExecutionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND trigger_id = ?", tenantID, triggerID).
		Order("executed_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*workflow.Execution, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].ToDomain())
	}
	return result, nil
}
