package persistence

import (
	"context"
	"time"

	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEventAuditRepository implements event.AuditStore using GORM. The
// audit log is append-only.
type GormEventAuditRepository struct {
	db *gorm.DB
}

// NewGormEventAuditRepository creates a new GormEventAuditRepository
func NewGormEventAuditRepository(db *gorm.DB) *GormEventAuditRepository {
	return &GormEventAuditRepository{db: db}
}

// Append persists one event.
func (r *GormEventAuditRepository) Append(ctx context.Context, evt *event.Event) error {
	m := models.EventAuditModelFromDomain(evt)
	m.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(m).Error
}

// Query returns matching events, newest first.
func (r *GormEventAuditRepository) Query(ctx context.Context, q event.HistoryQuery) ([]*event.Event, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = event.DefaultHistoryLimit
	}

	query := r.db.WithContext(ctx).Model(&models.EventAuditModel{})
	if q.TenantID != uuid.Nil {
		query = query.Where("tenant_id = ?", q.TenantID)
	}
	if q.EntityType != "" {
		query = query.Where("entity_type = ?", q.EntityType)
	}
	if q.EntityID != "" {
		query = query.Where("entity_id = ?", q.EntityID)
	}
	if q.EventType != "" {
		query = query.Where("type = ?", q.EventType)
	}

	var rows []models.EventAuditModel
	err := query.
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*event.Event, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].ToDomain())
	}
	return result, nil
}
