package models

import (
	"encoding/json"
	"time"

	"github.com/erp/platform/internal/domain/module"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("platform.models")

// ModuleEnablementModel is the persistence model for per-tenant module
// enablement. The (tenant_id, module_code) pair is the natural key.
type ModuleEnablementModel struct {
	TenantID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	ModuleCode string    `gorm:"type:varchar(100);primaryKey"`
	IsEnabled  bool      `gorm:"not null;index"`
	ConfigJSON string    `gorm:"column:config;type:jsonb;default:'{}'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (ModuleEnablementModel) TableName() string {
	return "module_enablements"
}

// ToDomain converts the persistence model to a domain Enablement.
func (m *ModuleEnablementModel) ToDomain() *module.Enablement {
	e := &module.Enablement{
		TenantID:   m.TenantID,
		ModuleCode: m.ModuleCode,
		IsEnabled:  m.IsEnabled,
		Config:     make(map[string]any),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}

	if m.ConfigJSON != "" && m.ConfigJSON != "{}" {
		var cfg map[string]any
		if err := json.Unmarshal([]byte(m.ConfigJSON), &cfg); err != nil {
			modelLogger.Warn("failed to parse enablement config JSON",
				zap.String("module_code", m.ModuleCode),
				zap.String("raw_json", m.ConfigJSON),
				zap.Error(err))
		} else {
			e.Config = cfg
		}
	}

	return e
}

// FromDomain populates the persistence model from a domain Enablement.
func (m *ModuleEnablementModel) FromDomain(e *module.Enablement) {
	m.TenantID = e.TenantID
	m.ModuleCode = e.ModuleCode
	m.IsEnabled = e.IsEnabled
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt

	if len(e.Config) > 0 {
		if jsonBytes, err := json.Marshal(e.Config); err == nil {
			m.ConfigJSON = string(jsonBytes)
		} else {
			m.ConfigJSON = "{}"
		}
	} else {
		m.ConfigJSON = "{}"
	}
}

// ModuleEnablementModelFromDomain creates a new persistence model from a
// domain Enablement.
func ModuleEnablementModelFromDomain(e *module.Enablement) *ModuleEnablementModel {
	m := &ModuleEnablementModel{}
	m.FromDomain(e)
	return m
}
