package dto

import "github.com/erp/platform/internal/domain/module"

// ModuleCodeURI binds and validates the module code path parameter.
type ModuleCodeURI struct {
	Code string `uri:"code" binding:"required,modulecode"`
}

// EnableModuleRequest carries optional config overrides for enabling a module
type EnableModuleRequest struct {
	Config map[string]any `json:"config"`
}

// UpdateModuleConfigRequest carries config values to merge into an enabled
// module's stored config
type UpdateModuleConfigRequest struct {
	Config map[string]any `json:"config" binding:"required"`
}

// ModuleStatusResponse pairs a module definition with its enablement state
// for the requesting tenant.
type ModuleStatusResponse struct {
	Definition *module.Definition `json:"definition"`
	IsEnabled  bool               `json:"is_enabled"`
}
