package handler

import (
	"sort"

	appmodule "github.com/erp/platform/internal/application/module"
	"github.com/erp/platform/internal/domain/module"
	"github.com/erp/platform/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ModuleHandler serves the module catalog and the per-tenant enablement
// surface.
type ModuleHandler struct {
	BaseHandler
	registry *module.Registry
	service  *appmodule.Service
}

// NewModuleHandler creates a new ModuleHandler
func NewModuleHandler(registry *module.Registry, service *appmodule.Service) *ModuleHandler {
	return &ModuleHandler{registry: registry, service: service}
}

// RegisterRoutes registers module routes
func (h *ModuleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	modules := rg.Group("/modules")
	{
		modules.GET("", h.ListDefinitions)
		modules.GET("/enabled", h.ListEnabled)
		modules.GET("/enabled/validate", h.ValidateEnabled)
		modules.POST("/initialize", h.InitializeDefaults)
		modules.GET("/:code", h.GetModule)
		modules.GET("/:code/dependencies", h.GetDependencies)
		modules.POST("/:code/enable", h.Enable)
		modules.POST("/:code/disable", h.Disable)
		modules.PUT("/:code/config", h.UpdateConfig)
	}
}

// ListDefinitions returns every registered module definition, sorted by code.
func (h *ModuleHandler) ListDefinitions(c *gin.Context) {
	defs := h.registry.GetAll()
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	h.Success(c, defs)
}

// GetModule returns one module definition with its enablement state for the
// requesting tenant.
func (h *ModuleHandler) GetModule(c *gin.Context) {
	var uri dto.ModuleCodeURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "invalid module code")
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}

	def, exists := h.registry.Get(uri.Code)
	if !exists {
		h.NotFound(c, "module '"+uri.Code+"' is not registered")
		return
	}
	enabled, err := h.service.IsModuleEnabled(c.Request.Context(), tenantID, uri.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ModuleStatusResponse{Definition: def, IsEnabled: enabled})
}

// GetDependencies returns the transitive dependency closure of a module.
func (h *ModuleHandler) GetDependencies(c *gin.Context) {
	var uri dto.ModuleCodeURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "invalid module code")
		return
	}
	if _, exists := h.registry.Get(uri.Code); !exists {
		h.NotFound(c, "module '"+uri.Code+"' is not registered")
		return
	}
	h.Success(c, h.registry.GetDependencies(uri.Code))
}

// ListEnabled returns the tenant's enabled modules, core modules included.
func (h *ModuleHandler) ListEnabled(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}
	enabled, err := h.service.GetEnabledModules(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, enabled)
}

// ValidateEnabled checks the tenant's enabled-module set for missing
// dependencies and conflicts.
func (h *ModuleHandler) ValidateEnabled(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}
	enabled, err := h.service.GetEnabledModules(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	codes := make([]string, 0, len(enabled))
	for _, e := range enabled {
		codes = append(codes, e.ModuleCode)
	}
	h.Success(c, h.registry.ValidateSet(codes))
}

// Enable enables a module for the tenant, with optional config overrides.
func (h *ModuleHandler) Enable(c *gin.Context) {
	var uri dto.ModuleCodeURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "invalid module code")
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}

	var req dto.EnableModuleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	enablement, err := h.service.EnableModule(c.Request.Context(), tenantID, uri.Code, req.Config)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, enablement)
}

// Disable disables a module for the tenant.
func (h *ModuleHandler) Disable(c *gin.Context) {
	var uri dto.ModuleCodeURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "invalid module code")
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}

	if err := h.service.DisableModule(c.Request.Context(), tenantID, uri.Code); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UpdateConfig merges new config values into an enabled module's config.
func (h *ModuleHandler) UpdateConfig(c *gin.Context) {
	var uri dto.ModuleCodeURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "invalid module code")
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}

	var req dto.UpdateModuleConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	enablement, err := h.service.UpdateModuleConfig(c.Request.Context(), tenantID, uri.Code, req.Config)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, enablement)
}

// InitializeDefaults enables every core and default-enabled module for the
// tenant, typically called once when a tenant is provisioned.
func (h *ModuleHandler) InitializeDefaults(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}
	if err := h.service.InitializeDefaultModules(c.Request.Context(), tenantID); err != nil {
		h.HandleError(c, err)
		return
	}
	enabled, err := h.service.GetEnabledModules(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, enabled)
}
