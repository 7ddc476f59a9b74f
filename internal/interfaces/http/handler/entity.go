package handler

import (
	"fmt"

	"github.com/erp/platform/internal/domain/entity"
	"github.com/erp/platform/internal/domain/shared"
	"github.com/erp/platform/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// EntityHandler serves the composed entity schemas of the data bus and
// executes extension-contributed actions.
type EntityHandler struct {
	BaseHandler
	registry *entity.Registry
}

// NewEntityHandler creates a new EntityHandler
func NewEntityHandler(registry *entity.Registry) *EntityHandler {
	return &EntityHandler{registry: registry}
}

// RegisterRoutes registers entity routes
func (h *EntityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	entities := rg.Group("/entities")
	{
		entities.GET("", h.List)
		entities.GET("/:code/schema", h.GetSchema)
		entities.GET("/:code/fields", h.ListFields)
		entities.GET("/:code/actions", h.ListActions)
		entities.GET("/:code/tabs", h.ListTabs)
		entities.POST("/:code/actions/:action", h.ExecuteAction)
	}
}

// List returns the codes of all registered entities.
func (h *EntityHandler) List(c *gin.Context) {
	h.Success(c, h.registry.Codes())
}

// GetSchema returns the composed view of an entity: base fields, every
// extension's contributions and their provenance.
func (h *EntityHandler) GetSchema(c *gin.Context) {
	code := c.Param("code")
	schema := h.registry.GetSchema(code)
	if schema == nil {
		h.HandleError(c, fmt.Errorf("%w: entity '%s'", shared.ErrUnknownEntity, code))
		return
	}
	h.Success(c, schema)
}

// ListFields returns base fields followed by extended fields in
// registration order.
func (h *EntityHandler) ListFields(c *gin.Context) {
	code := c.Param("code")
	if _, exists := h.registry.GetEntity(code); !exists {
		h.HandleError(c, fmt.Errorf("%w: entity '%s'", shared.ErrUnknownEntity, code))
		return
	}
	h.Success(c, h.registry.GetFields(code))
}

// ListActions returns the actions extensions contributed to an entity.
func (h *EntityHandler) ListActions(c *gin.Context) {
	code := c.Param("code")
	if _, exists := h.registry.GetEntity(code); !exists {
		h.HandleError(c, fmt.Errorf("%w: entity '%s'", shared.ErrUnknownEntity, code))
		return
	}

	actions := h.registry.GetActions(code)
	views := make([]dto.ActionView, 0, len(actions))
	for _, a := range actions {
		views = append(views, dto.NewActionView(a))
	}
	h.Success(c, views)
}

// ListTabs returns the UI tabs contributed to an entity, in render order.
func (h *EntityHandler) ListTabs(c *gin.Context) {
	code := c.Param("code")
	if _, exists := h.registry.GetEntity(code); !exists {
		h.HandleError(c, fmt.Errorf("%w: entity '%s'", shared.ErrUnknownEntity, code))
		return
	}
	h.Success(c, h.registry.GetTabs(code))
}

// ExecuteAction invokes an extension-contributed action on an entity.
func (h *EntityHandler) ExecuteAction(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}

	var req dto.ExecuteActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.registry.ExecuteAction(c.Request.Context(), c.Param("code"), c.Param("action"), &entity.ActionContext{
		TenantID:  tenantID,
		Params:    req.Params,
		RecordIDs: req.RecordIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ActionResult{Result: result})
}
