package handler

import (
	"context"

	"github.com/erp/platform/internal/domain/workflow"
	"github.com/erp/platform/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TriggerStore is the trigger management surface behind the workflow API.
type TriggerStore interface {
	SaveTrigger(ctx context.Context, t *workflow.Trigger) error
	GetTrigger(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Trigger, error)
	ListTriggers(ctx context.Context, tenantID uuid.UUID) ([]*workflow.Trigger, error)
	DeleteTrigger(ctx context.Context, tenantID, id uuid.UUID) error
	ListExecutions(ctx context.Context, tenantID, triggerID uuid.UUID, limit int) ([]*workflow.Execution, error)
}

// WorkflowHandler manages the tenant's automation triggers and their
// execution history.
type WorkflowHandler struct {
	BaseHandler
	store TriggerStore
}

// NewWorkflowHandler creates a new WorkflowHandler
func NewWorkflowHandler(store TriggerStore) *WorkflowHandler {
	return &WorkflowHandler{store: store}
}

// RegisterRoutes registers workflow routes
func (h *WorkflowHandler) RegisterRoutes(rg *gin.RouterGroup) {
	triggers := rg.Group("/workflows/triggers")
	{
		triggers.POST("", h.Create)
		triggers.GET("", h.List)
		triggers.GET("/:id", h.Get)
		triggers.PUT("/:id", h.Update)
		triggers.DELETE("/:id", h.Delete)
		triggers.GET("/:id/executions", h.ListExecutions)
	}
}

// Create registers a new automation trigger for the tenant.
func (h *WorkflowHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}

	var req dto.SaveTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	trigger := req.ToDomain(tenantID)
	if err := h.store.SaveTrigger(c.Request.Context(), trigger); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, trigger)
}

// List returns all of the tenant's triggers.
func (h *WorkflowHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}
	triggers, err := h.store.ListTriggers(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, triggers)
}

// Get returns one trigger.
func (h *WorkflowHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.triggerScope(c)
	if !ok {
		return
	}
	trigger, err := h.store.GetTrigger(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trigger)
}

// Update replaces a trigger's definition, keeping its identity.
func (h *WorkflowHandler) Update(c *gin.Context) {
	tenantID, id, ok := h.triggerScope(c)
	if !ok {
		return
	}

	var req dto.SaveTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if _, err := h.store.GetTrigger(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}

	trigger := req.ToDomain(tenantID)
	trigger.ID = id
	if err := h.store.SaveTrigger(c.Request.Context(), trigger); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trigger)
}

// Delete removes a trigger.
func (h *WorkflowHandler) Delete(c *gin.Context) {
	tenantID, id, ok := h.triggerScope(c)
	if !ok {
		return
	}
	if err := h.store.DeleteTrigger(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListExecutions returns a trigger's execution records, newest first.
func (h *WorkflowHandler) ListExecutions(c *gin.Context) {
	tenantID, id, ok := h.triggerScope(c)
	if !ok {
		return
	}

	var req dto.ExecutionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	executions, err := h.store.ListExecutions(c.Request.Context(), tenantID, id, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, executions)
}

// triggerScope resolves the tenant and the trigger ID path parameter,
// writing the error response itself when either is invalid.
func (h *WorkflowHandler) triggerScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid trigger ID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
