package handler

import (
	appevent "github.com/erp/platform/internal/application/event"
	"github.com/erp/platform/internal/domain/event"
	"github.com/erp/platform/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// EventHandler exposes event publication and the audit history.
type EventHandler struct {
	BaseHandler
	bus *appevent.Bus
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(bus *appevent.Bus) *EventHandler {
	return &EventHandler{bus: bus}
}

// RegisterRoutes registers event routes
func (h *EventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/events")
	{
		events.POST("", h.Emit)
		events.GET("/history", h.History)
	}
}

// Emit publishes an event on the bus. Local subscribers have already run
// when the response is sent; remote delivery and trigger actions are
// asynchronous from the caller's point of view.
func (h *EventHandler) Emit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}

	var req dto.EmitEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	evt, err := h.bus.EmitNew(c.Request.Context(), req.Type, tenantID, req.EntityType, req.EntityID, req.Payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, evt)
}

// History reads the tenant's audit log, newest first.
func (h *EventHandler) History(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "invalid tenant ID")
		return
	}

	var req dto.EventHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	events, err := h.bus.GetHistory(c.Request.Context(), event.HistoryQuery{
		TenantID:   tenantID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		EventType:  req.EventType,
		Limit:      req.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, events)
}
