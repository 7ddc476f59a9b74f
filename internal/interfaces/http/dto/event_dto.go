package dto

// EmitEventRequest carries an event to publish on the bus
type EmitEventRequest struct {
	Type       string         `json:"type" binding:"required,eventtype"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
}

// EventHistoryRequest filters the audit log. The tenant always comes from
// the request context, never from the query string.
type EventHistoryRequest struct {
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	EventType  string `form:"event_type"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}
