package dto

import "github.com/erp/platform/internal/domain/entity"

// EntityCodeURI binds the entity code path parameter.
type EntityCodeURI struct {
	Code string `uri:"code" binding:"required"`
}

// ActionView is the serializable projection of an entity action. Handler
// functions never cross the API boundary.
type ActionView struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Bulk        bool     `json:"bulk"`
	Permissions []string `json:"permissions,omitempty"`
	AddedBy     string   `json:"added_by,omitempty"`
}

// NewActionView creates the API projection of an action.
func NewActionView(a entity.Action) ActionView {
	return ActionView{
		Code:        a.Code,
		Name:        a.Name,
		Bulk:        a.Bulk,
		Permissions: a.Permissions,
		AddedBy:     a.AddedBy,
	}
}

// ExecuteActionRequest carries the parameters of an action invocation
type ExecuteActionRequest struct {
	Params    map[string]any `json:"params"`
	RecordIDs []string       `json:"record_ids"`
}

// ActionResult wraps an action handler's return value
type ActionResult struct {
	Result any `json:"result"`
}
