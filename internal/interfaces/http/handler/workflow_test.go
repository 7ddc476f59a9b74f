package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/erp/platform/internal/domain/shared"
	"github.com/erp/platform/internal/domain/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTriggerStore struct {
	mu         sync.Mutex
	triggers   map[uuid.UUID]*workflow.Trigger
	executions []*workflow.Execution
}

func newMemTriggerStore() *memTriggerStore {
	return &memTriggerStore{triggers: make(map[uuid.UUID]*workflow.Trigger)}
}

func (s *memTriggerStore) SaveTrigger(_ context.Context, t *workflow.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	stored := *t
	s.triggers[t.ID] = &stored
	return nil
}

func (s *memTriggerStore) GetTrigger(_ context.Context, tenantID, id uuid.UUID) (*workflow.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if !ok || t.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *memTriggerStore) ListTriggers(_ context.Context, tenantID uuid.UUID) ([]*workflow.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*workflow.Trigger, 0)
	for _, t := range s.triggers {
		if t.TenantID == tenantID {
			copied := *t
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *memTriggerStore) DeleteTrigger(_ context.Context, tenantID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if !ok || t.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(s.triggers, id)
	return nil
}

func (s *memTriggerStore) ListExecutions(_ context.Context, tenantID, triggerID uuid.UUID, limit int) ([]*workflow.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*workflow.Execution, 0)
	for _, e := range s.executions {
		if e.TenantID == tenantID && e.TriggerID == triggerID {
			result = append(result, e)
		}
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func newWorkflowRouter(t *testing.T, store *memTriggerStore) *gin.Engine {
	t.Helper()
	return newTestRouter(t, NewWorkflowHandler(store))
}

func validTriggerBody() map[string]any {
	return map[string]any{
		"name":       "Notify on big orders",
		"event_type": "order.created",
		"conditions": map[string]any{"min_total": 1000},
		"actions": []map[string]any{
			{"kind": "send_email", "config": map[string]any{"to": "sales@example.com"}},
		},
	}
}

func TestWorkflowHandler_CreateAndGet(t *testing.T) {
	store := newMemTriggerStore()
	engine := newWorkflowRouter(t, store)

	w := doRequest(engine, http.MethodPost, "/api/v1/workflows/triggers", validTriggerBody(), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	created := resp.Data.(map[string]any)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, true, created["enabled"])

	w = doRequest(engine, http.MethodGet, "/api/v1/workflows/triggers/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	got := resp.Data.(map[string]any)
	assert.Equal(t, "Notify on big orders", got["name"])
}

func TestWorkflowHandler_CreateUnknownActionKind(t *testing.T) {
	engine := newWorkflowRouter(t, newMemTriggerStore())

	body := validTriggerBody()
	body["actions"] = []map[string]any{{"kind": "carrier_pigeon"}}
	w := doRequest(engine, http.MethodPost, "/api/v1/workflows/triggers", body, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowHandler_CreateWithoutActions(t *testing.T) {
	engine := newWorkflowRouter(t, newMemTriggerStore())

	body := validTriggerBody()
	body["actions"] = []map[string]any{}
	w := doRequest(engine, http.MethodPost, "/api/v1/workflows/triggers", body, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowHandler_CreateInvalidEventType(t *testing.T) {
	engine := newWorkflowRouter(t, newMemTriggerStore())

	body := validTriggerBody()
	body["event_type"] = "Order Created"
	w := doRequest(engine, http.MethodPost, "/api/v1/workflows/triggers", body, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowHandler_Update(t *testing.T) {
	store := newMemTriggerStore()
	engine := newWorkflowRouter(t, store)

	w := doRequest(engine, http.MethodPost, "/api/v1/workflows/triggers", validTriggerBody(), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeResponse(t, w).Data.(map[string]any)["id"].(string)

	body := validTriggerBody()
	body["name"] = "Renamed"
	body["enabled"] = false
	w = doRequest(engine, http.MethodPut, "/api/v1/workflows/triggers/"+id, body, nil)

	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "Renamed", updated["name"])
	assert.Equal(t, false, updated["enabled"])
	assert.Equal(t, id, updated["id"])
}

func TestWorkflowHandler_UpdateMissing(t *testing.T) {
	engine := newWorkflowRouter(t, newMemTriggerStore())

	w := doRequest(engine, http.MethodPut, "/api/v1/workflows/triggers/"+uuid.NewString(), validTriggerBody(), nil)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowHandler_Delete(t *testing.T) {
	store := newMemTriggerStore()
	engine := newWorkflowRouter(t, store)

	w := doRequest(engine, http.MethodPost, "/api/v1/workflows/triggers", validTriggerBody(), nil)
	id := decodeResponse(t, w).Data.(map[string]any)["id"].(string)

	require.Equal(t, http.StatusNoContent, doRequest(engine, http.MethodDelete, "/api/v1/workflows/triggers/"+id, nil, nil).Code)
	require.Equal(t, http.StatusNotFound, doRequest(engine, http.MethodGet, "/api/v1/workflows/triggers/"+id, nil, nil).Code)
}

func TestWorkflowHandler_InvalidTriggerID(t *testing.T) {
	engine := newWorkflowRouter(t, newMemTriggerStore())

	w := doRequest(engine, http.MethodGet, "/api/v1/workflows/triggers/not-a-uuid", nil, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowHandler_TenantScoping(t *testing.T) {
	store := newMemTriggerStore()
	engine := newWorkflowRouter(t, store)

	w := doRequest(engine, http.MethodPost, "/api/v1/workflows/triggers", validTriggerBody(), nil)
	id := decodeResponse(t, w).Data.(map[string]any)["id"].(string)

	other := map[string]string{"X-Tenant-ID": uuid.NewString()}
	require.Equal(t, http.StatusNotFound, doRequest(engine, http.MethodGet, "/api/v1/workflows/triggers/"+id, nil, other).Code)
	require.Equal(t, http.StatusNotFound, doRequest(engine, http.MethodDelete, "/api/v1/workflows/triggers/"+id, nil, other).Code)
}

func TestWorkflowHandler_ListExecutions(t *testing.T) {
	store := newMemTriggerStore()
	engine := newWorkflowRouter(t, store)

	w := doRequest(engine, http.MethodPost, "/api/v1/workflows/triggers", validTriggerBody(), nil)
	id := decodeResponse(t, w).Data.(map[string]any)["id"].(string)
	triggerID := uuid.MustParse(id)

	store.mu.Lock()
	trigger := store.triggers[triggerID]
	store.executions = append(store.executions, &workflow.Execution{
		ID:         uuid.New(),
		TriggerID:  triggerID,
		TenantID:   trigger.TenantID,
		EventID:    uuid.New(),
		Status:     workflow.ExecutionSuccess,
		ExecutedAt: time.Now(),
	})
	store.mu.Unlock()

	w = doRequest(engine, http.MethodGet, "/api/v1/workflows/triggers/"+id+"/executions", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	executions := decodeResponse(t, w).Data.([]any)
	require.Len(t, executions, 1)
	exec := executions[0].(map[string]any)
	assert.Equal(t, "success", exec["status"])
}
