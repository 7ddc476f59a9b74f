package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/platform/internal/application/bootstrap"
	appevent "github.com/erp/platform/internal/application/event"
	appmodule "github.com/erp/platform/internal/application/module"
	appworkflow "github.com/erp/platform/internal/application/workflow"
	"github.com/erp/platform/internal/domain/entity"
	"github.com/erp/platform/internal/domain/module"
	"github.com/erp/platform/internal/infrastructure/dispatch"
	"github.com/erp/platform/internal/infrastructure/persistence"
	"github.com/erp/platform/internal/interfaces/http/dto"
	"github.com/erp/platform/internal/interfaces/http/handler"
	"github.com/erp/platform/internal/interfaces/http/middleware"
	"github.com/erp/platform/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newKernel assembles the full stack against an in-memory database and
// returns the HTTP engine, mirroring the wiring in cmd/server.
func newKernel(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, dto.RegisterValidators())

	log := zap.NewNop()
	db := newTestDB(t)
	enablementRepo := persistence.NewGormEnablementRepository(db)
	auditRepo := persistence.NewGormEventAuditRepository(db)
	workflowRepo := persistence.NewGormWorkflowRepository(db)

	moduleRegistry := module.NewRegistry(log)
	entityRegistry := entity.NewRegistry(log)

	bus := appevent.NewBus(auditRepo, log)
	workflowEngine := appworkflow.NewEngine(
		workflowRepo,
		nil,
		appworkflow.Dispatchers{
			Email:   dispatch.NewLogEmailSender(log),
			SMS:     dispatch.NewLogSMSSender(log),
			Webhook: dispatch.NewWebhookDispatcher(0),
			Field:   dispatch.NewEventFieldUpdater(bus),
		},
		appworkflow.RetryPolicy{MaxAttempts: 1, AttemptTimeout: 5 * time.Second},
		log,
	)
	bus.SetTriggerEvaluator(workflowEngine)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		_ = bus.Stop(context.Background())
	})

	bootstrapper := bootstrap.NewBootstrapper(moduleRegistry, entityRegistry, bus, log)
	require.NoError(t, bootstrapper.Install(context.Background(), fixtureModules()))

	moduleService := appmodule.NewService(
		moduleRegistry,
		enablementRepo,
		&module.StaticPlanResolver{DefaultTier: module.PlanEnterprise},
		bus,
		log,
	)

	engine := gin.New()
	engine.Use(middleware.RequestID())

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewModuleHandler(moduleRegistry, moduleService)).
		Register(handler.NewEntityHandler(entityRegistry)).
		Register(handler.NewEventHandler(bus)).
		Register(handler.NewWorkflowHandler(workflowRepo))
	r.Setup()
	return engine
}

// fixtureModules is a small catalog: a core module owning the product
// entity, and a stock module that depends on it and extends that entity.
func fixtureModules() []*bootstrap.Descriptor {
	return []*bootstrap.Descriptor{
		{
			Definition: &module.Definition{
				Code:         "@core",
				Name:         "Core",
				Version:      "1.0.0",
				IsCore:       true,
				RequiredPlan: module.PlanFree,
			},
		},
		{
			Definition: &module.Definition{
				Code:         "@products",
				Name:         "Products",
				Version:      "1.0.0",
				RequiredPlan: module.PlanFree,
			},
			Entities: []*entity.Definition{
				{
					Code: "product",
					Name: "Product",
					BaseFields: []entity.Field{
						{Code: "name", Name: "Name", Type: "string", Required: true},
						{Code: "price", Name: "Price", Type: "number"},
					},
				},
			},
		},
		{
			Definition: &module.Definition{
				Code:         "@stock",
				Name:         "Stock",
				Version:      "1.0.0",
				Dependencies: []string{"@products"},
				RequiredPlan: module.PlanFree,
			},
			Extensions: []*entity.Extension{
				{
					TargetEntity: "product",
					Fields: []entity.Field{
						{Code: "qty_on_hand", Name: "Quantity On Hand", Type: "number", Default: 0},
					},
				},
			},
		},
	}
}

func do(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// TestKernelFlow walks the kernel through its whole lifecycle: module
// enablement with dependency ordering, entity schema composition, a
// workflow trigger firing a webhook off an emitted event, and the audit
// and execution trail that leaves behind.
func TestKernelFlow(t *testing.T) {
	engine := newKernel(t)

	w := do(t, engine, http.MethodGet, "/api/v1/modules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w).Data.([]any), 3)

	// Dependency order is enforced: @stock needs @products first
	w = do(t, engine, http.MethodPost, "/api/v1/modules/@stock/enable", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	require.Equal(t, http.StatusOK, do(t, engine, http.MethodPost, "/api/v1/modules/@products/enable", nil).Code)
	require.Equal(t, http.StatusOK, do(t, engine, http.MethodPost, "/api/v1/modules/@stock/enable", nil).Code)

	// The product schema now carries the stock extension
	w = do(t, engine, http.MethodGet, "/api/v1/entities/product/schema", nil)
	require.Equal(t, http.StatusOK, w.Code)
	schema := decode(t, w).Data.(map[string]any)
	fields := schema["fields"].([]any)
	require.Len(t, fields, 3)
	last := fields[2].(map[string]any)
	assert.Equal(t, "qty_on_hand", last["code"])
	assert.Equal(t, "@stock", last["added_by"])

	// A trigger on order.created delivering to a webhook endpoint
	var delivered atomic.Int32
	var deliveredType atomic.Value
	endpoint := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		delivered.Add(1)
		deliveredType.Store(req.Header.Get("X-Event-Type"))
		rw.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	w = do(t, engine, http.MethodPost, "/api/v1/workflows/triggers", map[string]any{
		"name":       "notify warehouse",
		"event_type": "order.created",
		"actions": []map[string]any{
			{"kind": "webhook", "config": map[string]any{"url": endpoint.URL}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	triggerID := decode(t, w).Data.(map[string]any)["id"].(string)

	w = do(t, engine, http.MethodPost, "/api/v1/events", map[string]any{
		"type":        "order.created",
		"entity_type": "order",
		"entity_id":   uuid.NewString(),
		"payload":     map[string]any{"total": 120.0},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Trigger evaluation is synchronous with Emit
	require.Equal(t, int32(1), delivered.Load())
	assert.Equal(t, "order.created", deliveredType.Load())

	w = do(t, engine, http.MethodGet, "/api/v1/workflows/triggers/"+triggerID+"/executions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	executions := decode(t, w).Data.([]any)
	require.Len(t, executions, 1)
	assert.Equal(t, "success", executions[0].(map[string]any)["status"])

	// The audit log holds the order event and the module lifecycle events
	w = do(t, engine, http.MethodGet, "/api/v1/events/history?event_type=order.created", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w).Data.([]any), 1)

	w = do(t, engine, http.MethodGet, "/api/v1/events/history?event_type=platform.module.enabled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w).Data.([]any), 2)
}

// TestKernelTenantIsolation verifies that enablement, event history and
// triggers of one tenant are invisible to another.
func TestKernelTenantIsolation(t *testing.T) {
	engine := newKernel(t)
	otherTenant := uuid.NewString()

	require.Equal(t, http.StatusOK, do(t, engine, http.MethodPost, "/api/v1/modules/@products/enable", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/modules/enabled", nil)
	req.Header.Set("X-Tenant-ID", otherTenant)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	enabled := decode(t, w).Data.([]any)
	require.Len(t, enabled, 1)
	assert.Equal(t, "@core", enabled[0].(map[string]any)["module_code"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/events/history", nil)
	req.Header.Set("X-Tenant-ID", otherTenant)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w).Data)
}
