package routers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pos/orderqueue/internal/business/autoadvance"
	bizqueue "pos/orderqueue/internal/business/queue"
	"pos/orderqueue/internal/server/handlers/queue"
	"pos/orderqueue/pkg/infra/mysql"
	"pos/orderqueue/pkg/logger"
	"pos/orderqueue/pkg/metrics"
)

type boardSource struct {
	orders []bizqueue.Order
}

func (b boardSource) Board(can autoadvance.Capability) autoadvance.Board {
	return autoadvance.BuildCards(bizqueue.Categorize(b.orders), testNow, can, true)
}

type eventStore struct {
	err error
}

func (e eventStore) ListByOrder(ctx context.Context, orderID string, limit int) ([]mysql.OrderEvent, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []mysql.OrderEvent{{OrderID: orderID, TargetStatus: "ready", Trigger: "auto", Outcome: "success"}}, nil
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Meta struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestQueueEndpoint(t *testing.T) {
	source := boardSource{orders: []bizqueue.Order{
		{ID: "1", OrderNumber: "101", Status: "pending", IsPaid: true},
		{ID: "2", Status: "completed", IsPaid: true},
	}}
	r := SetupRoutes(queue.NewHandler(source, nil), nil, logger.NewNop())

	rec, env := doRequest(t, r, "/api/queue")
	if rec.Code != http.StatusOK || env.Meta.Code != 200 {
		t.Fatalf("status %d meta %+v", rec.Code, env.Meta)
	}

	var board autoadvance.Board
	if err := json.Unmarshal(env.Data, &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if board.Stats.Total != 1 || len(board.WalkIn) != 1 || board.WalkIn[0].OrderNumber != "101" {
		t.Fatalf("board = %+v", board)
	}
	if got := board.WalkIn[0].Actions; len(got) != 1 || got[0] != autoadvance.ActionStartPreparing {
		t.Fatalf("actions = %v", got)
	}

	_, env = doRequest(t, r, "/api/queue?permissions=order.view")
	json.Unmarshal(env.Data, &board)
	if len(board.WalkIn[0].Actions) != 0 {
		t.Fatalf("actions without permission = %v", board.WalkIn[0].Actions)
	}
}

func TestEventsEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		store  queue.EventStore
		path   string
		status int
	}{
		{name: "disabled", store: nil, path: "/api/orders/1/events", status: http.StatusServiceUnavailable},
		{name: "ok", store: eventStore{}, path: "/api/orders/1/events?limit=5", status: http.StatusOK},
		{name: "bad limit", store: eventStore{}, path: "/api/orders/1/events?limit=x", status: http.StatusBadRequest},
		{name: "store error", store: eventStore{err: errors.New("db down")}, path: "/api/orders/1/events", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SetupRoutes(queue.NewHandler(boardSource{}, tt.store), nil, logger.NewNop())
			rec, env := doRequest(t, r, tt.path)
			if rec.Code != tt.status || env.Meta.Code != tt.status {
				t.Fatalf("status %d meta %+v, want %d", rec.Code, env.Meta, tt.status)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m, err := metrics.New()
	if err != nil {
		t.Fatal(err)
	}
	m.SetActiveLocks(2)

	r := SetupRoutes(queue.NewHandler(boardSource{}, nil), m.Handler(), logger.NewNop())

	rec, _ := doRequest(t, r, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "orderqueue_auto_advance_locks 2") {
		t.Fatalf("metrics output missing gauge:\n%s", rec.Body.String())
	}
}
