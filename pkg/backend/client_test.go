package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos/orderqueue/pkg/config"
	"pos/orderqueue/pkg/errorutil"
	"pos/orderqueue/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.BackendConfig{
		BaseURL:      srv.URL,
		Token:        "secret",
		Timeout:      time.Second,
		QueuePath:    "/api/orders/queue/",
		StatusPath:   "/api/orders/%s/status/",
		AutoFlowPath: "/api/orders/%s/auto-flow/",
	}, nil, logger.NewNop())
}

func TestFetchOrderQueue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/orders/queue/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"success":true,"data":{"orders":[{"id":1,"status":"pending"},{"id":2,"items":"bad"},{"id":"3","status":"ready"}]}}`))
	})

	orders, err := c.FetchOrderQueue(context.Background())
	if err != nil {
		t.Fatalf("FetchOrderQueue: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if orders[0].ID != "1" || orders[1].ID != "3" {
		t.Fatalf("unexpected ids %q %q", orders[0].ID, orders[1].ID)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantOK    bool
		wantErr   bool
		retryable bool
	}{
		{name: "envelope success", status: 200, body: `{"success":true,"data":{}}`, wantOK: true},
		{name: "empty body", status: 204, body: ``, wantOK: true},
		{name: "envelope rejected", status: 200, body: `{"success":false,"message":"invalid transition"}`, wantOK: false},
		{name: "client error", status: 400, body: `{"success":false}`, wantErr: true},
		{name: "server error", status: 502, body: `bad gateway`, wantErr: true, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch || r.URL.Path != "/api/orders/42/status/" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				var payload map[string]string
				if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
					t.Errorf("decode body: %v", err)
				}
				if payload["status"] != "ready" {
					t.Errorf("status = %q, want ready", payload["status"])
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			ok, err := c.UpdateOrderStatus(context.Background(), "42", "ready")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && errorutil.IsRetryable(err) != tt.retryable {
				t.Fatalf("retryable = %v, want %v", errorutil.IsRetryable(err), tt.retryable)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestUpdateOrderAutoFlow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/orders/7/auto-flow/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["action"] != AutoFlowPause {
			t.Errorf("action = %q", payload["action"])
		}
		w.Write([]byte(`{"success":true}`))
	})

	ok, err := c.UpdateOrderAutoFlow(context.Background(), "7", AutoFlowPause)
	if err != nil || !ok {
		t.Fatalf("UpdateOrderAutoFlow = %v, %v", ok, err)
	}
}

func TestUnreachableBackendIsRetryable(t *testing.T) {
	c := NewClient(config.BackendConfig{
		BaseURL:    "http://127.0.0.1:1",
		Timeout:    200 * time.Millisecond,
		StatusPath: "/api/orders/%s/status/",
	}, nil, logger.NewNop())

	_, err := c.UpdateOrderStatus(context.Background(), "1", "ready")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errorutil.IsRetryable(err) {
		t.Fatalf("network error should be retryable: %v", err)
	}
}
