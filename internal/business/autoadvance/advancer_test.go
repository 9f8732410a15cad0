package autoadvance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pos/orderqueue/internal/business/queue"
)

type statusCall struct {
	orderID string
	status  string
}

type fakeBackend struct {
	mu            sync.Mutex
	statusCalls   []statusCall
	autoFlowCalls []statusCall
	results       []bool // 依次返回，用尽后返回 true
	err           error
}

func (f *fakeBackend) UpdateOrderStatus(ctx context.Context, orderID string, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{orderID, status})
	if f.err != nil {
		return false, f.err
	}
	if len(f.results) > 0 {
		r := f.results[0]
		f.results = f.results[1:]
		return r, nil
	}
	return true, nil
}

func (f *fakeBackend) UpdateOrderAutoFlow(ctx context.Context, orderID string, action string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoFlowCalls = append(f.autoFlowCalls, statusCall{orderID, action})
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func (f *fakeBackend) calls() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusCall(nil), f.statusCalls...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, n := range f.sent {
		out = append(out, n.Message)
	}
	return out
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeRecorder) Record(ctx context.Context, e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func autoOrder(id, status, target string, at time.Time) queue.Order {
	return queue.Order{
		ID:                queue.Text(id),
		OrderNumber:       queue.Text("A-" + id),
		Status:            queue.Text(status),
		IsPaid:            true,
		AutoAdvanceTarget: queue.Text(target),
		AutoAdvanceAt:     queue.Text(at.Format(time.RFC3339Nano)),
	}
}

func TestComputeCountdownSeconds(t *testing.T) {
	tests := []struct {
		name  string
		order queue.Order
		want  int
		ok    bool
	}{
		{name: "ten seconds", order: autoOrder("1", "pending", "in_progress", baseTime.Add(10*time.Second)), want: 10, ok: true},
		{name: "rounds up", order: autoOrder("1", "pending", "in_progress", baseTime.Add(9500*time.Millisecond)), want: 10, ok: true},
		{name: "expired", order: autoOrder("1", "pending", "in_progress", baseTime.Add(-time.Minute)), want: 0, ok: true},
		{name: "no target", order: autoOrder("1", "pending", "", baseTime.Add(10*time.Second))},
		{name: "unparseable", order: queue.Order{AutoAdvanceTarget: "ready", AutoAdvanceAt: "soon"}},
		{name: "missing at", order: queue.Order{AutoAdvanceTarget: "ready"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputeCountdownSeconds(tt.order, baseTime)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("got (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}

	paused := autoOrder("1", "pending", "in_progress", baseTime.Add(10*time.Second))
	paused.AutoAdvancePaused = true
	if _, ok := ComputeCountdownSeconds(paused, baseTime); ok {
		t.Fatal("paused order should have no countdown")
	}

	running := autoOrder("1", "pending", "in_progress", baseTime.Add(10*time.Second))
	if got, _ := ComputeCountdownSeconds(running, baseTime.Add(10000*time.Millisecond)); got != 0 {
		t.Fatalf("countdown at deadline = %d, want 0", got)
	}
}

func TestAdvanceExactlyOnceAcrossTicks(t *testing.T) {
	backend := &fakeBackend{}
	adv := NewAutoAdvancer(Options{Backend: backend})
	ctx := context.Background()

	orders := []queue.Order{autoOrder("7", "pending", "In_Progress", baseTime.Add(-time.Second))}
	adv.Update(ctx, orders, baseTime)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			adv.Tick(ctx, baseTime.Add(time.Duration(i)*time.Second))
		}(i)
	}
	wg.Wait()
	adv.Wait()

	calls := backend.calls()
	if len(calls) != 1 {
		t.Fatalf("got %d status updates, want 1", len(calls))
	}
	// 原始目标状态原样提交
	if calls[0] != (statusCall{"7", "In_Progress"}) {
		t.Fatalf("unexpected call %+v", calls[0])
	}
	if adv.LockCount() != 1 {
		t.Fatalf("lock should be kept after success, got %d", adv.LockCount())
	}
}

func TestAdvanceRetriesAfterFailure(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
	}{
		{name: "backend returns false", backend: &fakeBackend{results: []bool{false}}},
		{name: "backend error", backend: &fakeBackend{err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			recorder := &fakeRecorder{}
			adv := NewAutoAdvancer(Options{Backend: tt.backend, Notifier: notifier, Recorder: recorder})
			ctx := context.Background()

			adv.Update(ctx, []queue.Order{autoOrder("3", "preparing", "ready", baseTime)}, baseTime)
			adv.Wait()

			if adv.LockCount() != 0 {
				t.Fatalf("lock should be released after failure")
			}
			if msgs := notifier.messages(); len(msgs) != 1 || msgs[0] != MsgAdvanceFailed {
				t.Fatalf("notifications = %v", msgs)
			}
			if len(recorder.events) != 1 || recorder.events[0].Outcome != OutcomeFailed || recorder.events[0].Trigger != TriggerAuto {
				t.Fatalf("events = %+v", recorder.events)
			}

			adv.Tick(ctx, baseTime.Add(time.Second))
			adv.Wait()

			if got := len(tt.backend.calls()); got != 2 {
				t.Fatalf("got %d calls, want retry on next tick", got)
			}
		})
	}
}

func TestReconcileSkipsIneligibleOrders(t *testing.T) {
	paused := autoOrder("1", "pending", "in_progress", baseTime)
	paused.AutoAdvancePaused = true

	unpaid := autoOrder("5", "pending", "in_progress", baseTime)
	unpaid.IsPaid = false

	orders := []queue.Order{
		paused,
		autoOrder("2", "staged", "ready", baseTime),                         // 已处于目标状态
		autoOrder("3", "pending", "in_progress", baseTime.Add(time.Minute)), // 倒计时未结束
		{ID: "4", Status: "pending", IsPaid: true, AutoAdvanceTarget: "ready"},
		unpaid,
		autoOrder("6", "completed", "completed", baseTime), // 不可见
	}

	backend := &fakeBackend{}
	adv := NewAutoAdvancer(Options{Backend: backend})
	adv.Update(context.Background(), orders, baseTime)
	adv.Wait()

	if got := backend.calls(); len(got) != 0 {
		t.Fatalf("unexpected calls %+v", got)
	}
	if adv.LockCount() != 0 {
		t.Fatalf("no locks expected, got %d", adv.LockCount())
	}
}

func TestTerminalOrderStillAdvances(t *testing.T) {
	backend := &fakeBackend{}
	adv := NewAutoAdvancer(Options{Backend: backend})

	order := autoOrder("8", "cancelled", "refunded", baseTime.Add(-time.Second))
	view := adv.Update(context.Background(), []queue.Order{order}, baseTime)
	adv.Wait()

	if len(view.Visible) != 1 {
		t.Fatalf("visible = %d, want 1", len(view.Visible))
	}
	got := backend.calls()
	if len(got) != 1 || got[0].orderID != "8" || got[0].status != "refunded" {
		t.Fatalf("calls = %+v, want one update to refunded", got)
	}
}

func TestLocksPurgedWhenOrderLeaves(t *testing.T) {
	backend := &fakeBackend{}
	adv := NewAutoAdvancer(Options{Backend: backend})
	ctx := context.Background()

	adv.Update(ctx, []queue.Order{autoOrder("9", "ready", "completed", baseTime)}, baseTime)
	adv.Wait()
	if adv.LockCount() != 1 {
		t.Fatalf("want 1 lock, got %d", adv.LockCount())
	}

	adv.Update(ctx, nil, baseTime.Add(time.Second))
	if adv.LockCount() != 0 {
		t.Fatalf("lock should be purged, got %d", adv.LockCount())
	}
}

func TestNewTargetGetsNewLock(t *testing.T) {
	backend := &fakeBackend{}
	refreshed := 0
	var mu sync.Mutex
	adv := NewAutoAdvancer(Options{Backend: backend, OnAdvanced: func(context.Context) {
		mu.Lock()
		refreshed++
		mu.Unlock()
	}})
	ctx := context.Background()

	adv.Update(ctx, []queue.Order{autoOrder("1", "pending", "in_progress", baseTime)}, baseTime)
	adv.Wait()

	// 刷新后进入下一阶段
	adv.Update(ctx, []queue.Order{autoOrder("1", "in_progress", "ready", baseTime.Add(time.Second))}, baseTime.Add(time.Second))
	adv.Wait()

	calls := backend.calls()
	if len(calls) != 2 || calls[1] != (statusCall{"1", "ready"}) {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if refreshed != 2 {
		t.Fatalf("refresh triggered %d times, want 2", refreshed)
	}
	if adv.LockCount() != 1 {
		t.Fatalf("old lock should be purged, got %d locks", adv.LockCount())
	}
}

func TestDisableAutoKeepsViewOnly(t *testing.T) {
	backend := &fakeBackend{}
	adv := NewAutoAdvancer(Options{Backend: backend, DisableAuto: true})
	ctx := context.Background()

	view := adv.Update(ctx, []queue.Order{autoOrder("1", "pending", "in_progress", baseTime)}, baseTime)
	adv.Tick(ctx, baseTime.Add(time.Second))
	adv.Wait()

	if len(view.Visible) != 1 || len(adv.View().Visible) != 1 {
		t.Fatalf("view not updated")
	}
	if calls := backend.calls(); len(calls) != 0 {
		t.Fatalf("unexpected calls %+v", calls)
	}
}
