package autoadvance

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"pos/orderqueue/internal/business/queue"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		action     string
		can        Capability
		wantErr    error
		wantTarget string
	}{
		{name: "start preparing", status: "pending", action: ActionStartPreparing, can: AllowAll, wantTarget: "in_progress"},
		{name: "start preparing from in_queue", status: "in_queue", action: ActionStartPreparing, can: AllowAll, wantTarget: "in_progress"},
		{name: "mark ready", status: "in_prep", action: ActionMarkReady, can: AllowAll, wantTarget: "ready"},
		{name: "complete", status: "handoff", action: ActionComplete, can: AllowAll, wantTarget: "completed"},
		{name: "mark ready from pending", status: "pending", action: ActionMarkReady, can: AllowAll, wantErr: ErrNotAvailable},
		{name: "unknown action", status: "pending", action: "refund", can: AllowAll, wantErr: ErrNotAvailable},
		{name: "no capability", status: "pending", action: ActionStartPreparing, can: nil, wantErr: ErrForbidden},
		{name: "missing permission", status: "pending", action: ActionStartPreparing, can: NewPermissionSet([]string{"order.view"}).Can, wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			c := NewController(Options{Backend: backend})

			order := autoOrder("11", tt.status, "", baseTime)
			err := c.Transition(context.Background(), order, tt.action, tt.can, "req-1")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if len(backend.calls()) != 0 {
					t.Fatalf("backend must not be called")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			calls := backend.calls()
			if len(calls) != 1 || calls[0] != (statusCall{"11", tt.wantTarget}) {
				t.Fatalf("calls = %+v", calls)
			}
		})
	}
}

func TestTransitionFailureNotifies(t *testing.T) {
	backend := &fakeBackend{results: []bool{false}}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	c := NewController(Options{Backend: backend, Notifier: notifier, Recorder: recorder})

	err := c.Transition(context.Background(), autoOrder("2", "ready", "", baseTime), ActionComplete, AllowAll, "req-2")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if msgs := notifier.messages(); len(msgs) != 1 || msgs[0] != MsgTransitionFail {
		t.Fatalf("notifications = %v", msgs)
	}
	if len(recorder.events) != 1 || recorder.events[0].Trigger != TriggerManual || recorder.events[0].RequestID != "req-2" {
		t.Fatalf("events = %+v", recorder.events)
	}
}

func TestToggleAutoFlow(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(Options{Backend: backend})
	ctx := context.Background()

	running := autoOrder("5", "pending", "in_progress", baseTime)
	if err := c.ToggleAutoFlow(ctx, running, AllowAll, "r1"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	paused := running
	paused.AutoAdvancePaused = true
	if err := c.ToggleAutoFlow(ctx, paused, AllowAll, "r2"); err != nil {
		t.Fatalf("resume: %v", err)
	}

	want := []statusCall{{"5", "pause"}, {"5", "resume"}}
	if !reflect.DeepEqual(backend.autoFlowCalls, want) {
		t.Fatalf("auto flow calls = %+v, want %+v", backend.autoFlowCalls, want)
	}

	if err := c.ToggleAutoFlow(ctx, running, nil, "r3"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestToggleAutoFlowFailureNotifies(t *testing.T) {
	backend := &fakeBackend{err: errors.New("timeout")}
	notifier := &fakeNotifier{}
	c := NewController(Options{Backend: backend, Notifier: notifier})

	err := c.ToggleAutoFlow(context.Background(), autoOrder("5", "pending", "in_progress", baseTime), AllowAll, "r1")
	if err == nil {
		t.Fatal("expected error")
	}
	if msgs := notifier.messages(); len(msgs) != 1 || msgs[0] != MsgAutoTimerFailed {
		t.Fatalf("notifications = %v", msgs)
	}
}

func TestAdvanceNow(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(Options{Backend: backend})
	ctx := context.Background()

	order := autoOrder("8", "pending", "in_queue", baseTime.Add(time.Minute))
	if err := c.AdvanceNow(ctx, order, AllowAll, "r1"); err != nil {
		t.Fatalf("AdvanceNow: %v", err)
	}
	if calls := backend.calls(); len(calls) != 1 || calls[0] != (statusCall{"8", "in_queue"}) {
		t.Fatalf("calls = %+v", calls)
	}

	paused := order
	paused.AutoAdvancePaused = true
	if err := c.AdvanceNow(ctx, paused, AllowAll, "r2"); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("paused: err = %v", err)
	}

	if err := c.AdvanceNow(ctx, autoOrder("9", "pending", "", baseTime), AllowAll, "r3"); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("no target: err = %v", err)
	}
}

func TestTimerControlsUnavailableWhenAutoDisabled(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(Options{Backend: backend, DisableAuto: true})
	ctx := context.Background()

	order := autoOrder("5", "pending", "in_progress", baseTime)
	if got := AvailableActions(order, AllowAll, false); len(got) != 1 || got[0] != ActionStartPreparing {
		t.Fatalf("actions = %v, want only %s", got, ActionStartPreparing)
	}

	if err := c.ToggleAutoFlow(ctx, order, AllowAll, "r1"); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("toggle: err = %v, want ErrNotAvailable", err)
	}
	if err := c.AdvanceNow(ctx, order, AllowAll, "r2"); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("advance now: err = %v, want ErrNotAvailable", err)
	}
	if len(backend.autoFlowCalls) != 0 || len(backend.calls()) != 0 {
		t.Fatalf("backend called: auto flow %+v, status %+v", backend.autoFlowCalls, backend.calls())
	}

	// 手动流转不受影响
	if err := c.Transition(ctx, order, ActionStartPreparing, AllowAll, "r3"); err != nil {
		t.Fatalf("transition: %v", err)
	}
}

func TestAvailableActions(t *testing.T) {
	paused := autoOrder("1", "preparing", "ready", baseTime)
	paused.AutoAdvancePaused = true

	tests := []struct {
		name     string
		order    queue.Order
		can      Capability
		autoFlow bool
		want     []string
	}{
		{name: "queued with timer", order: autoOrder("1", "new", "in_progress", baseTime), can: AllowAll, autoFlow: true,
			want: []string{ActionStartPreparing, ActionPauseTimer, ActionAdvanceNow}},
		{name: "paused timer", order: paused, can: AllowAll, autoFlow: true,
			want: []string{ActionMarkReady, ActionResumeTimer}},
		{name: "auto flow unsupported", order: autoOrder("1", "ready", "completed", baseTime), can: AllowAll,
			want: []string{ActionComplete}},
		{name: "unknown status", order: autoOrder("1", "on_hold", "", baseTime), can: AllowAll},
		{name: "no permission", order: autoOrder("1", "pending", "in_progress", baseTime), autoFlow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailableActions(tt.order, tt.can, tt.autoFlow)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
