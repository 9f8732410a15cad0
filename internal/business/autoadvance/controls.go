package autoadvance

import (
	"context"
	"errors"
	"fmt"

	"pos/orderqueue/internal/business/queue"
	"pos/orderqueue/pkg/logger"
	"pos/orderqueue/pkg/metrics"
)

var (
	// ErrForbidden 缺少 order.status.update 权限
	ErrForbidden = errors.New("permission denied")
	// ErrNotAvailable 当前订单状态下该操作不可用
	ErrNotAvailable = errors.New("action not available")
	// ErrRejected 后端拒绝了请求（success=false）
	ErrRejected = errors.New("request rejected by backend")
)

// 手动操作
const (
	ActionStartPreparing = "start_preparing"
	ActionMarkReady      = "mark_ready"
	ActionComplete       = "complete"
	ActionPauseTimer     = "pause_timer"
	ActionResumeTimer    = "resume_timer"
	ActionAdvanceNow     = "advance_now"
)

// transitionTargets 手动流转目标状态（原样提交）
var transitionTargets = map[string]string{
	ActionStartPreparing: "in_progress",
	ActionMarkReady:      "ready",
	ActionComplete:       "completed",
}

// TransitionTarget 手动流转对应的目标状态
func TransitionTarget(action string) (string, bool) {
	target, ok := transitionTargets[action]
	return target, ok
}

// Controller 手动控制
type Controller struct {
	backend  OrderBackend
	notifier Notifier
	recorder EventRecorder
	metrics  *metrics.Metrics
	log      logger.Logger
	refresh  func(ctx context.Context)

	autoDisabled bool // 自动流转关闭时不提供计时器相关操作
}

// NewController 创建手动控制器，依赖与 AutoAdvancer 共用
func NewController(opts Options) *Controller {
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	return &Controller{
		backend:  opts.Backend,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		log:      opts.Log,
		refresh:  opts.OnAdvanced,

		autoDisabled: opts.DisableAuto,
	}
}

// ToggleAutoFlow 暂停/恢复自动流转（与当前暂停状态相反）
func (c *Controller) ToggleAutoFlow(ctx context.Context, order queue.Order, can Capability, requestID string) error {
	action := "pause"
	if order.AutoAdvancePaused {
		action = "resume"
	}

	if !canUpdate(can) {
		c.metrics.RecordCommand(action, metrics.OutcomeDenied)
		return ErrForbidden
	}
	if c.autoDisabled {
		c.metrics.RecordCommand(action, metrics.OutcomeDenied)
		return fmt.Errorf("%w: auto advance is disabled", ErrNotAvailable)
	}
	if order.AutoAdvanceTarget == "" {
		c.metrics.RecordCommand(action, metrics.OutcomeDenied)
		return fmt.Errorf("%w: order has no auto advance target", ErrNotAvailable)
	}

	orderID := string(order.ID)
	ok, err := c.backend.UpdateOrderAutoFlow(ctx, orderID, action)
	if err == nil && !ok {
		err = fmt.Errorf("%w: auto flow %s", ErrRejected, action)
	}
	if err != nil {
		c.log.Warnf(ctx, "[Controller] auto flow %s failed: %v", action, err)
		c.metrics.RecordCommand(action, metrics.OutcomeFailed)
		notify(ctx, c.notifier, c.log, MsgAutoTimerFailed, orderID, requestID)
		return err
	}

	c.log.Infof(ctx, "[Controller] auto flow %s", action)
	c.metrics.RecordCommand(action, metrics.OutcomeSuccess)
	c.afterChange(ctx)
	return nil
}

// AdvanceNow 立即流转到自动目标状态
func (c *Controller) AdvanceNow(ctx context.Context, order queue.Order, can Capability, requestID string) error {
	if !canUpdate(can) {
		c.metrics.RecordCommand(ActionAdvanceNow, metrics.OutcomeDenied)
		return ErrForbidden
	}
	if c.autoDisabled {
		c.metrics.RecordCommand(ActionAdvanceNow, metrics.OutcomeDenied)
		return fmt.Errorf("%w: auto advance is disabled", ErrNotAvailable)
	}
	if order.AutoAdvanceTarget == "" || order.AutoAdvancePaused {
		c.metrics.RecordCommand(ActionAdvanceNow, metrics.OutcomeDenied)
		return fmt.Errorf("%w: advance now requires an active auto advance target", ErrNotAvailable)
	}

	err := c.updateStatus(ctx, order, string(order.AutoAdvanceTarget), requestID, MsgAdvanceFailed)
	c.metrics.RecordCommand(ActionAdvanceNow, commandOutcome(err))
	return err
}

// Transition 手动流转（start_preparing / mark_ready / complete）
func (c *Controller) Transition(ctx context.Context, order queue.Order, action string, can Capability, requestID string) error {
	if !canUpdate(can) {
		c.metrics.RecordCommand(action, metrics.OutcomeDenied)
		return ErrForbidden
	}

	target, ok := TransitionTarget(action)
	if !ok || !transitionAvailable(queue.GetOrderStatus(order), action) {
		c.metrics.RecordCommand(action, metrics.OutcomeDenied)
		return fmt.Errorf("%w: %s from status %q", ErrNotAvailable, action, queue.GetOrderStatus(order))
	}

	err := c.updateStatus(ctx, order, target, requestID, MsgTransitionFail)
	c.metrics.RecordCommand(action, commandOutcome(err))
	return err
}

func (c *Controller) updateStatus(ctx context.Context, order queue.Order, target, requestID, failMsg string) error {
	orderID := string(order.ID)
	ok, err := c.backend.UpdateOrderStatus(ctx, orderID, target)
	if err == nil && !ok {
		err = fmt.Errorf("%w: order %s to %s", ErrRejected, orderID, target)
	}

	event := Event{
		RequestID:   requestID,
		OrderID:     orderID,
		OrderNumber: string(order.OrderNumber),
		FromStatus:  queue.GetOrderStatus(order),
		Target:      target,
		Trigger:     TriggerManual,
		Outcome:     OutcomeSuccess,
	}

	if err != nil {
		c.log.Warnf(ctx, "[Controller] update status to %s failed: %v", target, err)
		c.metrics.RecordStatusUpdate(metrics.TriggerManual, metrics.OutcomeFailed)
		event.Outcome = OutcomeFailed
		event.Error = err.Error()
		recordEvent(ctx, c.recorder, c.log, event)
		notify(ctx, c.notifier, c.log, failMsg, orderID, requestID)
		return err
	}

	c.log.Infof(ctx, "[Controller] order updated to %s", target)
	c.metrics.RecordStatusUpdate(metrics.TriggerManual, metrics.OutcomeSuccess)
	recordEvent(ctx, c.recorder, c.log, event)
	c.afterChange(ctx)
	return nil
}

func (c *Controller) afterChange(ctx context.Context) {
	if c.refresh != nil {
		c.refresh(ctx)
	}
}

// AvailableActions 订单当前可用的操作
func AvailableActions(order queue.Order, can Capability, autoFlowEnabled bool) []string {
	if !canUpdate(can) {
		return nil
	}

	var actions []string
	status := queue.GetOrderStatus(order)
	for _, action := range []string{ActionStartPreparing, ActionMarkReady, ActionComplete} {
		if transitionAvailable(status, action) {
			actions = append(actions, action)
		}
	}

	if autoFlowEnabled && order.AutoAdvanceTarget != "" {
		if order.AutoAdvancePaused {
			actions = append(actions, ActionResumeTimer)
		} else {
			actions = append(actions, ActionPauseTimer, ActionAdvanceNow)
		}
	}
	return actions
}

func transitionAvailable(status, action string) bool {
	switch action {
	case ActionStartPreparing:
		return queue.IsQueued(status)
	case ActionMarkReady:
		return queue.IsPreparing(status)
	case ActionComplete:
		return queue.IsReady(status)
	default:
		return false
	}
}

func canUpdate(can Capability) bool {
	return can != nil && can(PermissionStatusUpdate)
}

func commandOutcome(err error) metrics.Outcome {
	if err != nil {
		return metrics.OutcomeFailed
	}
	return metrics.OutcomeSuccess
}
