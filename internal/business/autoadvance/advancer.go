package autoadvance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pos/orderqueue/internal/business/queue"
	"pos/orderqueue/pkg/logger"
	"pos/orderqueue/pkg/metrics"
)

// Advance 一次待执行的自动流转
type Advance struct {
	Key        string
	Generation uint64
	Order      queue.Order
	Target     string // 原始目标状态，原样提交给后端
}

// Options AutoAdvancer 依赖
type Options struct {
	Backend     OrderBackend
	Notifier    Notifier      // 可选
	Recorder    EventRecorder // 可选
	Metrics     *metrics.Metrics
	Log         logger.Logger
	CallTimeout time.Duration
	OnAdvanced  func(ctx context.Context) // 流转成功后触发刷新
	DisableAuto bool                      // 只维护队列视图，不自动流转
}

// AutoAdvancer 自动流转调度器
// 同一个 (订单, 目标状态) 在锁被释放前只会发起一次状态更新
type AutoAdvancer struct {
	opts Options

	mu      sync.Mutex
	view    queue.View
	locks   map[string]uint64
	nextGen uint64

	wg sync.WaitGroup
}

// NewAutoAdvancer 创建调度器
func NewAutoAdvancer(opts Options) *AutoAdvancer {
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	return &AutoAdvancer{
		opts:  opts,
		locks: make(map[string]uint64),
	}
}

// Update 队列变化时调用：重新分类并对齐锁
func (a *AutoAdvancer) Update(ctx context.Context, orders []queue.Order, now time.Time) queue.View {
	view := queue.Categorize(orders)

	a.mu.Lock()
	a.view = view
	a.mu.Unlock()

	a.opts.Metrics.SetQueueSize(len(view.WalkIn), len(view.Online))
	if !a.opts.DisableAuto {
		a.dispatch(ctx, a.Reconcile(now))
	}
	return view
}

// Tick 每秒调用：倒计时推进
func (a *AutoAdvancer) Tick(ctx context.Context, now time.Time) {
	if a.opts.DisableAuto {
		return
	}
	a.dispatch(ctx, a.Reconcile(now))
}

// View 当前队列视图
func (a *AutoAdvancer) View() queue.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// LockCount 当前持有的锁数量
func (a *AutoAdvancer) LockCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}

// Wait 等待所有已发出的状态更新结束
func (a *AutoAdvancer) Wait() {
	a.wg.Wait()
}

// Reconcile 对齐锁状态并返回需要发起的流转
// 检查与加锁在同一把互斥锁内完成，期间不做任何 I/O
func (a *AutoAdvancer) Reconcile(now time.Time) []Advance {
	a.mu.Lock()
	defer a.mu.Unlock()

	var advances []Advance
	active := make(map[string]struct{})

	for _, order := range a.view.Visible {
		if order.AutoAdvanceTarget == "" {
			continue
		}

		target := queue.NormalizeStatus(order.AutoAdvanceTarget)
		key := lockKey(string(order.ID), target)
		active[key] = struct{}{}

		if order.AutoAdvancePaused {
			delete(a.locks, key)
			continue
		}

		if queue.ToCanonicalStatus(queue.GetOrderStatus(order)) == queue.ToCanonicalStatus(target) {
			delete(a.locks, key)
			continue
		}

		countdown, ok := ComputeCountdownSeconds(order, now)
		if !ok {
			delete(a.locks, key)
			continue
		}

		if countdown > 0 {
			delete(a.locks, key)
			continue
		}

		if _, locked := a.locks[key]; locked {
			continue
		}

		a.nextGen++
		a.locks[key] = a.nextGen
		advances = append(advances, Advance{
			Key:        key,
			Generation: a.nextGen,
			Order:      order,
			Target:     string(order.AutoAdvanceTarget),
		})
	}

	for key := range a.locks {
		if _, ok := active[key]; !ok {
			delete(a.locks, key)
		}
	}

	a.opts.Metrics.SetActiveLocks(len(a.locks))
	return advances
}

// Execute 发起一次状态更新
// 失败（错误或后端返回 false）时释放锁，下个 tick 会重试
func (a *AutoAdvancer) Execute(ctx context.Context, adv Advance) error {
	requestID := uuid.NewString()
	orderID := string(adv.Order.ID)
	ctx = logger.WithTraceID(logger.WithOrderID(ctx, orderID), requestID)

	callCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	ok, err := a.opts.Backend.UpdateOrderStatus(callCtx, orderID, adv.Target)
	cancel()

	if err == nil && !ok {
		err = fmt.Errorf("%w: order %s to %s", ErrRejected, orderID, adv.Target)
	}

	event := Event{
		RequestID:   requestID,
		OrderID:     orderID,
		OrderNumber: string(adv.Order.OrderNumber),
		FromStatus:  queue.GetOrderStatus(adv.Order),
		Target:      adv.Target,
		Trigger:     TriggerAuto,
		Outcome:     OutcomeSuccess,
	}

	if err != nil {
		a.release(adv)
		a.opts.Log.Warnf(ctx, "[AutoAdvance] advance to %s failed: %v", adv.Target, err)
		a.opts.Metrics.RecordStatusUpdate(metrics.TriggerAuto, metrics.OutcomeFailed)

		event.Outcome = OutcomeFailed
		event.Error = err.Error()
		recordEvent(ctx, a.opts.Recorder, a.opts.Log, event)
		notify(ctx, a.opts.Notifier, a.opts.Log, MsgAdvanceFailed, orderID, requestID)
		return err
	}

	a.opts.Log.Infof(ctx, "[AutoAdvance] order advanced to %s", adv.Target)
	a.opts.Metrics.RecordStatusUpdate(metrics.TriggerAuto, metrics.OutcomeSuccess)
	recordEvent(ctx, a.opts.Recorder, a.opts.Log, event)

	if a.opts.OnAdvanced != nil {
		a.opts.OnAdvanced(ctx)
	}
	return nil
}

// dispatch 并发执行，Wait 可等待全部结束
func (a *AutoAdvancer) dispatch(ctx context.Context, advances []Advance) {
	for _, adv := range advances {
		a.wg.Add(1)
		go func(adv Advance) {
			defer a.wg.Done()
			_ = a.Execute(ctx, adv)
		}(adv)
	}
}

// release 只释放本次请求持有的锁
func (a *AutoAdvancer) release(adv Advance) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen, ok := a.locks[adv.Key]; ok && gen == adv.Generation {
		delete(a.locks, adv.Key)
	}
	a.opts.Metrics.SetActiveLocks(len(a.locks))
}

func lockKey(orderID, target string) string {
	return orderID + ":" + target
}

func notify(ctx context.Context, n Notifier, log logger.Logger, message, orderID, requestID string) {
	if n == nil {
		return
	}
	err := n.Notify(ctx, Notification{
		Level:     "error",
		Message:   message,
		OrderID:   orderID,
		RequestID: requestID,
		TS:        time.Now(),
	})
	if err != nil {
		log.Errorf(ctx, "[AutoAdvance] send notification failed: %v", err)
	}
}

func recordEvent(ctx context.Context, r EventRecorder, log logger.Logger, e Event) {
	if r == nil {
		return
	}
	if err := r.Record(ctx, e); err != nil {
		log.Errorf(ctx, "[AutoAdvance] record event failed: %v", err)
	}
}
