package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"pos/orderqueue/internal/business/autoadvance"
	"pos/orderqueue/internal/business/queue"
	"pos/orderqueue/pkg/infra/redis"
	"pos/orderqueue/pkg/logger"
)

// QueueFetcher 队列拉取
type QueueFetcher interface {
	FetchOrderQueue(ctx context.Context) ([]queue.Order, error)
}

// BoardPublisher 看板快照发布
type BoardPublisher interface {
	PublishBoard(ctx context.Context, board autoadvance.Board) error
}

// EventSource 队列变更事件订阅
type EventSource interface {
	SubscribeQueueEvents(ctx context.Context, channel string) (<-chan redis.QueueEvent, error)
}

// AutoAdvanceConfig 自动流转 Worker 配置
type AutoAdvanceConfig struct {
	Name          string
	Enabled       bool
	TickInterval  time.Duration
	PollInterval  time.Duration
	FetchTimeout  time.Duration
	EventsChannel string
}

// AutoAdvanceWorker 队列同步与自动流转 Worker
// 定时拉取队列、每个 tick 推进倒计时，并发布看板快照
type AutoAdvanceWorker struct {
	cfg        AutoAdvanceConfig
	fetcher    QueueFetcher
	advancer   *autoadvance.AutoAdvancer
	controller *autoadvance.Controller
	publisher  BoardPublisher // 可选
	events     EventSource    // 可选

	// loopCtx 控制拉取/tick 循环；execCtx 供已发出的状态更新使用，Shutdown 等待其完成
	loopCtx    context.Context
	loopCancel context.CancelFunc
	execCtx    context.Context

	refreshCh chan struct{}
	closing   *atomic.Bool
	started   *atomic.Bool
	done      chan struct{}
	mu        sync.Mutex
	logger    logger.Logger
}

// NewAutoAdvanceWorker 创建 Worker
// opts 中的 OnAdvanced 会被替换为触发队列刷新
func NewAutoAdvanceWorker(
	ctx context.Context,
	cfg AutoAdvanceConfig,
	fetcher QueueFetcher,
	opts autoadvance.Options,
	publisher BoardPublisher,
	events EventSource,
	log logger.Logger,
) *AutoAdvanceWorker {
	if cfg.Name == "" {
		cfg.Name = "auto_advance"
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = cfg.PollInterval
	}

	loopCtx, loopCancel := context.WithCancel(ctx)
	w := &AutoAdvanceWorker{
		cfg:        cfg,
		fetcher:    fetcher,
		publisher:  publisher,
		events:     events,
		loopCtx:    loopCtx,
		loopCancel: loopCancel,
		execCtx:    ctx,
		refreshCh:  make(chan struct{}, 1),
		closing:    atomic.NewBool(false),
		started:    atomic.NewBool(false),
		done:       make(chan struct{}),
		logger:     log,
	}

	opts.Log = log
	opts.DisableAuto = !cfg.Enabled
	opts.OnAdvanced = func(context.Context) { w.RequestRefresh() }
	w.advancer = autoadvance.NewAutoAdvancer(opts)
	w.controller = autoadvance.NewController(opts)

	return w
}

// Start 启动 Worker（阻塞直到 Shutdown）
func (w *AutoAdvanceWorker) Start() {
	w.started.Store(true)
	defer close(w.done)

	ctx := w.loopCtx
	w.logger.Infof(ctx, "[AutoAdvance] %s started, tick=%v poll=%v enabled=%v",
		w.cfg.Name, w.cfg.TickInterval, w.cfg.PollInterval, w.cfg.Enabled)

	events := w.subscribe(ctx)
	w.refresh(ctx)

	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()
	poller := time.NewTicker(w.cfg.PollInterval)
	defer poller.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof(ctx, "[AutoAdvance] %s loop exited", w.cfg.Name)
			return

		case now := <-ticker.C:
			w.advancer.Tick(w.execCtx, now)

		case <-poller.C:
			w.refresh(ctx)

		case <-w.refreshCh:
			w.refresh(ctx)

		case ev, ok := <-events:
			if !ok {
				w.logger.Warnf(ctx, "[AutoAdvance] queue events subscription closed, falling back to polling")
				events = nil
				continue
			}
			w.logger.Debugf(ctx, "[AutoAdvance] queue event received: %s %s", ev.Type, ev.OrderID)
			w.refresh(ctx)
		}
	}
}

// Shutdown 停止循环并等待已发出的状态更新完成
func (w *AutoAdvanceWorker) Shutdown() {
	if !w.closing.CAS(false, true) {
		return
	}
	w.logger.Infof(w.execCtx, "[AutoAdvance] %s began to close", w.cfg.Name)

	w.loopCancel()
	if w.started.Load() {
		<-w.done
	}
	w.advancer.Wait()

	w.logger.Infof(w.execCtx, "[AutoAdvance] %s shutdown complete", w.cfg.Name)
}

// GetName 获取 Worker 名称
func (w *AutoAdvanceWorker) GetName() string {
	return w.cfg.Name
}

// RequestRefresh 请求尽快刷新队列（合并重复请求）
func (w *AutoAdvanceWorker) RequestRefresh() {
	select {
	case w.refreshCh <- struct{}{}:
	default:
	}
}

// View 当前队列视图
func (w *AutoAdvanceWorker) View() queue.View {
	return w.advancer.View()
}

// Board 按调用方权限生成看板
func (w *AutoAdvanceWorker) Board(can autoadvance.Capability) autoadvance.Board {
	return autoadvance.BuildCards(w.advancer.View(), time.Now(), can, w.cfg.Enabled)
}

// Controller 手动控制（与调度器共用依赖）
func (w *AutoAdvanceWorker) Controller() *autoadvance.Controller {
	return w.controller
}

// refresh 拉取队列并对齐调度状态，失败时保留上一次的视图
func (w *AutoAdvanceWorker) refresh(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	orders, err := w.fetcher.FetchOrderQueue(fetchCtx)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warnf(ctx, "[AutoAdvance] fetch order queue failed: %v", err)
		}
		return
	}

	view := w.advancer.Update(w.execCtx, orders, time.Now())
	w.logger.Debugf(ctx, "[AutoAdvance] queue refreshed: visible=%d walk_in=%d online=%d",
		len(view.Visible), len(view.WalkIn), len(view.Online))

	if w.publisher == nil {
		return
	}
	board := autoadvance.BuildCards(view, time.Now(), autoadvance.AllowAll, w.cfg.Enabled)
	if err := w.publisher.PublishBoard(ctx, board); err != nil {
		w.logger.Warnf(ctx, "[AutoAdvance] publish board failed: %v", err)
	}
}

func (w *AutoAdvanceWorker) subscribe(ctx context.Context) <-chan redis.QueueEvent {
	if w.events == nil || w.cfg.EventsChannel == "" {
		return nil
	}
	events, err := w.events.SubscribeQueueEvents(ctx, w.cfg.EventsChannel)
	if err != nil {
		w.logger.Warnf(ctx, "[AutoAdvance] subscribe %s failed, polling only: %v", w.cfg.EventsChannel, err)
		return nil
	}
	return events
}
