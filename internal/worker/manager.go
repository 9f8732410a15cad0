package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"pos/orderqueue/internal/business/autoadvance"
	"pos/orderqueue/internal/domains"
	"pos/orderqueue/internal/domains/handlers/order/control"
	"pos/orderqueue/internal/framework"
	"pos/orderqueue/internal/server"
	queuehandler "pos/orderqueue/internal/server/handlers/queue"
	"pos/orderqueue/internal/server/routers"
	"pos/orderqueue/pkg/config"
	"pos/orderqueue/pkg/lmstfy"
	"pos/orderqueue/pkg/logger"
	"pos/orderqueue/pkg/metrics"
)

// shutdownTimeout 状态服务关闭超时
const shutdownTimeout = 5 * time.Second

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// Deps Manager 依赖，可选依赖为空时对应功能关闭
type Deps struct {
	Backend   autoadvance.OrderBackend
	Fetcher   QueueFetcher
	Notifier  autoadvance.Notifier      // 可选：Redis 提示
	Recorder  autoadvance.EventRecorder // 可选：MySQL 审计
	Events    EventSource               // 可选：Redis 队列事件
	Publisher BoardPublisher            // 可选：Redis 看板快照
	Store     queuehandler.EventStore   // 可选：审计查询
	Metrics   *metrics.Metrics
}

// ManagerInstance Manager 实例
type ManagerInstance struct {
	ctx          context.Context
	cfg          *config.Config
	deps         Deps
	lmstfyClient *lmstfy.Client
	autoWorker   *AutoAdvanceWorker
	workers      []Worker
	server       *server.Server
	closing      *atomic.Bool
	shutdownCh   chan struct{}
	wg           sync.WaitGroup
	logger       logger.Logger
}

// NewManagerInstance 创建 Manager
func NewManagerInstance(cfg *config.Config, deps Deps, log logger.Logger) (Manager, error) {
	ctx := context.Background()

	if deps.Backend == nil || deps.Fetcher == nil {
		return nil, fmt.Errorf("order backend is required")
	}

	var lmstfyClient *lmstfy.Client
	if len(cfg.Workers) > 0 {
		cli, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create lmstfy client: %w", err)
		}
		lmstfyClient = cli
	}

	return &ManagerInstance{
		ctx:          ctx,
		cfg:          cfg,
		deps:         deps,
		lmstfyClient: lmstfyClient,
		closing:      atomic.NewBool(false),
		shutdownCh:   make(chan struct{}),
		workers:      make([]Worker, 0),
		logger:       log,
	}, nil
}

// Start 启动 Manager（阻塞直到 Shutdown 完成）
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	// 1. 加载所有 Worker
	if err := m.loadWorkers(); err != nil {
		return fmt.Errorf("failed to load workers: %w", err)
	}

	m.logger.Infof(m.ctx, "[Manager] All workers loaded, count: %d", len(m.workers))

	// 2. 启动所有 Worker（每个 Worker 在独立 goroutine）
	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}

	// 3. 启动状态服务
	if m.cfg.Server.Addr != "" {
		m.server = m.newServer()
		go func() {
			if err := m.server.Start(); err != nil {
				m.logger.Errorf(m.ctx, "[Manager] Status server exited: %v", err)
			}
		}()
	}

	m.logger.Infof(m.ctx, "[Manager] Start success")

	// 4. 阻塞等待退出信号
	<-m.shutdownCh

	return nil
}

// Shutdown 优雅退出
// 控制指令 Worker 先退出（依赖队列视图），自动流转 Worker 最后退出
func (m *ManagerInstance) Shutdown() {
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	if !m.closing.CAS(false, true) {
		return
	}

	if m.server != nil {
		ctx, cancel := context.WithTimeout(m.ctx, shutdownTimeout)
		if err := m.server.Shutdown(ctx); err != nil {
			m.logger.Warnf(m.ctx, "[Manager] Status server shutdown: %v", err)
		}
		cancel()
	}

	for i := len(m.workers) - 1; i >= 0; i-- {
		worker := m.workers[i]
		m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
		worker.Shutdown()
	}

	m.wg.Wait()
	close(m.shutdownCh)

	m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
}

// loadWorkers 加载自动流转 Worker 与控制指令 Worker
func (m *ManagerInstance) loadWorkers() error {
	m.autoWorker = NewAutoAdvanceWorker(
		m.ctx,
		AutoAdvanceConfig{
			Name:          "auto_advance",
			Enabled:       m.cfg.AutoAdvance.Enabled,
			TickInterval:  m.cfg.AutoAdvance.TickInterval,
			PollInterval:  m.cfg.AutoAdvance.PollInterval,
			FetchTimeout:  m.cfg.Backend.Timeout,
			EventsChannel: m.cfg.AutoAdvance.EventsChannel,
		},
		m.deps.Fetcher,
		autoadvance.Options{
			Backend:     m.deps.Backend,
			Notifier:    m.deps.Notifier,
			Recorder:    m.deps.Recorder,
			Metrics:     m.deps.Metrics,
			CallTimeout: m.cfg.Backend.Timeout,
		},
		m.deps.Publisher,
		m.deps.Events,
		m.logger,
	)
	// 自动流转 Worker 放在首位，关闭时最后退出
	m.workers = append(m.workers, m.autoWorker)

	handlers := domains.NewHandlerMap(control.Deps{
		Queue:      m.autoWorker,
		Controller: m.autoWorker.Controller(),
		Log:        m.logger,
	})

	for _, workerCfg := range m.cfg.Workers {
		subCfg, err := framework.NewSubscriberConfig(workerCfg)
		if err != nil {
			return err
		}
		procCfg, err := framework.NewProcessorConfig(workerCfg)
		if err != nil {
			return err
		}

		getProcess := domains.GetProcess(domains.ProcessConfig{
			Handlers:      handlers,
			Publisher:     m.lmstfyClient,
			CallbackQueue: workerCfg.CallbackQueue,
			Log:           m.logger,
		})

		worker, err := NewWorkerInstance(
			m.ctx,
			workerCfg.Name,
			subCfg,
			procCfg,
			m.lmstfyClient,
			getProcess,
			m.logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create worker %s: %w", workerCfg.Name, err)
		}

		m.workers = append(m.workers, worker)
	}

	return nil
}

func (m *ManagerInstance) newServer() *server.Server {
	engine := routers.SetupRoutes(
		queuehandler.NewHandler(m.autoWorker, m.deps.Store),
		m.deps.Metrics.Handler(),
		m.logger,
	)
	return server.New(m.cfg.Server.Addr, engine, m.logger)
}
