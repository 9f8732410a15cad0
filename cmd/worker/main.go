package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pos/orderqueue/internal/worker"
	"pos/orderqueue/pkg/backend"
	"pos/orderqueue/pkg/config"
	"pos/orderqueue/pkg/infra/mysql"
	"pos/orderqueue/pkg/infra/redis"
	"pos/orderqueue/pkg/logger"
	"pos/orderqueue/pkg/metrics"
	"pos/orderqueue/pkg/tracing"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	log.Println("========================================")
	log.Println("  ORDERQUEUE Worker Starting...")
	log.Println("========================================")

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	log.Printf("Config loaded: %s, env: %s, log_level: %s\n", cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	// 3. 链路追踪
	shutdownTracing, err := tracing.Init(tracing.Config{Enabled: cfg.Tracing.Enabled, ServiceName: cfg.App.Name})
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// 4. 指标与订单服务客户端
	m, err := metrics.New()
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}
	backendClient := backend.NewClient(cfg.Backend, m, zapLogger)

	deps := worker.Deps{
		Backend: backendClient,
		Fetcher: backendClient,
		Metrics: m,
	}

	// 5. 可选依赖：Redis（提示、快照、队列事件）
	if cfg.Redis.Addr != "" {
		ps, err := redis.NewPubSub(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Warnf(ctx, "[Main] redis unavailable, notifications disabled: %v", err)
		} else {
			defer ps.Close()
			deps.Notifier = redis.NewNotifier(ps, cfg.Notify.Channel)
			deps.Publisher = redis.NewSnapshotPublisher(ps, cfg.Notify.SnapshotChannel)
			deps.Events = ps
		}
	}

	// 6. 可选依赖：MySQL（审计记录）
	if cfg.MySQL.DSN != "" {
		dao, err := mysql.NewEventDAO(cfg.MySQL.DSN)
		if err != nil {
			zapLogger.Warnf(ctx, "[Main] mysql unavailable, audit log disabled: %v", err)
		} else {
			defer dao.Close()
			deps.Recorder = dao
			deps.Store = dao
		}
	}

	// 7. 创建 Manager
	mgr, err := worker.NewManagerInstance(cfg, deps, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 8. 启动 Manager
	go func() {
		if err := mgr.Start(); err != nil {
			log.Fatalf("Manager start failed: %v", err)
		}
	}()

	log.Println("Worker started. Press Ctrl+C to shutdown.")

	// 9. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Println("========================================")
	log.Printf("  Received signal: %v\n", sig)
	log.Println("  Shutting down Worker...")
	log.Println("========================================")

	// 10. 优雅关闭 Manager
	mgr.Shutdown()

	log.Println("Worker exited gracefully")
}
