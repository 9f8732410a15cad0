package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"pos/orderqueue/internal/business/autoadvance"
	"pos/orderqueue/internal/business/queue"
	"pos/orderqueue/pkg/backend"
	"pos/orderqueue/pkg/config"
	"pos/orderqueue/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径（仅 -execute 时需要）")
	queuePath  = flag.String("queue", "./cmd/fasttest/testdata/queue.json", "队列快照路径")
	nowFlag    = flag.String("now", "", "模拟当前时间（RFC3339），默认使用系统时间")
	execute    = flag.Bool("execute", false, "对到期订单真实调用订单服务")
	showBoard  = flag.Bool("board", true, "输出看板 JSON")
)

func main() {
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("  FastTest - ORDERQUEUE 自动流转快速验证")
	fmt.Println("========================================")

	now := time.Now()
	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			fmt.Printf("❌ Invalid -now: %v\n", err)
			os.Exit(1)
		}
		now = t
	}

	// 1. 加载队列快照
	body, err := os.ReadFile(*queuePath)
	if err != nil {
		fmt.Printf("❌ Failed to read queue: %v\n", err)
		os.Exit(1)
	}
	orders, skipped, err := queue.DecodeQueue(body)
	if err != nil {
		fmt.Printf("❌ Failed to decode queue: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Loaded %d orders (skipped %d) from %s\n", len(orders), skipped, *queuePath)

	// 2. 准备依赖（默认 dry-run，不连接订单服务）
	opts := autoadvance.Options{Log: logger.NewNop(), DisableAuto: true}
	if *execute {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Printf("❌ Failed to load config: %v\n", err)
			os.Exit(1)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("❌ Config validation failed: %v\n", err)
			os.Exit(1)
		}
		zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
		if err != nil {
			fmt.Printf("❌ Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer zapLogger.Sync()

		opts.Log = zapLogger
		opts.Backend = backend.NewClient(cfg.Backend, nil, zapLogger)
		fmt.Printf("✅ Backend: %s\n", cfg.Backend.BaseURL)
	} else {
		fmt.Println("⚠️  Dry-run mode: status updates are only printed")
	}

	ctx := context.Background()
	advancer := autoadvance.NewAutoAdvancer(opts)
	view := advancer.Update(ctx, orders, now)

	fmt.Printf("\nNow: %s\n", now.Format(time.RFC3339))
	fmt.Printf("Visible: %d, walk-in: %d, online: %d\n", len(view.Visible), len(view.WalkIn), len(view.Online))

	// 3. 倒计时与到期判定
	fmt.Println("\n========================================")
	fmt.Println("  Countdown")
	fmt.Println("========================================")
	for _, order := range view.Visible {
		if order.AutoAdvanceTarget == "" {
			continue
		}
		countdown, ok := autoadvance.ComputeCountdownSeconds(order, now)
		switch {
		case bool(order.AutoAdvancePaused):
			fmt.Printf("  #%s %s -> %s: paused\n", order.OrderNumber, queue.GetOrderStatus(order), order.AutoAdvanceTarget)
		case !ok:
			fmt.Printf("  #%s %s -> %s: no schedule\n", order.OrderNumber, queue.GetOrderStatus(order), order.AutoAdvanceTarget)
		default:
			fmt.Printf("  #%s %s -> %s: %ds\n", order.OrderNumber, queue.GetOrderStatus(order), order.AutoAdvanceTarget, countdown)
		}
	}

	advances := advancer.Reconcile(now)
	fmt.Printf("\nDue advances: %d\n", len(advances))

	successCount, failureCount := 0, 0
	for _, adv := range advances {
		if !*execute {
			fmt.Printf("  [dry-run] order %s -> %s\n", adv.Order.ID, adv.Target)
			continue
		}
		start := time.Now()
		if err := advancer.Execute(ctx, adv); err != nil {
			fmt.Printf("  ❌ order %s -> %s: %v (%v)\n", adv.Order.ID, adv.Target, err, time.Since(start))
			failureCount++
			continue
		}
		fmt.Printf("  ✅ order %s -> %s (%v)\n", adv.Order.ID, adv.Target, time.Since(start))
		successCount++
	}

	if *showBoard {
		board := autoadvance.BuildCards(view, now, autoadvance.AllowAll, true)
		out, err := json.MarshalIndent(board, "", "  ")
		if err != nil {
			fmt.Printf("❌ Failed to encode board: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\n========================================")
		fmt.Println("  Board")
		fmt.Println("========================================")
		fmt.Println(string(out))
	}

	if *execute {
		fmt.Printf("\nSummary: %d succeeded, %d failed\n", successCount, failureCount)
		if failureCount > 0 {
			os.Exit(1)
		}
	}
}
