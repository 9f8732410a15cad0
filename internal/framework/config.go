package framework

import (
	"fmt"
	"time"

	"pos/orderqueue/pkg/config"
)

// SubscriberConfig 控制指令队列的拉取参数
type SubscriberConfig struct {
	QueueName    string
	Concurrency  int
	Timeout      time.Duration // 单次 Consume 的阻塞时间
	TTR          time.Duration // 未 ACK 的消息在 TTR 后重新投递
	Rate         time.Duration // 两次拉取的最小间隔，0 表示不限速
	ErrorBackoff time.Duration
}

// ProcessorConfig 控制指令的处理参数
type ProcessorConfig struct {
	Concurrency int
	BufferSize  int
	Timeout     time.Duration // 单条指令的处理超时，包含订单服务调用
}

// NewSubscriberConfig 由 Worker 配置生成拉取参数
func NewSubscriberConfig(w config.WorkerConfig) (*SubscriberConfig, error) {
	cfg := &SubscriberConfig{
		QueueName:    w.QueueName,
		Concurrency:  w.Subscriber.Threads,
		Timeout:      w.Subscriber.Timeout,
		TTR:          w.Subscriber.TTR,
		Rate:         w.Subscriber.Rate,
		ErrorBackoff: w.Subscriber.ErrorBackoff,
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("worker %s: queue name is required", w.Name)
	}
	// 处理超时内未 ACK 的指令会被重复投递
	if cfg.TTR <= 0 {
		return nil, fmt.Errorf("worker %s: ttr must be positive", w.Name)
	}
	return cfg, nil
}

// NewProcessorConfig 由 Worker 配置生成处理参数
// 处理超时不能超过 TTR，否则指令在处理中就会被重新投递
func NewProcessorConfig(w config.WorkerConfig) (*ProcessorConfig, error) {
	cfg := &ProcessorConfig{
		Concurrency: w.Processor.Threads,
		BufferSize:  w.Processor.BufferSize,
		Timeout:     w.Processor.Timeout,
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BufferSize < 0 {
		cfg.BufferSize = 0
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("worker %s: processor timeout must be positive", w.Name)
	}
	if w.Subscriber.TTR > 0 && cfg.Timeout > w.Subscriber.TTR {
		return nil, fmt.Errorf("worker %s: processor timeout %v exceeds ttr %v", w.Name, cfg.Timeout, w.Subscriber.TTR)
	}
	return cfg, nil
}
