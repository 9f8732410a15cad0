package framework

import (
	"context"
	"time"

	"pos/orderqueue/pkg/logger"
)

// MessageSource 控制指令来源（lmstfy 适配器实现）
type MessageSource interface {
	// Consume 阻塞拉取一条消息，超时返回 nil
	Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error)

	// Ack 删除消息；未 ACK 的消息在 TTR 后重新投递
	Ack(queue string, jobID string) error
}

// Logger Subscriber / Processor 使用的日志
type Logger = logger.Logger

// BusinessHandler 控制指令处理
// 返回发布到回调队列的响应；error 决定消息 ACK 还是等待重投
type BusinessHandler interface {
	Handle(ctx context.Context) ([]byte, error)
}

// HandlerFactory 按 action_type 注册的 Handler 构造函数
type HandlerFactory func(ctx context.Context, base *BaseHandler) (BusinessHandler, error)
