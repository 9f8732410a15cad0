package redis

import (
	"context"
	"encoding/json"
	"strings"
)

// QueueEvent 队列变更事件（后端在订单创建/更新时发布）
type QueueEvent struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id,omitempty"`
}

// ParseQueueEvent 解析事件，非 JSON 负载按事件类型处理
func ParseQueueEvent(payload string) QueueEvent {
	var ev QueueEvent
	if err := json.Unmarshal([]byte(payload), &ev); err == nil {
		return ev
	}
	return QueueEvent{Type: strings.TrimSpace(payload)}
}

// SubscribeQueueEvents 订阅队列变更事件，ctx 结束后关闭返回的 channel
// 事件密集时合并为一次通知
func (p *PubSub) SubscribeQueueEvents(ctx context.Context, channel string) (<-chan QueueEvent, error) {
	sub := p.client.Subscribe(ctx, channel)
	// 等待订阅确认
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan QueueEvent, 1)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- ParseQueueEvent(msg.Payload):
				default:
					// 已有未处理的事件，合并
				}
			}
		}
	}()

	return out, nil
}
