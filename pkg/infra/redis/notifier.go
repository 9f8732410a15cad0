package redis

import (
	"context"

	"pos/orderqueue/internal/business/autoadvance"
)

// Notifier 将用户提示发布到 Redis 频道，供 POS 前端展示
type Notifier struct {
	ps      *PubSub
	channel string
}

// NewNotifier 创建 Notifier
func NewNotifier(ps *PubSub, channel string) *Notifier {
	return &Notifier{ps: ps, channel: channel}
}

// Notify 实现 autoadvance.Notifier
func (n *Notifier) Notify(ctx context.Context, notification autoadvance.Notification) error {
	return n.ps.PublishJSON(ctx, n.channel, notification)
}

// SnapshotPublisher 发布队列看板快照
type SnapshotPublisher struct {
	ps      *PubSub
	channel string
}

// NewSnapshotPublisher 创建 SnapshotPublisher
func NewSnapshotPublisher(ps *PubSub, channel string) *SnapshotPublisher {
	return &SnapshotPublisher{ps: ps, channel: channel}
}

// PublishBoard 发布看板
func (s *SnapshotPublisher) PublishBoard(ctx context.Context, board autoadvance.Board) error {
	return s.ps.PublishJSON(ctx, s.channel, board)
}
