package autoadvance

import (
	"time"

	"pos/orderqueue/internal/business/queue"
)

// ComputeCountdownSeconds 距自动流转的剩余秒数（向上取整，不小于 0）
// 暂停、无目标状态或 autoAdvanceAt 无法解析时返回 false
func ComputeCountdownSeconds(order queue.Order, now time.Time) (int, bool) {
	if order.AutoAdvancePaused || order.AutoAdvanceTarget == "" {
		return 0, false
	}

	at, ok := queue.ParseTimestamp(order.AutoAdvanceAt)
	if !ok {
		return 0, false
	}

	diff := at.UnixMilli() - now.UnixMilli()
	if diff <= 0 {
		return 0, true
	}
	return int((diff + 999) / 1000), true
}
