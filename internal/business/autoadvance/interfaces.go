package autoadvance

import (
	"context"
	"time"
)

// PermissionStatusUpdate 手动操作与自动流转控制所需权限
const PermissionStatusUpdate = "order.status.update"

// 流转触发方式
const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
)

// 流转结果
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeDenied  = "denied"
)

// 用户提示文案
const (
	MsgAutoTimerFailed = "Unable to update auto timer."
	MsgAdvanceFailed   = "Failed to advance order."
	MsgTransitionFail  = "Failed to update order status."
)

// OrderBackend 订单服务（状态更新与自动流转开关）
type OrderBackend interface {
	UpdateOrderStatus(ctx context.Context, orderID string, status string) (bool, error)
	UpdateOrderAutoFlow(ctx context.Context, orderID string, action string) (bool, error)
}

// Notification 用户可见的提示
type Notification struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	OrderID   string    `json:"order_id"`
	RequestID string    `json:"request_id,omitempty"`
	TS        time.Time `json:"ts"`
}

// Notifier 提示发送
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Event 状态变更审计记录
type Event struct {
	RequestID   string
	OrderID     string
	OrderNumber string
	FromStatus  string
	Target      string
	Trigger     string
	Outcome     string
	Error       string
	Payload     map[string]interface{}
}

// EventRecorder 审计记录持久化
type EventRecorder interface {
	Record(ctx context.Context, e Event) error
}

// Capability 权限判断函数
type Capability func(permission string) bool

// AllowAll 拥有全部权限
func AllowAll(string) bool { return true }

// PermissionSet 权限集合
type PermissionSet map[string]struct{}

// NewPermissionSet 由权限列表构建集合
func NewPermissionSet(permissions []string) PermissionSet {
	set := make(PermissionSet, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return set
}

// Can 是否拥有权限
func (s PermissionSet) Can(permission string) bool {
	_, ok := s[permission]
	return ok
}
