package response

import (
	"errors"

	"pos/orderqueue/internal/framework"
	"pos/orderqueue/pkg/errorutil"
)

// 控制指令处理状态
const (
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// ControlResult 控制指令结果（回调 result 字段）
type ControlResult struct {
	RequestID string `json:"request_id"`
	OrderID   string `json:"order_id"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// NewControlResult 创建结果
func NewControlResult(meta *framework.JobMeta) *ControlResult {
	r := &ControlResult{Status: StatusPending}
	if meta != nil {
		r.RequestID = meta.RequestID
		r.OrderID = meta.ID
		r.Action = meta.ActionType
	}
	return r
}

// Set 根据处理结果设置状态
func (r *ControlResult) Set(err error) {
	if err == nil {
		r.Status = StatusDone
		r.Message = ""
		return
	}

	r.Status = StatusFailed
	var e *errorutil.Error
	if errors.As(err, &e) {
		r.Message = e.Message
		return
	}
	r.Message = err.Error()
}

// GetStatus 获取状态
func (r *ControlResult) GetStatus() string {
	return r.Status
}
