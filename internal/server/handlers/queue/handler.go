package queue

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"pos/orderqueue/internal/business/autoadvance"
	"pos/orderqueue/pkg/ginx"
	"pos/orderqueue/pkg/infra/mysql"
)

// BoardSource 当前队列看板
type BoardSource interface {
	Board(can autoadvance.Capability) autoadvance.Board
}

// EventStore 审计记录查询
type EventStore interface {
	ListByOrder(ctx context.Context, orderID string, limit int) ([]mysql.OrderEvent, error)
}

// Handler 队列查询接口
type Handler struct {
	source BoardSource
	events EventStore
}

// NewHandler 创建 Handler，events 为空时审计查询不可用
func NewHandler(source BoardSource, events EventStore) *Handler {
	return &Handler{source: source, events: events}
}

// GetQueue 当前队列看板
// 可通过 permissions 参数（逗号分隔）按调用方权限生成可用操作
func (h *Handler) GetQueue(c *gin.Context) {
	var permissions []string
	for _, p := range strings.Split(c.Query("permissions"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			permissions = append(permissions, p)
		}
	}

	can := autoadvance.Capability(autoadvance.AllowAll)
	if c.Query("permissions") != "" {
		can = autoadvance.NewPermissionSet(permissions).Can
	}

	ginx.Success(c, h.source.Board(can))
}

// ListEvents 订单状态变更记录
func (h *Handler) ListEvents(c *gin.Context) {
	if h.events == nil {
		ginx.Unavailable(c, "audit log is not enabled")
		return
	}

	orderID := c.Param("id")
	if orderID == "" {
		ginx.BadRequest(c, "order id required")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ginx.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.events.ListByOrder(c.Request.Context(), orderID, limit)
	if err != nil {
		c.Error(err)
		return
	}

	ginx.Success(c, events)
}
