package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"pos/orderqueue/internal/business/autoadvance"
	"pos/orderqueue/internal/business/queue"
)

// defaultListLimit 单次查询的最大记录数
const defaultListLimit = 50

// EventDAO 审计记录数据访问对象
type EventDAO struct {
	db *gorm.DB
}

// NewEventDAO 连接数据库并迁移表结构
func NewEventDAO(dsn string) (*EventDAO, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&OrderEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate order_events: %w", err)
	}

	return &EventDAO{db: db}, nil
}

// NewEventDAOWithDB 使用已有连接
func NewEventDAOWithDB(db *gorm.DB) *EventDAO {
	return &EventDAO{db: db}
}

// Record 写入审计记录（实现 autoadvance.EventRecorder）
func (dao *EventDAO) Record(ctx context.Context, e autoadvance.Event) error {
	row, err := newOrderEvent(e, time.Now())
	if err != nil {
		return err
	}

	if err := dao.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert order event: %w", err)
	}
	return nil
}

// ListByOrder 按时间倒序查询订单的审计记录
func (dao *EventDAO) ListByOrder(ctx context.Context, orderID string, limit int) ([]OrderEvent, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	var events []OrderEvent
	result := dao.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list order events: %w", result.Error)
	}
	return events, nil
}

// Close 关闭数据库连接
func (dao *EventDAO) Close() error {
	sqlDB, err := dao.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newOrderEvent 构造实体，payload 附带规范状态便于按规范状态检索
func newOrderEvent(e autoadvance.Event, now time.Time) (*OrderEvent, error) {
	payload := map[string]interface{}{
		"from_canonical":          queue.ToCanonicalStatus(e.FromStatus),
		"target_canonical":        queue.ToCanonicalStatus(e.Target),
		"canonical_table_version": queue.CanonicalTableVersion,
	}
	for k, v := range e.Payload {
		payload[k] = v
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &OrderEvent{
		RequestID:    e.RequestID,
		OrderID:      e.OrderID,
		OrderNumber:  e.OrderNumber,
		FromStatus:   e.FromStatus,
		TargetStatus: e.Target,
		Trigger:      e.Trigger,
		Outcome:      e.Outcome,
		ErrorMessage: e.Error,
		Payload:      datatypes.JSON(payloadJSON),
		CreatedAt:    now,
	}, nil
}
