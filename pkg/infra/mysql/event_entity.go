package mysql

import (
	"time"

	"gorm.io/datatypes"
)

// OrderEvent 订单状态变更审计记录
type OrderEvent struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID   string `gorm:"column:request_id;type:varchar(64);not null;index:idx_request_id"`
	OrderID     string `gorm:"column:order_id;type:varchar(64);not null;index:idx_order_created"`
	OrderNumber string `gorm:"column:order_number;type:varchar(64)"`

	FromStatus   string `gorm:"column:from_status;type:varchar(32)"`
	TargetStatus string `gorm:"column:target_status;type:varchar(32);not null"`
	Trigger      string `gorm:"column:trigger;type:varchar(16);not null"` // auto/manual
	Outcome      string `gorm:"column:outcome;type:varchar(16);not null"` // success/failed
	ErrorMessage string `gorm:"column:error_message;type:text"`

	Payload datatypes.JSON `gorm:"column:payload;type:json"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_order_created"`
}

// TableName 指定表名
func (OrderEvent) TableName() string {
	return "order_events"
}
