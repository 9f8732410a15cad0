package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Text 宽松字符串：后端字段可能是字符串、数字、布尔或 null
// false / 0 / null 解析为空串（与 “缺失” 等价）
type Text string

// UnmarshalJSON 实现 json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 't':
		*t = "true"
	case 'f':
		*t = ""
	case '{', '[':
		// 对象/数组不是合法的文本字段，按缺失处理
		*t = ""
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid text value %s: %w", string(data), err)
		}
		if n == 0 {
			*t = ""
			return nil
		}
		*t = Text(string(data))
	}
	return nil
}

// String 返回原始字符串
func (t Text) String() string {
	return string(t)
}

// Number 宽松数字：数字或数字字符串，其他值按 0 处理
type Number float64

// UnmarshalJSON 实现 json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = 0
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = Number(v)
		}
	case 't':
		*n = 1
	case 'n', 'f', '{', '[':
		// null / false / 对象 / 数组
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid number value %s: %w", string(data), err)
		}
		*n = Number(v)
	}
	return nil
}

// Float64 返回 float64
func (n Number) Float64() float64 {
	return float64(n)
}

// Flag 宽松布尔：null / false / 0 / "" 为假，其余（包括非空字符串）为真
type Flag bool

// UnmarshalJSON 实现 json.Unmarshaler
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = false
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case 'n', 'f':
	case 't', '{', '[':
		*f = true
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = s != ""
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid flag value %s: %w", string(data), err)
		}
		*f = v != 0
	}
	return nil
}

// Item 订单明细
type Item struct {
	Name     Text   `json:"name"`
	Quantity Number `json:"quantity"`
	Price    Number `json:"price"`
}

// Total 明细小计
func (i Item) Total() float64 {
	return i.Price.Float64() * i.Quantity.Float64()
}

// Items 订单明细列表，非数组视为空，无法解析的明细被忽略
type Items []Item

// UnmarshalJSON 实现 json.Unmarshaler
func (items *Items) UnmarshalJSON(data []byte) error {
	*items = nil
	raws, ok := asArray(data)
	if !ok {
		return nil
	}

	list := make(Items, 0, len(raws))
	for _, raw := range raws {
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		list = append(list, item)
	}
	*items = list
	return nil
}

// Payment 嵌套的支付信息（结构不固定，非对象时忽略）
type Payment struct {
	IsPaid        interface{} `json:"isPaid"`
	Paid          interface{} `json:"paid"`
	HasPaid       interface{} `json:"hasPaid"`
	Status        Text        `json:"status"`
	PaymentStatus Text        `json:"paymentStatus"`
}

// UnmarshalJSON 非对象的 payment 字段（如 "cash"）视为缺失
func (p *Payment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*p = Payment{}
		return nil
	}

	type plain Payment
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Payment(v)
	return nil
}

// Order 后端返回的订单记录（只读，字段名来自多个历史版本）
type Order struct {
	ID          Text `json:"id"`
	OrderNumber Text `json:"orderNumber"`

	// 状态候选字段
	Status               Text `json:"status"`
	CanonicalStatus      Text `json:"canonicalStatus"`
	CanonicalStatusSnake Text `json:"canonical_status"`
	RawStatus            Text `json:"rawStatus"`
	RawStatusSnake       Text `json:"raw_status"`

	// 支付候选字段
	IsPaid             interface{} `json:"isPaid"`
	Paid               interface{} `json:"paid"`
	HasPaid            interface{} `json:"hasPaid"`
	PaymentStatus      Text        `json:"paymentStatus"`
	PaymentStatusSnake Text        `json:"payment_status"`
	Payment            *Payment    `json:"payment"`

	// 渠道候选字段
	Type           interface{} `json:"type"`
	OrderType      interface{} `json:"orderType"`
	OrderTypeSnake interface{} `json:"order_type"`
	Channel        interface{} `json:"channel"`

	CustomerName Text  `json:"customerName"`
	Items        Items `json:"items"`
	TimeReceived Text  `json:"timeReceived"`

	// 自动流转
	AutoAdvanceTarget          Text   `json:"autoAdvanceTarget"`
	AutoAdvanceAt              Text   `json:"autoAdvanceAt"`
	AutoAdvancePaused          Flag   `json:"autoAdvancePaused"`
	AutoAdvancePauseReason     Text   `json:"autoAdvancePauseReason"`
	AutoAdvanceDurationSeconds Number `json:"autoAdvanceDurationSeconds"`
}

// DecodeQueue 解析队列响应
// 支持三种结构：Order 数组、{"orders": [...]}、{"data": {"orders": [...]}}
// 单条记录解析失败会被跳过并计数，不影响整个队列
func DecodeQueue(body []byte) ([]Order, int, error) {
	raws, err := extractOrders(body)
	if err != nil {
		return nil, 0, err
	}

	orders := make([]Order, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		var o Order
		if err := json.Unmarshal(raw, &o); err != nil {
			skipped++
			continue
		}
		orders = append(orders, o)
	}

	return orders, skipped, nil
}

// extractOrders 取出原始订单数组，结构不匹配时返回空
func extractOrders(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	switch body[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode order list failed: %w", err)
		}
		return list, nil
	case '{':
		var wrapper struct {
			Orders json.RawMessage `json:"orders"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("decode order queue failed: %w", err)
		}
		if list, ok := asArray(wrapper.Orders); ok {
			return list, nil
		}

		data := bytes.TrimSpace(wrapper.Data)
		if len(data) == 0 || data[0] != '{' {
			return nil, nil
		}
		var nested struct {
			Orders json.RawMessage `json:"orders"`
		}
		if err := json.Unmarshal(data, &nested); err != nil {
			return nil, nil
		}
		list, _ := asArray(nested.Orders)
		return list, nil
	default:
		return nil, nil
	}
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}
