package queue

import "encoding/json"

var (
	paidStatuses = map[string]struct{}{
		"paid": {}, "settled": {}, "complete": {}, "completed": {}, "success": {}, "succeeded": {},
	}
	unpaidStatuses = map[string]struct{}{
		"unpaid": {}, "pending": {}, "due": {}, "failed": {}, "declined": {}, "void": {}, "voided": {},
	}
)

// IsOrderPaid 判断订单是否已支付
// 1. 布尔型字段：isPaid > paid > hasPaid > payment.isPaid > payment.paid > payment.hasPaid
// 2. 状态型字段：paymentStatus > payment_status > payment.status > payment.paymentStatus
// 3. 均无法判断时按已支付处理
func IsOrderPaid(order Order) bool {
	booleanCandidates := []interface{}{order.IsPaid, order.Paid, order.HasPaid}
	if order.Payment != nil {
		booleanCandidates = append(booleanCandidates,
			order.Payment.IsPaid, order.Payment.Paid, order.Payment.HasPaid)
	}

	for _, value := range booleanCandidates {
		if paid, ok := boolLike(value); ok {
			return paid
		}
	}

	statusCandidates := []Text{order.PaymentStatus, order.PaymentStatusSnake}
	if order.Payment != nil {
		statusCandidates = append(statusCandidates, order.Payment.Status, order.Payment.PaymentStatus)
	}

	for _, value := range statusCandidates {
		status := NormalizeStatus(value)
		if status == "" {
			continue
		}
		if _, ok := paidStatuses[status]; ok {
			return true
		}
		if _, ok := unpaidStatuses[status]; ok {
			return false
		}
	}

	return true
}

// boolLike 只识别固定字面量：true/"true"/1/"1" 与 false/"false"/0/"0"
func boolLike(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch v {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	case float64:
		switch v {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case int:
		switch v {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case json.Number:
		return boolLike(string(v))
	}
	return false, false
}
