package queue

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// 规范状态
const (
	StatusNew       = "new"
	StatusAccepted  = "accepted"
	StatusInPrep    = "in_prep"
	StatusStaged    = "staged"
	StatusHandoff   = "handoff"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusVoided    = "voided"
	StatusRefunded  = "refunded"
)

// CanonicalTableVersion 规范状态映射表版本，修改 canonicalStatusMap 时必须递增
const CanonicalTableVersion = 1

var canonicalStatusMap = map[string]string{
	"pending":     StatusNew,
	"accepted":    StatusAccepted,
	"in_queue":    StatusAccepted,
	"in-queue":    StatusAccepted,
	"in_progress": StatusInPrep,
	"in-progress": StatusInPrep,
	"in_prep":     StatusInPrep,
	"preparing":   StatusInPrep,
	"ready":       StatusStaged,
	"staged":      StatusStaged,
	"handoff":     StatusHandoff,
	"completed":   StatusCompleted,
	"cancelled":   StatusCancelled,
	"voided":      StatusVoided,
	"refunded":    StatusRefunded,
}

// 展示文案，按原始（归一化后）状态取值
var statusLabels = map[string]string{
	"pending":     "Pending",
	"accepted":    "Accepted",
	"in_queue":    "In Queue",
	"in_progress": "In Progress",
	"in-progress": "In Progress",
	"preparing":   "Preparing",
	"in_prep":     "In Preparation",
	"ready":       "Ready",
	"staged":      "Ready",
	"handoff":     "Handoff",
	"completed":   "Completed",
	"cancelled":   "Cancelled",
}

// StatusDisplay 后端使用的规范状态展示名
var StatusDisplay = map[string]string{
	StatusNew:       "New",
	StatusAccepted:  "Accepted",
	StatusInPrep:    "In Prep",
	"assembling":    "Assembling",
	StatusStaged:    "Staged",
	StatusHandoff:   "Handoff",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
	StatusVoided:    "Voided",
	StatusRefunded:  "Refunded",
}

var terminalStatuses = map[string]struct{}{
	StatusCompleted: {},
	StatusCancelled: {},
	StatusVoided:    {},
	StatusRefunded:  {},
}

// 队列分组（基于原始状态）
var (
	queuedStatuses    = []string{"pending", "accepted", "in_queue", "new"}
	preparingStatuses = []string{"preparing", "in_progress", "in_prep"}
	readyStatuses     = []string{"ready", "staged", "handoff"}
)

var labelSeparator = regexp.MustCompile(`[_\s-]+`)

// NormalizeStatus 小写并去除首尾空白
func NormalizeStatus(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case Text:
		return strings.ToLower(strings.TrimSpace(string(v)))
	case bool:
		if !v {
			return ""
		}
		return "true"
	case float64:
		if v == 0 {
			return ""
		}
		return fmt.Sprint(v)
	case int:
		if v == 0 {
			return ""
		}
		return fmt.Sprint(v)
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
}

// ToCanonicalStatus 映射为规范状态，未知状态原样（归一化后）返回
func ToCanonicalStatus(status interface{}) string {
	normalized := NormalizeStatus(status)
	if canonical, ok := canonicalStatusMap[normalized]; ok {
		return canonical
	}
	return normalized
}

// IsTerminal 是否终态
func IsTerminal(status interface{}) bool {
	_, ok := terminalStatuses[ToCanonicalStatus(status)]
	return ok
}

// GetOrderStatus 按优先级读取订单状态字段
// status > canonicalStatus > canonical_status > rawStatus > raw_status
func GetOrderStatus(order Order) string {
	candidates := []Text{
		order.Status,
		order.CanonicalStatus,
		order.CanonicalStatusSnake,
		order.RawStatus,
		order.RawStatusSnake,
	}
	for _, value := range candidates {
		if normalized := NormalizeStatus(value); normalized != "" {
			return normalized
		}
	}
	return ""
}

// FormatStatusLabel 状态展示文案
func FormatStatusLabel(status interface{}) string {
	normalized := NormalizeStatus(status)
	if normalized == "" {
		return "Unknown"
	}
	if label, ok := statusLabels[normalized]; ok {
		return label
	}

	parts := labelSeparator.Split(normalized, -1)
	for i, part := range parts {
		if part == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		parts[i] = string(unicode.ToUpper(r)) + part[size:]
	}
	return strings.Join(parts, " ")
}

// StatusColor 状态对应的颜色分组
func StatusColor(status interface{}) string {
	switch NormalizeStatus(status) {
	case "pending":
		return ColorPending
	case "preparing", "in_progress", "in-progress", "in_prep":
		return ColorPreparing
	case "ready", "staged":
		return ColorReady
	case "in_queue", "accepted":
		return ColorQueued
	case "completed":
		return ColorCompleted
	default:
		return ColorDefault
	}
}

// 颜色分组
const (
	ColorPending   = "yellow"
	ColorPreparing = "blue"
	ColorReady     = "green"
	ColorQueued    = "amber"
	ColorCompleted = "gray"
	ColorDefault   = "gray"
)

// IsQueued 待处理分组
func IsQueued(status string) bool {
	return contains(queuedStatuses, status)
}

// IsPreparing 制作中分组
func IsPreparing(status string) bool {
	return contains(preparingStatuses, status)
}

// IsReady 待取餐分组
func IsReady(status string) bool {
	return contains(readyStatuses, status)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
