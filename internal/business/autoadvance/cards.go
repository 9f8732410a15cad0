package autoadvance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pos/orderqueue/internal/business/queue"
)

// urgentSeconds 倒计时小于等于该值时标记为紧急
const urgentSeconds = 5

// Badge 自动流转角标
type Badge struct {
	Text      string `json:"text"`
	Countdown *int   `json:"countdown,omitempty"`
	Paused    bool   `json:"paused"`
	Urgent    bool   `json:"urgent"`
	Next      string `json:"next"`
}

// ItemLine 订单明细行
type ItemLine struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Total    float64 `json:"total"`
	Label    string  `json:"label"`
	Amount   string  `json:"amount"`
}

// Card 订单卡片
type Card struct {
	OrderID         string     `json:"order_id"`
	OrderNumber     string     `json:"order_number"`
	Channel         string     `json:"channel"`
	Status          string     `json:"status"`
	CanonicalStatus string     `json:"canonical_status"`
	CanonicalLabel  string     `json:"canonical_label,omitempty"`
	Terminal        bool       `json:"terminal,omitempty"`
	StatusLabel     string     `json:"status_label"`
	StatusColor     string     `json:"status_color"`
	TimeAgo         string     `json:"time_ago"`
	CustomerName    string     `json:"customer_name,omitempty"`
	Badge           *Badge     `json:"badge,omitempty"`
	PauseReason     string     `json:"pause_reason,omitempty"`
	DurationSeconds float64    `json:"auto_advance_duration_seconds,omitempty"`
	Items           []ItemLine `json:"items"`
	Actions         []string   `json:"actions"`
}

// Board 队列看板
type Board struct {
	Stats       queue.Stats `json:"stats"`
	WalkIn      []Card      `json:"walk_in"`
	Online      []Card      `json:"online"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// BuildCards 构建看板（按渠道分栏）
func BuildCards(view queue.View, now time.Time, can Capability, autoFlowEnabled bool) Board {
	board := Board{
		Stats:       view.Stats,
		WalkIn:      make([]Card, 0, len(view.WalkIn)),
		Online:      make([]Card, 0, len(view.Online)),
		GeneratedAt: now,
	}
	for _, order := range view.WalkIn {
		board.WalkIn = append(board.WalkIn, BuildCard(order, now, can, autoFlowEnabled))
	}
	for _, order := range view.Online {
		board.Online = append(board.Online, BuildCard(order, now, can, autoFlowEnabled))
	}
	return board
}

// BuildCard 构建单个订单卡片
func BuildCard(order queue.Order, now time.Time, can Capability, autoFlowEnabled bool) Card {
	status := queue.GetOrderStatus(order)
	canonical := queue.ToCanonicalStatus(status)

	card := Card{
		OrderID:         string(order.ID),
		OrderNumber:     formatOrderNumber(order.OrderNumber),
		Channel:         queue.GetOrderChannel(order),
		Status:          status,
		CanonicalStatus: canonical,
		CanonicalLabel:  queue.StatusDisplay[canonical],
		Terminal:        queue.IsTerminal(canonical),
		StatusLabel:     queue.FormatStatusLabel(status),
		StatusColor:     queue.StatusColor(status),
		TimeAgo:         queue.FormatTimeAgo(order.TimeReceived, now),
		CustomerName:    string(order.CustomerName),
		Badge:           AutoBadge(order, now),
		PauseReason:     string(order.AutoAdvancePauseReason),
		DurationSeconds: order.AutoAdvanceDurationSeconds.Float64(),
		Items:           make([]ItemLine, 0, len(order.Items)),
		Actions:         AvailableActions(order, can, autoFlowEnabled),
	}

	for _, item := range order.Items {
		total := item.Total()
		card.Items = append(card.Items, ItemLine{
			Name:     string(item.Name),
			Quantity: item.Quantity.Float64(),
			Total:    total,
			Label:    fmt.Sprintf("%sx %s", strconv.FormatFloat(item.Quantity.Float64(), 'f', -1, 64), item.Name),
			Amount:   fmt.Sprintf("PHP %.2f", total),
		})
	}
	return card
}

// AutoBadge 自动流转角标，无目标状态时返回 nil
func AutoBadge(order queue.Order, now time.Time) *Badge {
	if order.AutoAdvanceTarget == "" {
		return nil
	}

	badge := &Badge{
		Text:   "Auto",
		Paused: bool(order.AutoAdvancePaused),
		Next:   "Next: " + queue.FormatStatusLabel(order.AutoAdvanceTarget),
	}

	if badge.Paused {
		badge.Text = "Auto Paused"
		return badge
	}

	if countdown, ok := ComputeCountdownSeconds(order, now); ok {
		badge.Countdown = &countdown
		badge.Text = "Auto " + queue.FormatCountdown(countdown)
		badge.Urgent = countdown <= urgentSeconds
	}
	return badge
}

func formatOrderNumber(number queue.Text) string {
	s := strings.TrimPrefix(strings.TrimSpace(string(number)), "#")
	if s == "" {
		return "N/A"
	}
	return s
}
