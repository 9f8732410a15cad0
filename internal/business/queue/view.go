package queue

// Stats 队列统计
type Stats struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	InProgress int `json:"in_progress"`
	Ready      int `json:"ready"`
}

// View 分类后的队列视图
// WalkIn 与 Online 均保持 Visible 中的相对顺序
type View struct {
	Visible []Order `json:"visible"`
	WalkIn  []Order `json:"walk_in"`
	Online  []Order `json:"online"`
	Stats   Stats   `json:"stats"`
}

// IsVisible 已支付且未完成的订单才进入队列
func IsVisible(order Order) bool {
	return IsOrderPaid(order) && ToCanonicalStatus(GetOrderStatus(order)) != StatusCompleted
}

// Categorize 生成队列视图
func Categorize(orders []Order) View {
	view := View{
		Visible: make([]Order, 0, len(orders)),
		WalkIn:  make([]Order, 0),
		Online:  make([]Order, 0),
	}

	for _, order := range orders {
		if !IsVisible(order) {
			continue
		}
		view.Visible = append(view.Visible, order)

		if GetOrderChannel(order) == ChannelWalkIn {
			view.WalkIn = append(view.WalkIn, order)
		} else {
			view.Online = append(view.Online, order)
		}

		status := GetOrderStatus(order)
		switch {
		case IsQueued(status):
			view.Stats.Queued++
		case IsPreparing(status):
			view.Stats.InProgress++
		case IsReady(status):
			view.Stats.Ready++
		}
	}
	view.Stats.Total = len(view.Visible)

	return view
}

// Find 按 ID 查找可见订单
func (v View) Find(orderID string) (Order, bool) {
	for _, order := range v.Visible {
		if string(order.ID) == orderID {
			return order, true
		}
	}
	return Order{}, false
}
