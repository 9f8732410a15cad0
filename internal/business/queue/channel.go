package queue

import "strings"

// 渠道
const (
	ChannelWalkIn = "walk-in"
	ChannelOnline = "online"
)

var (
	walkInAliases = map[string]struct{}{
		"walk-in": {}, "walkin": {}, "walk_in": {}, "walk in": {}, "counter": {},
	}
	onlineAliases = map[string]struct{}{
		"online": {}, "web": {}, "delivery": {}, "pickup": {}, "app": {}, "mobile": {},
	}
)

// GetOrderChannel 订单来源渠道
// 候选字段：type > orderType > order_type > channel，只接受非空字符串
func GetOrderChannel(order Order) string {
	candidates := []interface{}{order.Type, order.OrderType, order.OrderTypeSnake, order.Channel}
	for _, value := range candidates {
		s, ok := value.(string)
		if !ok {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(s))
		if normalized == "" {
			continue
		}
		if _, ok := walkInAliases[normalized]; ok {
			return ChannelWalkIn
		}
		if _, ok := onlineAliases[normalized]; ok {
			return ChannelOnline
		}
		return normalized
	}
	return ChannelWalkIn
}
