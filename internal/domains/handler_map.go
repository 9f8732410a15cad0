package domains

import (
	"pos/orderqueue/internal/domains/handlers/order/control"
	"pos/orderqueue/internal/framework"
)

// NewHandlerMap 路由表（ActionType → Handler 映射）
func NewHandlerMap(deps control.Deps) map[string]framework.HandlerFactory {
	factory := control.NewFactory(deps)
	return map[string]framework.HandlerFactory{
		control.ActionAutoFlow:   factory,
		control.ActionAdvanceNow: factory,
		control.ActionTransition: factory,
	}
}
