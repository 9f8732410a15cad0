package control

import (
	"context"
	"errors"
	"fmt"

	"pos/orderqueue/internal/business/autoadvance"
	"pos/orderqueue/internal/business/queue"
	"pos/orderqueue/internal/domains/common/response"
	"pos/orderqueue/internal/framework"
	"pos/orderqueue/pkg/errorutil"
	"pos/orderqueue/pkg/logger"
)

// 控制指令类型（action_type）
const (
	ActionAutoFlow   = "order_auto_flow"
	ActionAdvanceNow = "order_advance_now"
	ActionTransition = "order_transition"
)

// Payload 控制指令业务数据
type Payload struct {
	Permissions []string `json:"permissions"`
	Transition  string   `json:"transition,omitempty"` // start_preparing / mark_ready / complete
}

// QueueView 当前队列视图
type QueueView interface {
	View() queue.View
}

// Deps Handler 依赖
type Deps struct {
	Queue      QueueView
	Controller *autoadvance.Controller
	Log        logger.Logger
}

// Handler 订单控制指令 Handler
type Handler struct {
	*framework.BaseHandler
	deps    Deps
	payload Payload
	order   queue.Order
	result  *response.ControlResult
}

// NewFactory 返回 HandlerFactory（各 action_type 共用）
func NewFactory(deps Deps) framework.HandlerFactory {
	return func(ctx context.Context, base *framework.BaseHandler) (framework.BusinessHandler, error) {
		h := &Handler{
			BaseHandler: base,
			deps:        deps,
			result:      response.NewControlResult(base.GetMeta()),
		}
		if err := base.DecodePayload(&h.payload); err != nil {
			return nil, err
		}
		return h, nil
	}
}

// Handle 执行控制指令
func (h *Handler) Handle(ctx context.Context) ([]byte, error) {
	chain := framework.NewPreProcessor(
		framework.Step{Name: "validate", Fn: h.validate},
		framework.Step{Name: "load order", Fn: h.loadOrder},
		framework.Step{Name: "execute", Fn: h.execute},
	)

	err := chain.Run(ctx)
	h.result.Set(err)
	h.SetOutput(h.result)

	if err != nil {
		err = classify(err)
		data, wrapErr := h.WrapErrorResponse(ctx, err)
		if wrapErr != nil {
			return nil, wrapErr
		}
		return data, err
	}

	return h.WrapResponse(ctx, h.result)
}

func (h *Handler) validate(ctx context.Context) error {
	meta := h.GetMeta()
	if meta.ID == "" {
		return errorutil.NonRetriable("id is required")
	}
	if meta.ActionType == ActionTransition {
		target, ok := autoadvance.TransitionTarget(h.payload.Transition)
		if !ok {
			return errorutil.NonRetriable(fmt.Sprintf("unsupported transition %q", h.payload.Transition))
		}
		h.result.Target = target
	}
	return nil
}

func (h *Handler) loadOrder(ctx context.Context) error {
	order, ok := h.deps.Queue.View().Find(h.GetMeta().ID)
	if !ok {
		return errorutil.NonRetriable(fmt.Sprintf("order %s is not in the queue", h.GetMeta().ID))
	}
	h.order = order
	return nil
}

func (h *Handler) execute(ctx context.Context) error {
	meta := h.GetMeta()
	can := autoadvance.NewPermissionSet(h.payload.Permissions).Can

	switch meta.ActionType {
	case ActionAutoFlow:
		return h.deps.Controller.ToggleAutoFlow(ctx, h.order, can, meta.RequestID)
	case ActionAdvanceNow:
		h.result.Target = string(h.order.AutoAdvanceTarget)
		return h.deps.Controller.AdvanceNow(ctx, h.order, can, meta.RequestID)
	case ActionTransition:
		return h.deps.Controller.Transition(ctx, h.order, h.payload.Transition, can, meta.RequestID)
	default:
		return errorutil.NonRetriable(fmt.Sprintf("unsupported action_type %q", meta.ActionType))
	}
}

// classify 业务拒绝不可重试，后端故障保留原有的可重试标记
func classify(err error) error {
	switch {
	case errors.Is(err, autoadvance.ErrForbidden),
		errors.Is(err, autoadvance.ErrNotAvailable),
		errors.Is(err, autoadvance.ErrRejected):
		return errorutil.NonRetriableWrap(err, "order control rejected")
	default:
		return errorutil.Wrap(err)
	}
}
