package domains

import (
	"context"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"pos/orderqueue/internal/framework"
	"pos/orderqueue/pkg/errorutil"
	"pos/orderqueue/pkg/lmstfyx"
	"pos/orderqueue/pkg/logger"
)

// callbackTTL 回调消息保留时间（秒）
const callbackTTL = 24 * 3600

// CallbackPublisher 回调队列发布
type CallbackPublisher interface {
	Publish(queue string, data []byte, ttl, delay uint32) error
}

// ProcessConfig GetProcess 依赖
type ProcessConfig struct {
	Handlers      map[string]framework.HandlerFactory
	Publisher     CallbackPublisher // 为空则不回调
	CallbackQueue string
	Log           logger.Logger
}

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(cfg ProcessConfig) lmstfyx.Proc {
	log := cfg.Log
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		base := &framework.BaseHandler{}
		if err := base.ParseJob(ctx, lmstfyJob.Data); err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed: job=%s, %v", lmstfyJob.ID, err)
			return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
		}

		meta := base.GetMeta()
		// RequestID 为空则生成一个
		if meta.RequestID == "" {
			meta.RequestID = uuid.NewString()
		}

		// 2. 注入 TraceID 等日志字段
		ctx = logger.WithTraceID(ctx, meta.RequestID)
		ctx = logger.WithActionType(ctx, meta.ActionType)
		ctx = logger.WithOrderID(ctx, meta.ID)

		log.Infof(ctx, "[GetProcess] Processing job: action_type=%s, request_id=%s, id=%s",
			meta.ActionType, meta.RequestID, meta.ID)

		// 3. 从 HandlerMap 获取 Handler
		factory, ok := cfg.Handlers[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
		}

		// 4. 调用 Handler（捕获 panic）
		var resp *lmstfyx.JobResp
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
					resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
				}
			}()

			handler, err := factory(ctx, base)
			if err != nil {
				log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
				resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
				return
			}

			data, err := handler.Handle(ctx)
			resp = doJobReport(ctx, cfg, data, err)
		}()

		log.Infof(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", resp.Action, time.Since(startTime))

		return resp
	}
}

// doJobReport 根据处理结果决定 ACK/Release，并发布回调
// 可重试错误不回调，等待重新投递后的最终结果
func doJobReport(ctx context.Context, cfg ProcessConfig, data []byte, err error) *lmstfyx.JobResp {
	if err != nil && errorutil.IsRetryable(err) {
		cfg.Log.Warnf(ctx, "[doJobReport] retryable failure, waiting for redelivery: %v", err)
		return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusRelease, Data: data}
	}

	if err != nil {
		cfg.Log.Warnf(ctx, "[doJobReport] job finished with error: %v", err)
	}

	if cfg.Publisher != nil && cfg.CallbackQueue != "" && len(data) > 0 {
		// 回调失败不影响 ACK，避免重复执行已生效的状态变更
		if pubErr := cfg.Publisher.Publish(cfg.CallbackQueue, data, callbackTTL, 0); pubErr != nil {
			cfg.Log.Errorf(ctx, "[doJobReport] publish callback failed: %v", pubErr)
		}
	}

	return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusSuccess, Data: data}
}
