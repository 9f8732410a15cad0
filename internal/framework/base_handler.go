package framework

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pos/orderqueue/pkg/errorutil"
)

// BaseHandler 抽象基类
// 提供 Job 解析与响应包装，不包含业务流程控制
type BaseHandler struct {
	meta       *JobMeta        // Job 元信息
	rawData    []byte          // 原始 Job 数据（Lmstfy 消息原始 bytes）
	bizPayload json.RawMessage // 业务数据（payload.data.data 部分）
	output     interface{}     // 最终输出结果
}

// Job 标准 Job 结构
type Job struct {
	Payload *JobPayload `json:"payload"`
}

type JobPayload struct {
	Data *JobPayloadData `json:"data"`
}

type JobPayloadData struct {
	RequestID  string          `json:"request_id"`
	ActionType string          `json:"action_type"`
	OrgID      string          `json:"org_id"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
}

// JobMeta Job 元信息
type JobMeta struct {
	RequestID  string `json:"request_id"`
	ActionType string `json:"action_type"`
	OrgID      string `json:"org_id,omitempty"`
	ID         string `json:"id"`
}

// Response 标准响应结构（发布到回调队列）
type Response struct {
	Error     interface{} `json:"error"`
	Result    interface{} `json:"result"`
	Processed bool        `json:"processed"`
	Meta      *JobMeta    `json:"meta,omitempty"`
}

// ParseJob 解析 lmstfy Job 标准结构
func (b *BaseHandler) ParseJob(ctx context.Context, rawData []byte) error {
	b.rawData = rawData

	var job Job
	if err := json.Unmarshal(rawData, &job); err != nil {
		return b.WrapError(err, "unmarshal job failed")
	}

	if job.Payload == nil || job.Payload.Data == nil {
		return b.WrapError(nil, "invalid job structure: payload.data is nil")
	}

	data := job.Payload.Data
	if data.ActionType == "" {
		return b.WrapError(nil, "action_type is required")
	}

	b.meta = &JobMeta{
		RequestID:  data.RequestID,
		ActionType: data.ActionType,
		OrgID:      data.OrgID,
		ID:         data.ID,
	}
	b.bizPayload = data.Data

	return nil
}

// DecodePayload 将业务数据解析到 v，业务数据为空时不做处理
func (b *BaseHandler) DecodePayload(v interface{}) error {
	payload := bytes.TrimSpace(b.bizPayload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return b.WrapError(err, "unmarshal business data failed")
	}
	return nil
}

// WrapResponse 包装标准响应
func (b *BaseHandler) WrapResponse(ctx context.Context, output interface{}) ([]byte, error) {
	resp := &Response{
		Error:     nil,
		Result:    output,
		Processed: true,
		Meta:      b.meta,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, b.WrapError(err, "marshal response failed")
	}

	return data, nil
}

// WrapErrorResponse 包装错误响应
func (b *BaseHandler) WrapErrorResponse(ctx context.Context, cause error) ([]byte, error) {
	resp := &Response{
		Error:     cause.Error(),
		Result:    b.output,
		Processed: false,
		Meta:      b.meta,
	}
	var e *errorutil.Error
	if errors.As(cause, &e) {
		resp.Error = e
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, b.WrapError(err, "marshal error response failed")
	}

	return data, nil
}

// WrapError 统一包装错误
func (b *BaseHandler) WrapError(err error, msg string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// SetMeta 设置 meta（RequestID 补全等）
func (b *BaseHandler) SetMeta(meta *JobMeta) {
	b.meta = meta
}

// GetMeta 获取 meta
func (b *BaseHandler) GetMeta() *JobMeta {
	return b.meta
}

// GetRawData 获取原始数据
func (b *BaseHandler) GetRawData() []byte {
	return b.rawData
}

// SetOutput 设置输出
func (b *BaseHandler) SetOutput(output interface{}) {
	b.output = output
}

// GetOutput 获取输出
func (b *BaseHandler) GetOutput() interface{} {
	return b.output
}
