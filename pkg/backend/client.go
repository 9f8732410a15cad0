package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"pos/orderqueue/internal/business/queue"
	"pos/orderqueue/pkg/config"
	"pos/orderqueue/pkg/errorutil"
	"pos/orderqueue/pkg/logger"
	"pos/orderqueue/pkg/metrics"
	"pos/orderqueue/pkg/tracing"
)

// 操作名（用于 span 与指标标签）
const (
	OpFetchQueue     = "fetch_queue"
	OpUpdateStatus   = "update_status"
	OpUpdateAutoFlow = "update_auto_flow"
)

// 自动流转开关动作
const (
	AutoFlowPause  = "pause"
	AutoFlowResume = "resume"
)

const maxErrorBody = 512

// Client 订单服务客户端
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	queuePath    string
	statusPath   string
	autoFlowPath string
	metrics      *metrics.Metrics
	log          logger.Logger
}

// envelope 后端统一响应结构
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// NewClient 创建订单服务客户端
func NewClient(cfg config.BackendConfig, m *metrics.Metrics, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		queuePath:    cfg.QueuePath,
		statusPath:   cfg.StatusPath,
		autoFlowPath: cfg.AutoFlowPath,
		metrics:      m,
		log:          log,
	}
}

// FetchOrderQueue 拉取当前队列
// 单条记录解析失败会被跳过，仅记录日志与指标
func (c *Client) FetchOrderQueue(ctx context.Context) ([]queue.Order, error) {
	var orders []queue.Order

	err := c.observe(ctx, OpFetchQueue, func(ctx context.Context) error {
		body, _, err := c.do(ctx, http.MethodGet, c.queuePath, nil)
		if err != nil {
			return err
		}

		list, skipped, err := queue.DecodeQueue(body)
		if err != nil {
			return errorutil.RetriableWrap(err, "decode order queue failed")
		}
		if skipped > 0 {
			c.metrics.AddSkippedRecords(skipped)
			c.log.Warnf(ctx, "[Backend] skipped %d malformed order records", skipped)
		}
		orders = list
		return nil
	})

	return orders, err
}

// UpdateOrderStatus 更新订单状态
// 返回 false 表示后端明确拒绝（success=false）
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status string) (bool, error) {
	var ok bool

	err := c.observe(ctx, OpUpdateStatus, func(ctx context.Context) error {
		payload := map[string]string{"status": status}
		path := fmt.Sprintf(c.statusPath, url.PathEscape(orderID))

		body, _, err := c.do(ctx, http.MethodPatch, path, payload)
		if err != nil {
			return err
		}
		ok = c.succeeded(ctx, body)
		return nil
	}, attribute.String("order.id", orderID), attribute.String("order.target", status))

	return ok, err
}

// UpdateOrderAutoFlow 暂停/恢复订单自动流转
func (c *Client) UpdateOrderAutoFlow(ctx context.Context, orderID string, action string) (bool, error) {
	var ok bool

	err := c.observe(ctx, OpUpdateAutoFlow, func(ctx context.Context) error {
		payload := map[string]string{"action": action}
		path := fmt.Sprintf(c.autoFlowPath, url.PathEscape(orderID))

		body, _, err := c.do(ctx, http.MethodPost, path, payload)
		if err != nil {
			return err
		}
		ok = c.succeeded(ctx, body)
		return nil
	}, attribute.String("order.id", orderID), attribute.String("auto_flow.action", action))

	return ok, err
}

// observe 包装 span 与耗时指标
func (c *Client) observe(ctx context.Context, op string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	start := time.Now()
	err := tracing.Run(ctx, "backend."+op, fn, attrs...)
	c.metrics.ObserveBackend(op, err, time.Since(start))
	return err
}

// succeeded 2xx 响应中 success 字段不为 false 即视为成功
func (c *Client) succeeded(ctx context.Context, body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// 非 JSON 响应体不影响结果
		return true
	}
	if env.Success != nil && !*env.Success {
		c.log.Warnf(ctx, "[Backend] request rejected: %s", env.Message)
		return false
	}
	return true
}

// do 发送请求
// 网络错误与 5xx 可重试，4xx 不可重试
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, errorutil.NonRetriableWrap(err, "marshal request failed")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, errorutil.NonRetriableWrap(err, "build request failed")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errorutil.RetriableWrap(err, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errorutil.RetriableWrap(err, "read response failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		msg := fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, resp.StatusCode, errorutil.Retriable(msg)
		}
		return nil, resp.StatusCode, errorutil.NonRetriable(msg)
	}

	return body, resp.StatusCode, nil
}
