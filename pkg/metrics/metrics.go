package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trigger 状态变更来源
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// Outcome 调用结果
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeDenied  Outcome = "denied"
)

// Metrics 队列 Worker 指标
type Metrics struct {
	registry *prometheus.Registry

	advancesTotal    *prometheus.CounterVec
	commandsTotal    *prometheus.CounterVec
	visibleOrders    *prometheus.GaugeVec
	activeLocks      prometheus.Gauge
	skippedRecords   prometheus.Counter
	backendDurations *prometheus.HistogramVec
}

// New 创建并注册指标
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		advancesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderqueue_status_updates_total",
				Help: "Status update calls issued by the queue worker",
			},
			[]string{"trigger", "outcome"},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderqueue_control_commands_total",
				Help: "Manual control commands handled",
			},
			[]string{"action", "outcome"},
		),
		visibleOrders: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orderqueue_visible_orders",
				Help: "Orders currently visible in the queue",
			},
			[]string{"channel"},
		),
		activeLocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderqueue_auto_advance_locks",
			Help: "Auto-advance locks currently held",
		}),
		skippedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderqueue_skipped_records_total",
			Help: "Malformed order records skipped while decoding the queue",
		}),
		backendDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orderqueue_backend_request_duration_seconds",
				Help:    "Duration of order service requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
	}

	collectors := []prometheus.Collector{
		m.advancesTotal,
		m.commandsTotal,
		m.visibleOrders,
		m.activeLocks,
		m.skippedRecords,
		m.backendDurations,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Registry 返回 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordStatusUpdate 记录状态变更调用
func (m *Metrics) RecordStatusUpdate(trigger Trigger, outcome Outcome) {
	if m == nil {
		return
	}
	m.advancesTotal.WithLabelValues(string(trigger), string(outcome)).Inc()
}

// RecordCommand 记录控制指令
func (m *Metrics) RecordCommand(action string, outcome Outcome) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(action, string(outcome)).Inc()
}

// SetQueueSize 记录可见订单数量
func (m *Metrics) SetQueueSize(walkIn, online int) {
	if m == nil {
		return
	}
	m.visibleOrders.WithLabelValues("walk-in").Set(float64(walkIn))
	m.visibleOrders.WithLabelValues("online").Set(float64(online))
}

// SetActiveLocks 记录当前锁数量
func (m *Metrics) SetActiveLocks(n int) {
	if m == nil {
		return
	}
	m.activeLocks.Set(float64(n))
}

// AddSkippedRecords 记录被跳过的订单记录
func (m *Metrics) AddSkippedRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedRecords.Add(float64(n))
}

// ObserveBackend 记录订单服务请求耗时
func (m *Metrics) ObserveBackend(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailed
	}
	m.backendDurations.WithLabelValues(operation, string(outcome)).Observe(duration.Seconds())
}
