package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Backend     BackendConfig     `mapstructure:"backend"`
	AutoAdvance AutoAdvanceConfig `mapstructure:"autoadvance"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Server      ServerConfig      `mapstructure:"server"`
	MySQL       MySQLConfig       `mapstructure:"mysql"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Lmstfy      LmstfyConfig      `mapstructure:"lmstfy"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Workers     []WorkerConfig    `mapstructure:"workers" validate:"dive"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// BackendConfig 订单服务配置
type BackendConfig struct {
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	QueuePath    string        `mapstructure:"queue_path"`     // GET 队列
	StatusPath   string        `mapstructure:"status_path"`    // PATCH 状态，%s 为订单 ID
	AutoFlowPath string        `mapstructure:"auto_flow_path"` // POST 自动流转开关，%s 为订单 ID
}

// AutoAdvanceConfig 自动流转配置
type AutoAdvanceConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	TickInterval  time.Duration `mapstructure:"tick_interval" validate:"gt=0"` // 倒计时刷新间隔
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"gt=0"` // 队列拉取间隔
	EventsChannel string        `mapstructure:"events_channel"`                // 队列变更事件频道（Redis）
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	Channel         string `mapstructure:"channel"`          // 提示消息频道
	SnapshotChannel string `mapstructure:"snapshot_channel"` // 队列快照频道
}

// ServerConfig 状态服务配置
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// MySQLConfig MySQL 配置（为空则不记录流转审计）
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置（为空则不发布通知）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// TracingConfig 链路追踪配置（stdout 导出）
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WorkerConfig 控制指令 Worker 配置
type WorkerConfig struct {
	Name          string           `mapstructure:"name" validate:"required"`
	QueueName     string           `mapstructure:"queue_name" validate:"required"`
	CallbackQueue string           `mapstructure:"callback_queue"` // 回调队列名称
	Subscriber    SubscriberConfig `mapstructure:"subscriber"`
	Processor     ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// Load 加载配置文件
// 环境变量可覆盖配置项，例如 ORDERQUEUE_BACKEND_TOKEN
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("orderqueue")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	cfg.applyWorkerDefaults()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("backend.timeout", 5*time.Second)
	v.SetDefault("backend.queue_path", "/api/orders/queue/")
	v.SetDefault("backend.status_path", "/api/orders/%s/status/")
	v.SetDefault("backend.auto_flow_path", "/api/orders/%s/auto-flow/")
	v.SetDefault("autoadvance.enabled", true)
	v.SetDefault("autoadvance.tick_interval", time.Second)
	v.SetDefault("autoadvance.poll_interval", 5*time.Second)
	v.SetDefault("autoadvance.events_channel", "order_queue_events")
	v.SetDefault("notify.channel", "pos_notifications")
	v.SetDefault("notify.snapshot_channel", "pos_order_queue")
	v.SetDefault("server.addr", ":8090")
}

func (c *Config) applyWorkerDefaults() {
	for i := range c.Workers {
		w := &c.Workers[i]
		if w.Subscriber.Threads <= 0 {
			w.Subscriber.Threads = 1
		}
		if w.Subscriber.Timeout <= 0 {
			w.Subscriber.Timeout = 3 * time.Second
		}
		if w.Subscriber.TTR <= 0 {
			w.Subscriber.TTR = 30 * time.Second
		}
		if w.Subscriber.ErrorBackoff <= 0 {
			w.Subscriber.ErrorBackoff = time.Second
		}
		if w.Processor.Threads <= 0 {
			w.Processor.Threads = 1
		}
		if w.Processor.Timeout <= 0 {
			w.Processor.Timeout = 10 * time.Second
		}
	}
}

var validate = validator.New()

// Validate 验证配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config %s: failed on %q", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if !strings.Contains(c.Backend.StatusPath, "%s") {
		return fmt.Errorf("backend.status_path must contain %%s")
	}
	if !strings.Contains(c.Backend.AutoFlowPath, "%s") {
		return fmt.Errorf("backend.auto_flow_path must contain %%s")
	}
	if len(c.Workers) > 0 && c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required when workers are configured")
	}
	return nil
}
