package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-serial-ledger/pkg/logger"
)

// 事件輸出目標
const (
	SinkNone  = "none"
	SinkKafka = "kafka"
	SinkRedis = "redis"
)

// Config 服務設定
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Log     logger.Config `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
	Events  EventsConfig  `yaml:"events"`
}

// ServerConfig 對外監聽設定
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr" validate:"required"`
	GRPCAddr        string        `yaml:"grpc_addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// LedgerConfig 帳務核心設定
type LedgerConfig struct {
	// QueueCapacity serializer 輸送帶容量，滿了之後呼叫端會被擋住
	QueueCapacity int `yaml:"queue_capacity" validate:"gt=0"`
	// RequestTimeout 每個請求等待結果的上限
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// JournalConfig 稽核日誌設定 (只寫不讀，重啟不會重放)
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// EventsConfig 交易完成事件設定
type EventsConfig struct {
	Sink  string      `yaml:"sink" validate:"oneof=none kafka redis"`
	Kafka KafkaConfig `yaml:"kafka"`
	Redis RedisConfig `yaml:"redis"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Stream   string `yaml:"stream"`
}

// Default 預設設定
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			ShutdownTimeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			QueueCapacity:  1000,
			RequestTimeout: 5 * time.Second,
		},
		Log: logger.Config{
			Level:  "info",
			Format: "text",
		},
		Journal: JournalConfig{
			Path: "audit.log",
		},
		Events: EventsConfig{
			Sink: SinkNone,
			Kafka: KafkaConfig{
				Topic: "transaction_completed",
			},
			Redis: RedisConfig{
				Stream: "ledger:transactions",
			},
		},
	}
}

var validate = validator.New()

// Load 讀取設定
//
// 順序: 預設值 -> YAML 檔 (path 為空時略過) -> LEDGER_* 環境變數 -> 驗證
//
// 參數:
//
//	path: YAML 檔路徑
//
// 回傳:
//
//	Config: 設定
//	error: 讀檔、解析或驗證錯誤
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 檢查設定是否合法
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Events.Sink {
	case SinkKafka:
		if len(c.Events.Kafka.Brokers) == 0 || c.Events.Kafka.Topic == "" {
			return errors.New("invalid config: kafka sink requires brokers and topic")
		}
	case SinkRedis:
		if c.Events.Redis.Addr == "" || c.Events.Redis.Stream == "" {
			return errors.New("invalid config: redis sink requires addr and stream")
		}
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	if v, ok := lookup("LEDGER_HTTP_ADDR"); ok {
		cfg.Server.HTTPAddr = v
	}
	if v, ok := lookup("LEDGER_GRPC_ADDR"); ok {
		cfg.Server.GRPCAddr = v
	}
	if v, ok := lookup("LEDGER_QUEUE_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LEDGER_QUEUE_CAPACITY %q: %w", v, err)
		}
		cfg.Ledger.QueueCapacity = n
	}
	if v, ok := lookup("LEDGER_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LEDGER_REQUEST_TIMEOUT %q: %w", v, err)
		}
		cfg.Ledger.RequestTimeout = d
	}
	if v, ok := lookup("LEDGER_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup("LEDGER_LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	if v, ok := lookup("LEDGER_JOURNAL_PATH"); ok {
		cfg.Journal.Enabled = v != ""
		cfg.Journal.Path = v
	}
	if v, ok := lookup("LEDGER_EVENTS_SINK"); ok {
		cfg.Events.Sink = v
	}
	if v, ok := lookup("LEDGER_KAFKA_BROKERS"); ok {
		cfg.Events.Kafka.Brokers = splitCSV(v)
	}
	if v, ok := lookup("LEDGER_REDIS_ADDR"); ok {
		cfg.Events.Redis.Addr = v
	}
	if v, ok := lookup("LEDGER_REDIS_PASSWORD"); ok {
		cfg.Events.Redis.Password = v
	}
	return nil
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
