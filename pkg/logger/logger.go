package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config 定義 logger 的輸出設定
type Config struct {
	Level     string `yaml:"level"`  // Log 等級: "debug", "info", "warn", "error"
	Format    string `yaml:"format"` // "text" 或 "json"
	AddSource bool   `yaml:"add_source"`
}

// New 依照設定建立 slog.Logger，輸出到 stdout
func New(cfg Config) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter 同 New，但可指定輸出位置
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel 解析 Log 等級，無法辨識時預設 info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
