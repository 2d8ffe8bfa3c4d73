// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
// 标准输出留给求解结果，日志默认写到 stderr
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，只有第一次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var output io.Writer
		switch cfg.Output {
		case "stdout":
			output = os.Stdout
		case "file":
			output = os.Stderr
			if cfg.FilePath != "" {
				if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
					output = f
				}
			}
		default:
			output = os.Stderr
		}

		if cfg.Format == "console" {
			timeFormat := cfg.TimeFormat
			if timeFormat == "" {
				timeFormat = time.RFC3339
			}
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: timeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

type ctxKey struct{}

// ContextWithRunID 在上下文中记录运行ID
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, runID)
}

// RunIDFromContext 取出运行ID
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()
	if runID := RunIDFromContext(ctx); runID != "" {
		l = l.With().Str("run_id", runID).Logger()
	}
	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// OptimizerLogger 优化引擎专用日志器
type OptimizerLogger struct {
	base *zerolog.Logger
}

// NewOptimizerLogger 创建优化引擎日志器
func NewOptimizerLogger(ctx context.Context, component string) *OptimizerLogger {
	l := WithContext(ctx).With().Str("component", component).Logger()
	return &OptimizerLogger{base: &l}
}

// Logger 返回底层日志器
func (l *OptimizerLogger) Logger() *zerolog.Logger {
	return l.base
}

// RunStart 记录求解开始
func (l *OptimizerLogger) RunStart(orders, aisles, items int) {
	l.base.Info().
		Int("orders", orders).
		Int("aisles", aisles).
		Int("items", items).
		Msg("开始求解")
}

// Improvement 记录发现更优解
func (l *OptimizerLogger) Improvement(iteration int, objective float64, items, aisles int) {
	l.base.Debug().
		Int("iteration", iteration).
		Float64("objective", objective).
		Int("items", items).
		Int("aisles", aisles).
		Msg("发现更优解")
}

// Progress 记录迭代进度
func (l *OptimizerLogger) Progress(iteration int, current, best, temperature float64) {
	l.base.Info().
		Int("iteration", iteration).
		Float64("current", current).
		Float64("best", best).
		Float64("temperature", temperature).
		Msg("迭代进度")
}

// RunComplete 记录求解完成
func (l *OptimizerLogger) RunComplete(duration time.Duration, objective float64, feasible bool) {
	l.base.Info().
		Dur("duration", duration).
		Float64("objective", objective).
		Bool("feasible", feasible).
		Msg("求解完成")
}
