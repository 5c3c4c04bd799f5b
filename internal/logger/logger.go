// 包 logger：统一初始化与获取日志器，避免各模块重复配置；通过环境变量或命令行参数控制日志级别与输出格式
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// 默认日志器：在进程级复用，避免多处初始化导致输出不一致
var defaultLogger *slog.Logger

// Options：构造日志器的参数
// 约束：Writer 为空时输出到标准错误；Quiet 会把级别抬到 warn，仅保留告警与错误
type Options struct {
	Level  string
	Format string
	Quiet  bool
	Writer io.Writer
}

// ParseLevel：文本级别转换，未知取值回退到 info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New：按参数构造独立日志器，不修改进程默认值
func New(o Options) *slog.Logger {
	lvl := ParseLevel(o.Level)
	if o.Quiet && lvl < slog.LevelWarn {
		lvl = slog.LevelWarn
	}
	w := o.Writer
	if w == nil {
		w = os.Stderr
	}
	var h slog.Handler
	if strings.ToLower(o.Format) == "json" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

// Setup：初始化默认日志器
// 背景：集中化日志配置，便于按环境统一调整级别与格式
// 约束：输出目标固定为标准错误；不在此处管理文件句柄或外部聚合通道
func Setup() *slog.Logger {
	defaultLogger = New(Options{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})
	return defaultLogger
}

// Configure：以显式参数替换默认日志器，命令行入口在解析完参数后调用
func Configure(o Options) *slog.Logger {
	defaultLogger = New(o)
	return defaultLogger
}

// L：获取默认日志器
// 背景：为业务代码提供快捷访问；若未初始化则回退到 Setup
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup()
	}
	return defaultLogger
}

// Or：组件构造时使用，注入为空则回退到默认日志器
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return L()
}

// Discard：丢弃全部输出的日志器，测试中使用
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 8}))
}
