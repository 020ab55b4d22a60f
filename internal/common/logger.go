package common

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// NewLogger 创建带时间戳的结构化日志器
// 无法识别的级别回退到 info
func NewLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           lvl,
	})
}

// NopLogger 丢弃所有输出，测试和未注入日志器时使用
func NopLogger() *log.Logger {
	return log.New(io.Discard)
}
