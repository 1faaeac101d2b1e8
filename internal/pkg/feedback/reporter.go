// Package feedback 向用户展示操作结果
package feedback

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Reporter 用户可见的反馈
// Toast 用于后台或乐观更新失败, 不阻塞; Alert 用于表单提交失败
type Reporter interface {
	Toast(message string)
	Alert(title, message string)
}

// ConsoleReporter 输出到终端并写日志
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
	log *zap.Logger
}

func NewConsoleReporter(out io.Writer, log *zap.Logger) *ConsoleReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConsoleReporter{out: out, log: log}
}

func (r *ConsoleReporter) Toast(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "⚠️  %s\n", message)
	r.log.Info("toast", zap.String("message", message))
}

func (r *ConsoleReporter) Alert(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\n=== %s ===\n%s\n", title, message)
	r.log.Warn("alert", zap.String("title", title), zap.String("message", message))
}

// Recorder 记录所有反馈, 用于测试
type Recorder struct {
	mu     sync.Mutex
	Toasts []string
	Alerts []string
}

func (r *Recorder) Toast(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Toasts = append(r.Toasts, message)
}

func (r *Recorder) Alert(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Alerts = append(r.Alerts, title+": "+message)
}

// ToastCount 并发安全地读取 Toast 数量
func (r *Recorder) ToastCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Toasts)
}

// Nop 丢弃所有反馈
type Nop struct{}

func (Nop) Toast(string)         {}
func (Nop) Alert(string, string) {}
