package gtimer

import (
	"github.com/godyy/glog"
	"github.com/godyy/gtimer/scheduler"
)

// optionSet 选项集合.
type optionSet struct {
	logger    glog.Logger         // 日志工具.
	scheduler scheduler.Scheduler // 延迟调度器.
}

// Option 选项.
type Option func(*optionSet)

// WithLogger 日志工具选项.
func WithLogger(logger glog.Logger) Option {
	return func(opts *optionSet) {
		opts.logger = logger.Named("gtimer")
	}
}

// WithScheduler 延迟调度器选项.
// 注入的调度器由调用方负责停止, Registry 关闭时不会停止它.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(opts *optionSet) {
		opts.scheduler = s
	}
}
