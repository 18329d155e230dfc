package gtimer

import (
	"sync"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/gtimer/scheduler"
	pkgerrors "github.com/pkg/errors"
)

// timerEntry 注册表条目.
// 独占持有一个调度器句柄.
type timerEntry struct {
	name     string            // 定时器名称.
	tid      scheduler.TimerId // 调度器句柄.
	interval time.Duration     // 当前周期, 一次性定时器为 0.
	oneShot  bool              // 是否一次性定时器.
	cancel   func(error)       // 一次性定时器触发前被移除时的取消回调.
}

// Registry 命名定时器注册表.
// 维护名称到调度器句柄的映射, 提供注册/移除/启停/查询能力,
// 并将用户回调包装为成功/失败事件上报给观察者.
type Registry struct {
	scheduler    scheduler.Scheduler // 延迟调度器.
	ownScheduler bool                // 是否持有调度器, 持有时随注册表一同停止.
	logger       glog.Logger         // 日志工具.

	mtx           sync.Mutex             // 互斥锁.
	entries       map[string]*timerEntry // 条目映射.
	observers     map[uint64]Observer    // 观察者映射.
	observerIdGen uint64                 // 观察者ID生成自增键.
	closed        bool                   // 是否已关闭.
}

// New 构造 Registry.
func New(opts ...Option) *Registry {
	var optSet optionSet
	for _, opt := range opts {
		opt(&optSet)
	}

	if optSet.logger == nil {
		optSet.logger = createStdLogger(glog.WarnLevel)
	}

	r := &Registry{
		scheduler: optSet.scheduler,
		logger:    optSet.logger,
		entries:   make(map[string]*timerEntry),
		observers: make(map[uint64]Observer),
	}
	if r.scheduler == nil {
		r.scheduler = scheduler.NewTimerHeap()
		r.ownScheduler = true
	}

	return r
}

// AddRecurring 注册周期性定时器.
// 从注册时刻起每经过 interval 触发一次 action, 直至被停止或移除.
// 名称已存在时返回 ErrNameExists, 注册表状态不变.
func (r *Registry) AddRecurring(name string, interval time.Duration, action func() error) error {
	if action == nil {
		panic("action func is nil")
	}
	return r.addRecurring(name, interval, action)
}

// AddRecurringWithResult 注册产出值的周期性定时器.
// 产出值被丢弃, 仅以 producer 是否返回错误判定调用成败.
func (r *Registry) AddRecurringWithResult(name string, interval time.Duration, producer func() (any, error)) error {
	if producer == nil {
		panic("producer func is nil")
	}
	return r.addRecurring(name, interval, func() error {
		_, err := producer()
		return err
	})
}

// AddRecurringWithHandler 注册产出值并处理的周期性定时器.
// producer 的产出值传递给 handler, 两者运行在同一次受保护调用内:
// producer 出错时 handler 不会被调用, handler 出错时本次调用判定为失败.
func (r *Registry) AddRecurringWithHandler(name string, interval time.Duration, producer func() (any, error), handler func(any) error) error {
	if producer == nil {
		panic("producer func is nil")
	}
	if handler == nil {
		panic("handler func is nil")
	}
	return r.addRecurring(name, interval, func() error {
		v, err := producer()
		if err != nil {
			return err
		}
		return handler(v)
	})
}

// addRecurring 注册周期性定时器.
func (r *Registry) addRecurring(name string, interval time.Duration, run func() error) error {
	if interval <= 0 {
		return pkgerrors.WithMessage(ErrInvalidInterval, name)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.closed {
		return ErrClosed
	}

	if _, exists := r.entries[name]; exists {
		return pkgerrors.WithMessage(ErrNameExists, name)
	}

	e := &timerEntry{name: name, interval: interval}
	e.tid = r.scheduler.StartTimer(interval, true, nil, func(*scheduler.TimerArgs) {
		r.invokeRecurring(e, run)
	})
	r.entries[name] = e

	r.logger.DebugFields("recurring timer added", lfdTimerName(name), lfdInterval(interval))
	return nil
}

// invokeRecurring 受保护调用周期性定时器的用户代码.
// 用户代码不在注册表锁内执行. 任何错误都被转化为失败事件,
// 绝不会传播到调度器的执行上下文中.
func (r *Registry) invokeRecurring(e *timerEntry, run func() error) {
	r.mtx.Lock()
	interval := e.interval
	r.mtx.Unlock()

	if err := protect(run); err != nil {
		r.logger.ErrorFields("timer invocation failed", lfdTimerName(e.name), lfdError(err))
		r.notifyFailed(e.name, err)
	} else {
		r.notifySucceeded(e.name, interval)
	}
}

// protect 执行用户代码并捕获 panic.
func protect(run func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = pkgerrors.Errorf("timer panic: %v", v)
		}
	}()
	return run()
}

// addOneShot 注册一次性定时器.
// name 为空时自动生成唯一名称. 返回生效的名称.
func (r *Registry) addOneShot(name string, due time.Duration, fire func(), cancel func(error)) (string, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.closed {
		return "", ErrClosed
	}

	if name == "" {
		name = generateTimerName()
	}
	if _, exists := r.entries[name]; exists {
		return "", pkgerrors.WithMessage(ErrNameExists, name)
	}

	e := &timerEntry{name: name, oneShot: true, cancel: cancel}
	e.tid = r.scheduler.StartTimer(due, false, nil, func(*scheduler.TimerArgs) {
		r.fireOneShot(e, fire)
	})
	r.entries[name] = e

	r.logger.DebugFields("one-shot timer added", lfdTimerName(name), lfdDue(due))
	return name, nil
}

// fireOneShot 触发一次性定时器.
// 条目在触发前自清理, 与 RemoveTimer 竞争时以条目身份判定,
// 已被移除的定时器不会再运行用户代码.
// 句柄随条目一同释放, 确保触发后调度资源不会存活.
func (r *Registry) fireOneShot(e *timerEntry, fire func()) {
	r.mtx.Lock()
	cur, ok := r.entries[e.name]
	if !ok || cur != e {
		r.mtx.Unlock()
		return
	}
	delete(r.entries, e.name)
	r.scheduler.StopTimer(e.tid)
	r.mtx.Unlock()

	fire()
}

// RemoveTimer 移除定时器.
// 名称不存在时静默返回. 句柄被释放, 之后不会再有任何触发,
// 但正在执行中的调用允许完成.
func (r *Registry) RemoveTimer(name string) {
	r.mtx.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mtx.Unlock()
		return
	}
	delete(r.entries, name)
	r.scheduler.StopTimer(e.tid)
	r.mtx.Unlock()

	if e.cancel != nil {
		e.cancel(ErrTimerRemoved)
	}

	r.logger.DebugFields("timer removed", lfdTimerName(name))
}

// StopTimer 停止定时器触发, 保留条目与句柄.
// 返回名称是否存在, 而非调度器操作是否成功.
func (r *Registry) StopTimer(name string) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return false
	}

	r.scheduler.SuspendTimer(e.tid)
	return true
}

// StartTimer 以 interval 为周期重新启动定时器.
// 首次触发发生在调用后经过 interval 时, 之后周期性触发.
// 对已停止或周期不同的定时器同样生效.
// 一次性定时器仅重排其单次触发, 不会转化为周期性定时器.
// 返回名称是否存在, 而非调度器操作是否成功.
func (r *Registry) StartTimer(name string, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return false
	}

	e.interval = interval
	r.scheduler.ResetTimer(e.tid, interval, !e.oneShot)
	return true
}

// GetTimer 获取名称对应的定时器操作句柄.
func (r *Registry) GetTimer(name string) (*Timer, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.entries[name]; !ok {
		return nil, false
	}
	return &Timer{registry: r, name: name}, true
}

// GetTimerNames 获取当前已注册的定时器名称快照.
// 返回后注册表的变更不会影响已返回的切片.
func (r *Registry) GetTimerNames() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// RemoveAll 移除所有定时器.
// 所有句柄被释放, 映射被清空, 未触发的一次性定时器以
// ErrTimerRemoved 取消.
func (r *Registry) RemoveAll() {
	r.mtx.Lock()
	var cancels []func(error)
	for _, e := range r.entries {
		r.scheduler.StopTimer(e.tid)
		if e.cancel != nil {
			cancels = append(cancels, e.cancel)
		}
	}
	r.entries = make(map[string]*timerEntry)
	r.mtx.Unlock()

	for _, cancel := range cancels {
		cancel(ErrTimerRemoved)
	}

	r.logger.Debug("all timers removed")
}

// Close 关闭注册表.
// 移除所有定时器, 之后的注册调用返回 ErrClosed. 可重复调用.
func (r *Registry) Close() error {
	r.mtx.Lock()
	if r.closed {
		r.mtx.Unlock()
		return nil
	}
	r.closed = true
	r.mtx.Unlock()

	r.RemoveAll()
	if r.ownScheduler {
		r.scheduler.Stop()
	}

	r.logger.Info("closed")
	return nil
}
