package gtimer

import "time"

// Observer 定时器事件观察者.
// 每次受保护调用结束后, 按成功或失败回调其中一个方法.
// 回调与触发调用同步执行, 不要在其中执行耗时逻辑.
type Observer interface {
	// OnTimerSucceeded 定时器调用成功.
	OnTimerSucceeded(name string, interval time.Duration)

	// OnTimerFailed 定时器调用失败.
	OnTimerFailed(name string, err error)
}

// ObserverFuncs 函数形式的 Observer 适配器. 字段可为 nil.
type ObserverFuncs struct {
	OnSucceeded func(name string, interval time.Duration)
	OnFailed    func(name string, err error)
}

func (o *ObserverFuncs) OnTimerSucceeded(name string, interval time.Duration) {
	if o.OnSucceeded != nil {
		o.OnSucceeded(name, interval)
	}
}

func (o *ObserverFuncs) OnTimerFailed(name string, err error) {
	if o.OnFailed != nil {
		o.OnFailed(name, err)
	}
}

// Subscribe 订阅定时器事件. 返回的函数用于取消订阅.
func (r *Registry) Subscribe(o Observer) (cancel func()) {
	if o == nil {
		panic("observer is nil")
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.observerIdGen++
	id := r.observerIdGen
	r.observers[id] = o

	return func() {
		r.mtx.Lock()
		defer r.mtx.Unlock()
		delete(r.observers, id)
	}
}

// snapshotObservers 复制当前观察者列表.
func (r *Registry) snapshotObservers() []Observer {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if len(r.observers) == 0 {
		return nil
	}
	observers := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		observers = append(observers, o)
	}
	return observers
}

// notifySucceeded 通知调用成功.
func (r *Registry) notifySucceeded(name string, interval time.Duration) {
	for _, o := range r.snapshotObservers() {
		o.OnTimerSucceeded(name, interval)
	}
}

// notifyFailed 通知调用失败.
func (r *Registry) notifyFailed(name string, err error) {
	for _, o := range r.snapshotObservers() {
		o.OnTimerFailed(name, err)
	}
}
