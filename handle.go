package gtimer

import "time"

// Timer 定时器操作句柄.
// 受限的能力视图, 仅提供启停与移除, 不暴露底层调度资源.
// 所有操作按名称委托给注册表, 定时器被移除后操作自然失效.
// 句柄仅绑定名称而非条目: 若同名定时器在移除后被重新注册,
// 旧句柄的操作将作用于新定时器.
type Timer struct {
	registry *Registry
	name     string
}

// Name 定时器名称.
func (t *Timer) Name() string { return t.name }

// Start 以 interval 为周期重新启动定时器.
func (t *Timer) Start(interval time.Duration) bool {
	return t.registry.StartTimer(t.name, interval)
}

// Stop 停止定时器触发.
func (t *Timer) Stop() bool {
	return t.registry.StopTimer(t.name)
}

// Remove 移除定时器.
func (t *Timer) Remove() {
	t.registry.RemoveTimer(t.name)
}
