package scheduler

import "time"

// Scheduler 延迟调度器.
// 负责在延迟到期后调用回调函数, 可选地按固定周期重复触发.
type Scheduler interface {
	// StartTimer 启动定时器.
	// periodic 为 false 时定时器仅触发一次.
	// delay 为负值时视为 0, 即尽快触发.
	StartTimer(delay time.Duration, periodic bool, args any, cb TimerFunc) TimerId

	// ResetTimer 以新的延迟/周期重新启动定时器.
	// 返回定时器是否仍然存活. 已暂停的定时器也会被重新启动.
	ResetTimer(tid TimerId, delay time.Duration, periodic bool) bool

	// SuspendTimer 暂停定时器, 不再触发但保留资源.
	// 返回定时器是否仍然存活.
	SuspendTimer(tid TimerId) bool

	// StopTimer 停止定时器并释放资源. 可重复调用.
	StopTimer(tid TimerId)

	// Stop 停止调度器, 释放所有定时器资源.
	Stop()
}

// TimerId 定时器ID.
type TimerId = uint64

// TimerIdNone 定时器ID为0.
const TimerIdNone = 0

// TimerArgs 定时器参数.
type TimerArgs struct {
	TID  TimerId // 定时器ID.
	Args any     // 参数.
}

// TimerFunc 定时器回调函数.
type TimerFunc func(*TimerArgs)
