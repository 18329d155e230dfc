package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/godyy/gutils/container/heap"
)

// timerOfTimerHeap TimerHeap 定时器.
type timerOfTimerHeap struct {
	id        TimerId       // 定时器ID.
	heapIndex int           // 堆索引, -1 表示已暂停, 不在堆中.
	delay     time.Duration // 延迟时间.
	periodic  bool          // 是否周期性定时器.
	args      any           // 参数.
	cb        TimerFunc     // 回调函数.
	expireAt  int64         // 到期时间.
}

func (t *timerOfTimerHeap) HeapLess(other *timerOfTimerHeap) bool {
	if n := t.expireAt - other.expireAt; n == 0 {
		return t.id < other.id
	} else {
		return n < 0
	}
}

func (t *timerOfTimerHeap) HeapIndex() int {
	return t.heapIndex
}

func (t *timerOfTimerHeap) SetHeapIndex(index int) {
	t.heapIndex = index
}

// armed 是否已装载于堆中.
func (t *timerOfTimerHeap) armed() bool {
	return t.heapIndex >= 0
}

// TimerHeap 最小堆延迟调度器.
// 所有回调函数由同一循环协程在锁外串行调用, 同一定时器的两次触发不会重叠.
type TimerHeap struct {
	mtx        sync.Mutex                    // 互斥锁.
	sysTimer   *time.Timer                   // 系统定时器.
	timerIdGen uint64                        // 定时器ID生成自增键.
	timerHeap  *heap.Heap[*timerOfTimerHeap] // 已装载定时器最小堆.
	timerMap   map[TimerId]*timerOfTimerHeap // 定时器映射, 包含已暂停的定时器.
	stopped    bool                          // 是否已停止.
	cStopped   chan struct{}                 // 已停止信号.
}

// NewTimerHeap 构造 TimerHeap.
func NewTimerHeap() *TimerHeap {
	th := &TimerHeap{
		sysTimer:  time.NewTimer(0),
		timerHeap: heap.NewHeap[*timerOfTimerHeap](),
		timerMap:  make(map[TimerId]*timerOfTimerHeap),
		stopped:   false,
		cStopped:  make(chan struct{}),
	}

	go th.loop()

	return th
}

// genTimerId 生成定时器ID.
func (th *TimerHeap) genTimerId() TimerId {
	timerId := atomic.AddUint64(&th.timerIdGen, 1)
	if timerId == TimerIdNone {
		timerId = atomic.AddUint64(&th.timerIdGen, 1)
	}
	return timerId
}

// armTimer 装载定时器.
func (th *TimerHeap) armTimer(t *timerOfTimerHeap) {
	th.timerHeap.Push(t)
	th.timerMap[t.id] = t
}

// disarmTimer 卸载定时器, 保留映射.
func (th *TimerHeap) disarmTimer(t *timerOfTimerHeap) {
	if t.armed() {
		th.timerHeap.Remove(t.heapIndex)
		t.heapIndex = -1
	}
}

// remTimer 移除定时器.
func (th *TimerHeap) remTimer(t *timerOfTimerHeap) {
	th.disarmTimer(t)
	delete(th.timerMap, t.id)
}

// resetSysTimer 重置系统定时器.
func (th *TimerHeap) resetSysTimer(expireAt int64) {
	th.stopSysTimer()
	th.sysTimer.Reset(time.Duration(expireAt - time.Now().UnixNano()))
}

// stopSysTimer 停止系统定时器.
func (th *TimerHeap) stopSysTimer() {
	if !th.sysTimer.Stop() {
		select {
		case <-th.sysTimer.C:
		default:
		}
	}
}

// syncSysTimer 按堆顶定时器同步系统定时器.
func (th *TimerHeap) syncSysTimer() {
	if th.timerHeap.Len() == 0 {
		th.stopSysTimer()
	} else {
		th.resetSysTimer(th.timerHeap.Top().expireAt)
	}
}

// Stop 停止 TimerHeap.
func (th *TimerHeap) Stop() {
	th.mtx.Lock()
	defer th.mtx.Unlock()

	if th.stopped {
		return
	}

	th.stopSysTimer()
	th.timerHeap = nil
	th.timerMap = nil
	close(th.cStopped)
	th.stopped = true
}

// StartTimer 启动定时器.
func (th *TimerHeap) StartTimer(delay time.Duration, periodic bool, args any, cb TimerFunc) TimerId {
	if cb == nil {
		panic("callback func is nil")
	}

	if periodic && delay <= 0 {
		panic("periodic delay must > 0")
	}

	if delay < 0 {
		delay = 0
	}

	// 创建定时器.
	t := &timerOfTimerHeap{
		id:        th.genTimerId(),
		heapIndex: -1,
		delay:     delay,
		periodic:  periodic,
		args:      args,
		cb:        cb,
		expireAt:  time.Now().Add(delay).UnixNano(),
	}

	th.mtx.Lock()
	defer th.mtx.Unlock()

	// 检查是否已停止.
	if th.stopped {
		return TimerIdNone
	}

	// 装载定时器.
	th.armTimer(t)
	if t == th.timerHeap.Top() {
		th.resetSysTimer(t.expireAt)
	}

	return t.id
}

// ResetTimer 以新的延迟/周期重新启动定时器.
func (th *TimerHeap) ResetTimer(tid TimerId, delay time.Duration, periodic bool) bool {
	if periodic && delay <= 0 {
		panic("periodic delay must > 0")
	}

	if delay < 0 {
		delay = 0
	}

	th.mtx.Lock()
	defer th.mtx.Unlock()

	// 检查是否已停止.
	if th.stopped {
		return false
	}

	// 获取定时器.
	t, exists := th.timerMap[tid]
	if !exists {
		return false
	}

	// 更新定时器并重新装载.
	t.delay = delay
	t.periodic = periodic
	t.expireAt = time.Now().Add(delay).UnixNano()
	if t.armed() {
		th.timerHeap.Fix(t.heapIndex)
	} else {
		th.timerHeap.Push(t)
	}

	th.syncSysTimer()
	return true
}

// SuspendTimer 暂停定时器.
func (th *TimerHeap) SuspendTimer(tid TimerId) bool {
	th.mtx.Lock()
	defer th.mtx.Unlock()

	// 检查是否已停止.
	if th.stopped {
		return false
	}

	// 获取定时器.
	t, exists := th.timerMap[tid]
	if !exists {
		return false
	}

	if t.armed() {
		th.disarmTimer(t)
		th.syncSysTimer()
	}

	return true
}

// StopTimer 停止定时器.
func (th *TimerHeap) StopTimer(tid TimerId) {
	th.mtx.Lock()
	defer th.mtx.Unlock()

	// 检查是否已停止.
	if th.stopped {
		return
	}

	// 获取定时器.
	t, exists := th.timerMap[tid]
	if !exists {
		return
	}

	// 检查是否为堆顶定时器.
	top := t.armed() && t == th.timerHeap.Top()

	// 移除定时器.
	th.remTimer(t)

	// 更新系统定时器.
	if top {
		th.syncSysTimer()
	}
}

// update 更新定时器.
func (th *TimerHeap) update() {
	var (
		t    *timerOfTimerHeap
		cb   TimerFunc
		args TimerArgs
	)
	for {
		now := time.Now().UnixNano()

		// 获取并更新堆顶定时器.
		th.mtx.Lock()
		if th.stopped {
			th.mtx.Unlock()
			return
		}
		if th.timerHeap.Len() == 0 {
			th.mtx.Unlock()
			return
		}
		t = th.timerHeap.Top()
		if t.expireAt > now {
			th.resetSysTimer(t.expireAt)
			th.mtx.Unlock()
			return
		}
		cb = t.cb
		args.TID = t.id
		args.Args = t.args
		if t.periodic {
			t.expireAt += int64(t.delay)
			th.timerHeap.Fix(t.heapIndex)
		} else {
			th.remTimer(t)
		}
		th.mtx.Unlock()

		// 调用回调函数.
		th.invokeCallback(cb, &args)
	}
}

// invokeCallback 调用回调函数.
func (th *TimerHeap) invokeCallback(cb TimerFunc, args *TimerArgs) {
	cb(args)
}

// loop 主循环逻辑.
func (th *TimerHeap) loop() {
	for {
		select {
		case <-th.sysTimer.C:
			th.update()
		case <-th.cStopped:
			return
		}
	}
}
