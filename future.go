package gtimer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

// Future 一次性定时器的异步结果容器.
// 恰好被敲定一次: 产出值/错误, 或触发前被移除时的取消错误.
type Future[T any] struct {
	name  string        // 生效的定时器名称.
	done  chan struct{} // 敲定信号.
	once  sync.Once     // 敲定保护.
	value T             // 产出值.
	err   error         // 错误.
}

// Name 定时器名称. 用于通过 RemoveTimer 在触发前取消.
func (f *Future[T]) Name() string { return f.name }

// Done 敲定信号.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Err 已敲定时返回错误, 未敲定时返回 nil.
func (f *Future[T]) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Result 等待并返回结果.
func (f *Future[T]) Result(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// resolve 敲定结果.
func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// OneShot 注册一次性定时器.
// 经过 due 后 producer 被恰好调用一次, 调度资源随之自释放,
// 返回的 Future 以产出值或错误敲定. due 为负值时视为 0, 即尽快触发.
// name 为空时自动生成唯一名称, 可通过 Future.Name 获取;
// 名称已存在时返回 ErrNameExists.
// 触发前调用 RemoveTimer 会阻止 producer 运行, Future 以
// ErrTimerRemoved 敲定.
func OneShot[T any](r *Registry, name string, due time.Duration, producer func() (T, error)) (*Future[T], error) {
	if producer == nil {
		panic("producer func is nil")
	}

	f := &Future[T]{done: make(chan struct{})}
	effectiveName, err := r.addOneShot(name, due, func() {
		f.resolve(protectProduce(producer))
	}, func(cause error) {
		var zero T
		f.resolve(zero, cause)
	})
	if err != nil {
		return nil, err
	}
	f.name = effectiveName
	return f, nil
}

// AddOneShot 注册一次性定时器. OneShot 的非泛型形式.
func (r *Registry) AddOneShot(name string, due time.Duration, producer func() (any, error)) (*Future[any], error) {
	return OneShot(r, name, due, producer)
}

// protectProduce 执行产出函数并捕获 panic.
func protectProduce[T any](producer func() (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, err = zero, pkgerrors.Errorf("timer panic: %v", p)
		}
	}()
	return producer()
}

// generateTimerName 为匿名一次性定时器生成唯一名称.
func generateTimerName() string {
	return "oneshot-" + uuid.NewString()
}
