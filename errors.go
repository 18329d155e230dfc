package gtimer

import (
	"errors"
)

// ErrNameExists 定时器名称已存在.
var ErrNameExists = errors.New("timer name exists")

// ErrInvalidInterval 定时器周期非法.
var ErrInvalidInterval = errors.New("interval must > 0")

// ErrClosed 注册表已关闭.
var ErrClosed = errors.New("registry closed")

// ErrTimerRemoved 定时器在触发前被移除.
var ErrTimerRemoved = errors.New("timer removed before firing")
