package gtimer

import "time"

// DurationUntil 计算从当前时刻到 t 的时长.
// t 为过去的时刻时返回 0, 表示尽快触发, 而非错误.
func DurationUntil(t time.Time) time.Duration {
	d := time.Until(t)
	if d < 0 {
		return 0
	}
	return d
}
