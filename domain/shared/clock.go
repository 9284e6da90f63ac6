package shared

import "time"

// Clock 时间来源，测试中注入固定时钟以获得确定的截止时间判断
type Clock func() time.Time

// SystemClock 返回 UTC 当前时间
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Now 调用时钟；nil 时退回系统时钟
func (c Clock) Now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c()
}
