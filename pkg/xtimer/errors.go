package xtimer

import (
	"errors"
	"fmt"
	"time"
)

// ErrNilHandler 表示构造定时器时未提供回调。
var ErrNilHandler = errors.New("xtimer: handler cannot be nil")

// ErrStopTimeout 表示 Stop 在限定时间内未能等到回调退出。
// 使用 errors.Is(err, ErrStopTimeout) 判断，
// 使用 errors.As 获取具体的等待期限：
//
//	var toErr *xtimer.TimeoutError
//	if errors.As(err, &toErr) {
//	    fmt.Printf("handler still running after %v\n", toErr.Timeout)
//	}
var ErrStopTimeout = errors.New("xtimer: stop drain timed out")

// TimeoutError 携带等待期限的排水超时错误。
//
// 返回此错误时定时器内部状态保持原样：底层触发源已解除编排，不会再有
// 新回调开始，但超时前已在执行的那次回调可能仍未退出。一个始终不响应
// 取消信号的回调无法被本组件回收，调用方应将此错误视为致命条件处理。
type TimeoutError struct {
	// Timeout 是 Stop 调用传入的等待期限。
	Timeout time.Duration
}

// Error 实现 error 接口。
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("handler still running after %v", e.Timeout)
}

// Is 支持 errors.Is(err, ErrStopTimeout) 判断。
func (e *TimeoutError) Is(target error) bool {
	return target == ErrStopTimeout
}

// Unwrap 返回底层错误。
func (e *TimeoutError) Unwrap() error {
	return ErrStopTimeout
}

// PanicError 表示回调执行时发生 panic，被定时器捕获后包装为错误。
//
// panic 不会破坏定时器本身：运行标记照常清理，后续 tick 照常触发。
// 错误会记入统计与日志，可通过 [Timer.Stats] 或 [Hook] 观察。
type PanicError struct {
	// Value 是 recover 捕获的原始值。
	Value any
	// Stack 是 panic 发生时的调用栈。
	Stack []byte
}

// Error 实现 error 接口。
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}
