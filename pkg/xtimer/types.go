package xtimer

import (
	"context"
	"time"
)

// Infinite 是"永不触发"的哨兵值。
//
// Change 的 dueTime 传入 Infinite（或任意负值）表示解除编排：定时器回到
// 未启动状态，不再产生任何 tick。period 传入 Infinite 等价于传入 0，
// 表示只触发一次、不做周期重复。
const Infinite time.Duration = -1

// Handler 定时器回调接口。
// 实现此接口以定义每次 tick 触发时执行的逻辑。
type Handler interface {
	// Run 执行一次回调。
	// ctx 是本次执行的取消上下文，长任务应定期检查 ctx.Done() 并尽快返回。
	// 返回 error 表示本次执行失败，会被记录到统计与日志。
	Run(ctx context.Context) error
}

// HandlerFunc 函数适配器，将普通函数转换为 [Handler] 接口。
//
// 用法：
//
//	var h Handler = HandlerFunc(func(ctx context.Context) error {
//	    return doWork(ctx)
//	})
type HandlerFunc func(ctx context.Context) error

// Run 实现 [Handler] 接口。
func (f HandlerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Hook 回调执行钩子接口。
//
// 用于在每次回调执行前后注入自定义逻辑，如日志、指标上报、告警等。
// 可以通过 [WithHook] 或 [WithHooks] 配置多个钩子，按添加顺序执行。
//
// 执行时机：
//   - BeforeRun: 通过可重入检查之后、回调执行之前调用
//   - AfterRun: 回调执行完成后调用（无论成功、失败还是 panic）
//
// 被丢弃的 tick（可重入保护拦下的那些）不会触发钩子。
// 钩子在定时器的触发 goroutine 上同步执行，自身不应 panic、不应长时间阻塞。
type Hook interface {
	// BeforeRun 在回调执行前调用。
	//
	// ctx: 本次执行的取消上下文
	// name: 定时器名称
	//
	// 返回的 context 将传递给回调执行和后续钩子，
	// 可用于注入请求 ID、跟踪信息等。
	BeforeRun(ctx context.Context, name string) context.Context

	// AfterRun 在回调执行后调用。
	//
	// ctx: 本次执行的取消上下文
	// name: 定时器名称
	// duration: 执行耗时
	// err: 执行错误，nil 表示成功；panic 会被包装为 [*PanicError]
	AfterRun(ctx context.Context, name string, duration time.Duration, err error)
}

// HookFunc 函数适配器，将函数对转换为 [Hook] 接口。
//
// 用于快速创建简单的钩子，无需定义完整的结构体。
//
// 用法：
//
//	hook := xtimer.HookFunc{
//	    After: func(ctx context.Context, name string, d time.Duration, err error) {
//	        log.Printf("timer %s finished in %v, error: %v", name, d, err)
//	    },
//	}
type HookFunc struct {
	// Before 回调执行前调用，可为 nil
	Before func(ctx context.Context, name string) context.Context
	// After 回调执行后调用，可为 nil
	After func(ctx context.Context, name string, duration time.Duration, err error)
}

// BeforeRun 实现 [Hook] 接口。
func (h HookFunc) BeforeRun(ctx context.Context, name string) context.Context {
	if h.Before != nil {
		return h.Before(ctx, name)
	}
	return ctx
}

// AfterRun 实现 [Hook] 接口。
func (h HookFunc) AfterRun(ctx context.Context, name string, duration time.Duration, err error) {
	if h.After != nil {
		h.After(ctx, name, duration, err)
	}
}
