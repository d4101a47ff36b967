package xtimer

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Timer 可重入安全、支持协作式取消的周期性定时器。
//
// 零值不可用，必须通过 [New] 或 [NewFunc] 创建。
// 所有方法都可以在多个 goroutine 上并发调用，也可以与 tick 并发。
//
// 单实例状态机：
//
//	Idle --Change--> Armed --tick--> Invoking --> Armed / Idle
//	Armed / Invoking --Stop--> Stopping（排水）--> Idle
//
// Close 可从任意状态进入，且为终态。
type Timer struct {
	name    string
	handler Handler
	logger  *slog.Logger
	hooks   []Hook

	started atomic.Bool // 已编排有限期调度且尚未解除
	running atomic.Bool // 回调执行中；既是可重入门也是排水信号
	closed  atomic.Bool // Close 幂等保护

	// cancelMu 保护取消源的读取与更换：触发 goroutine 取当前 ctx 的同时，
	// Stop(force) 可能正在取消、tick 清理可能正在换新。
	cancelMu sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc

	baseCtx       context.Context
	trigger       Trigger
	drainInterval time.Duration

	stats   *Stats
	metrics *otelMetrics // nil 表示未启用
}

// New 创建定时器。
//
// handler 为 nil 时返回 [ErrNilHandler]。新建的定时器处于未启动状态，
// 调用 [Timer.Change] 编排调度后才会开始产生回调。
//
// 用法：
//
//	timer, err := xtimer.New(handler,
//	    xtimer.WithName("cache-refresh"),
//	    xtimer.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer timer.Close()
func New(handler Handler, opts ...Option) (*Timer, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	options := defaultOptions()
	for _, opt := range opts {
		// 与 Option 内部的无效值防御一致，nil 选项静默跳过
		if opt == nil {
			continue
		}
		opt(options)
	}

	t := &Timer{
		name:          options.name,
		handler:       handler,
		logger:        options.logger,
		hooks:         options.hooks,
		baseCtx:       options.baseCtx,
		drainInterval: options.drainInterval,
		stats:         newStats(),
	}
	t.ctx, t.cancel = context.WithCancel(t.baseCtx)

	if options.meterProvider != nil {
		m, err := newOTelMetrics(options.meterProvider, options.name)
		if err != nil {
			return nil, err
		}
		t.metrics = m
	}

	factory := options.triggerFactory
	if factory == nil {
		factory = newTickerTrigger
	}
	t.trigger = factory(t.tick)

	return t, nil
}

// NewFunc 以函数形式创建定时器，等价于 New(HandlerFunc(fn), opts...)。
func NewFunc(fn func(ctx context.Context) error, opts ...Option) (*Timer, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return New(HandlerFunc(fn), opts...)
}

// Change 重新编排调度。
//
// dueTime 是首次触发前的延迟，period 是此后的重复间隔（period <= 0 表示
// 只触发一次）。dueTime 为负（见 [Infinite]）表示解除编排：定时器回到
// 未启动状态，未启动时底层触发源保持原样不被触碰。
//
// 已启动的定时器再次调用 Change 是静默空操作，底层调度不会被重新编排，
// 需要改变周期时先 [Timer.Stop] 再 Change。并发调用安全：启动路径上的
// CAS 保证同一时刻只有一个调用者能完成编排。
func (t *Timer) Change(dueTime, period time.Duration) {
	if dueTime < 0 {
		// 解除编排。只有确实处于启动态时才触碰底层触发源。
		if t.started.CompareAndSwap(true, false) {
			t.trigger.Reschedule(Infinite, Infinite)
		}
		return
	}

	if t.closed.Load() {
		return // 已关闭的定时器不再接受编排
	}

	if !t.started.CompareAndSwap(false, true) {
		return // 已启动：刻意忽略，见包文档的设计权衡
	}
	t.trigger.Reschedule(dueTime, period)
}

// Start 是 [Timer.Change] 的纯别名，语义完全一致。
func (t *Timer) Start(dueTime, period time.Duration) {
	t.Change(dueTime, period)
}

// Stop 停止定时器并等待在途回调退出（排水）。
//
// 第一步总是解除底层编排（等价于 Change(Infinite, Infinite)，启动标记
// 随之复位），此后不会再有新回调开始。force 为 true 时同时向当前取消源
// 发出取消信号。取消是协作式的：只翻转回调持有的 ctx，不抢占执行。
//
// 随后以短睡眠轮询等待运行标记清零：
//   - timeout <= 0：无限期等待；
//   - timeout > 0：期限内未等到则返回 [*TimeoutError]（可用
//     errors.Is(err, ErrStopTimeout) 判断），此时内部状态保持原样，
//     在途回调可能仍在执行，调用方应视为致命条件。
//
// 返回 nil 即保证：没有回调在执行，且在下一次 Change 之前不会有新回调。
func (t *Timer) Stop(force bool, timeout time.Duration) error {
	t.Change(Infinite, Infinite)

	if force {
		t.cancelMu.Lock()
		t.cancel()
		t.cancelMu.Unlock()
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for t.running.Load() {
		if timeout > 0 && time.Now().After(deadline) {
			return &TimeoutError{Timeout: timeout}
		}
		time.Sleep(t.drainInterval)
	}
	return nil
}

// IsStarted 报告当前是否编排了有限期调度。无锁读取。
func (t *Timer) IsStarted() bool {
	return t.started.Load()
}

// Stats 返回执行统计。返回值在定时器整个生命周期内有效，可长期持有。
func (t *Timer) Stats() *Stats {
	return t.stats
}

// Close 关闭定时器并释放取消源。幂等：重复调用直接返回 nil。
//
// 内部执行一次无限期的强制 Stop，Close 返回时保证没有回调在执行。
// 回调可能不响应取消信号时，应先用带期限的 [Timer.Stop] 探测，再决定
// 是否 Close。关闭后的定时器不能再启动。
func (t *Timer) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	// 无限期排水：Close 的契约是返回后不再有在途回调。
	// timeout 为 0 时 Stop 不会失败。
	_ = t.Stop(true, 0)

	t.trigger.Close()
	// 与并发 Change 竞态时启动标记可能残留，关闭后统一复位
	t.started.Store(false)

	// 释放最终取消源。此后 ctx 永久处于取消态，但不会再有回调读到它。
	t.cancelMu.Lock()
	t.cancel()
	t.cancelMu.Unlock()

	return nil
}

// tick 是触发源每次 tick 调用的跳板：先过可重入门，再执行回调。
// 运行在触发源的派发 goroutine 上，永不阻塞触发循环。
func (t *Timer) tick() {
	if !t.started.Load() {
		return // 编排已解除，迟到的派发直接丢弃，不计入统计
	}

	if !t.running.CompareAndSwap(false, true) {
		// 上一次回调还没结束：丢弃本次 tick，不排队、不合并
		t.stats.recordDrop()
		if t.metrics != nil {
			t.metrics.recordDrop(context.Background())
		}
		t.logger.Debug("tick dropped, handler still running", "timer", t.name)
		return
	}
	// 最外层兜底：无论回调结果如何运行标记必须清零，
	// 否则后续 tick 与 Stop 排水会永久卡死
	defer t.running.Store(false)

	ctx, ok := t.invocationContext()
	if !ok {
		return // 编排在进门前已被解除：迟到的 tick，撤回
	}

	// 注册晚于运行标记的 defer，先执行：取消源先换新、运行标记后清零，
	// 下一次执行不可能拿到已取消的 ctx
	defer t.refreshContext()

	t.invoke(ctx)
}

// invocationContext 返回本次执行使用的取消上下文。
//
// 在锁内复查启动标记：Stop 先复位启动标记、后在锁内取消取消源。锁内
// 看到启动标记为 true，意味着并发 Stop 的取消要么尚未发生（将落在这里
// 返回的源上，回调能观察到），要么整个 Stop 已结束（启动标记必为
// false，走撤回分支）。上一轮残留的已取消源在此顺带换新，保证取消过的
// ctx 绝不会再次送进回调。
func (t *Timer) invocationContext() (context.Context, bool) {
	t.cancelMu.Lock()
	defer t.cancelMu.Unlock()

	if !t.started.Load() {
		return nil, false
	}
	if t.ctx.Err() != nil {
		t.cancel() // 释放旧源
		t.ctx, t.cancel = context.WithCancel(t.baseCtx)
	}
	return t.ctx, true
}

// refreshContext 在回调结束后检查取消源：本次执行期间被取消过的，
// 在锁内更换为全新的源。必须先于运行标记清零执行。
func (t *Timer) refreshContext() {
	t.cancelMu.Lock()
	defer t.cancelMu.Unlock()

	if t.ctx.Err() != nil {
		t.cancel()
		t.ctx, t.cancel = context.WithCancel(t.baseCtx)
	}
}

// invoke 执行一次回调：钩子、panic 包围、统计、指标与日志。
func (t *Timer) invoke(ctx context.Context) {
	start := time.Now()

	for _, hook := range t.hooks {
		ctx = hook.BeforeRun(ctx, t.name)
	}

	err := t.safeRun(ctx)
	duration := time.Since(start)

	// 逆序执行 AfterRun，类似 defer 的配对语义
	for i := len(t.hooks) - 1; i >= 0; i-- {
		t.hooks[i].AfterRun(ctx, t.name, duration, err)
	}

	t.stats.recordRun(duration, err)
	if t.metrics != nil {
		t.metrics.recordRun(ctx, duration, err)
	}
	t.logResult(duration, err)
}

// safeRun 执行回调并把 panic 转换为 [*PanicError]，保证清理路径总能走到。
func (t *Timer) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return t.handler.Run(ctx)
}

// logResult 记录本次执行结果。
func (t *Timer) logResult(duration time.Duration, err error) {
	if err == nil {
		t.logger.Debug("handler completed", "timer", t.name, "duration", duration)
		return
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		t.logger.Error("handler panic recovered",
			"timer", t.name, "panic", panicErr.Value, "duration", duration)
		return
	}
	t.logger.Error("handler failed",
		"timer", t.name, "error", err, "duration", duration)
}
