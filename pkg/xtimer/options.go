package xtimer

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// defaultDrainInterval 是 Stop 排水轮询的默认间隔。
// 轮询要足够密以保证短回调下 Stop 的低延迟，又不至于空转烧 CPU。
const defaultDrainInterval = 500 * time.Microsecond

// defaultName 是未命名定时器在日志与指标中的标识。
const defaultName = "xtimer"

// timerOptions 定时器配置。
type timerOptions struct {
	name           string
	logger         *slog.Logger
	hooks          []Hook
	baseCtx        context.Context
	triggerFactory TriggerFactory
	meterProvider  metric.MeterProvider
	drainInterval  time.Duration
}

// defaultOptions 返回默认配置。
func defaultOptions() *timerOptions {
	return &timerOptions{
		name:          defaultName,
		logger:        slog.Default(),
		baseCtx:       context.Background(),
		drainInterval: defaultDrainInterval,
	}
}

// Option 定时器配置选项函数。
type Option func(*timerOptions)

// WithName 设置定时器名称，用于日志、统计与指标标识。
// 空字符串被忽略，保持默认名称。
//
// 用法：
//
//	timer, err := xtimer.NewFunc(flush, xtimer.WithName("report-flush"))
func WithName(name string) Option {
	return func(o *timerOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置结构化日志记录器。
// 默认使用 slog.Default()。传入 nil 被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *timerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHook 添加一个执行钩子。
// 钩子按添加顺序执行 BeforeRun，逆序执行 AfterRun（类似 defer）。
// 传入 nil 被忽略。
func WithHook(hook Hook) Option {
	return func(o *timerOptions) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}

// WithHooks 一次添加多个执行钩子，等价于依次调用 [WithHook]。
func WithHooks(hooks ...Hook) Option {
	return func(o *timerOptions) {
		for _, h := range hooks {
			if h != nil {
				o.hooks = append(o.hooks, h)
			}
		}
	}
}

// WithBaseContext 设置取消上下文的父 context。
//
// 每次（重新）创建取消源时都从该父 context 派生，父 context 取消时
// 所有后续回调都会立即观察到取消信号。默认为 context.Background()。
// 传入 nil 被忽略。
func WithBaseContext(ctx context.Context) Option {
	return func(o *timerOptions) {
		if ctx != nil {
			o.baseCtx = ctx
		}
	}
}

// WithTrigger 设置触发源工厂，替换默认的 time.Timer/time.Ticker 实现。
// 主要用于测试注入可控触发源。传入 nil 被忽略。
//
// 用法：
//
//	timer, err := xtimer.NewFunc(work, xtimer.WithTrigger(func(fire func()) xtimer.Trigger {
//	    return newManualTrigger(fire)
//	}))
func WithTrigger(factory TriggerFactory) Option {
	return func(o *timerOptions) {
		if factory != nil {
			o.triggerFactory = factory
		}
	}
}

// WithMeterProvider 启用 OpenTelemetry 指标并指定 MeterProvider。
//
// 启用后记录执行次数（按结果分类）、丢弃 tick 数与执行耗时分布。
// 默认不启用，不产生任何指标开销。传入 nil 被忽略。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *timerOptions) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}

// WithDrainInterval 设置 Stop 排水轮询的间隔。
// 非正值被忽略，保持默认值（500µs）。
func WithDrainInterval(interval time.Duration) Option {
	return func(o *timerOptions) {
		if interval > 0 {
			o.drainInterval = interval
		}
	}
}
