package xtimer

import (
	"sync"
	"time"
)

//go:generate mockgen -source=trigger.go -destination=mock_trigger_test.go -package=xtimer

// Trigger 底层触发源接口。
//
// 触发源只负责"按编排产生 tick"，不关心回调执行了多久：每次 tick 在独立
// goroutine 上调用 fire，可重入保护由上层的 [Timer] 完成。默认实现基于
// 标准库 time.Timer / time.Ticker，测试或特殊调度需求可通过 [WithTrigger]
// 注入自定义实现。
type Trigger interface {
	// Reschedule 重新编排触发计划。
	//
	// dueTime 为负（见 [Infinite]）表示解除编排：当前计划作废，不再产生
	// tick。dueTime 非负时，在 dueTime 之后产生首次 tick；period > 0 时
	// 此后每隔 period 再次 tick，period <= 0 表示只触发一次。
	// 新的编排总是先作废旧计划，同一触发源不会有两份计划并存。
	Reschedule(dueTime, period time.Duration)

	// Close 释放触发源。
	// 作废当前计划，此后的 Reschedule 全部无效。
	Close()
}

// TriggerFactory 触发源工厂函数。
// fire 是触发源在每次 tick 时需要调用的回调，由 [Timer] 提供。
type TriggerFactory func(fire func()) Trigger

// tickerTrigger 基于 time.Timer + time.Ticker 的默认触发源。
//
// 每次 Reschedule 开启一个新"代"（generation）：旧代通过关闭其 stop
// 通道作废，新代在独立 goroutine 中先等待 dueTime，再按 period 循环。
// tick 的派发（go fire()）不会阻塞计划循环，慢回调只会让后续 tick 被
// 上层丢弃，而不是在触发源里排队。
type tickerTrigger struct {
	fire func()

	mu     sync.Mutex
	stop   chan struct{} // 当前代的作废信号，nil 表示未编排
	closed bool
}

// newTickerTrigger 创建默认触发源。
func newTickerTrigger(fire func()) Trigger {
	return &tickerTrigger{fire: fire}
}

// Reschedule 实现 [Trigger] 接口。
func (tr *tickerTrigger) Reschedule(dueTime, period time.Duration) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	// 先作废旧代，保证任意时刻至多一份计划
	if tr.stop != nil {
		close(tr.stop)
		tr.stop = nil
	}

	if tr.closed || dueTime < 0 {
		return
	}

	stop := make(chan struct{})
	tr.stop = stop
	go tr.run(dueTime, period, stop)
}

// Close 实现 [Trigger] 接口。
func (tr *tickerTrigger) Close() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.stop != nil {
		close(tr.stop)
		tr.stop = nil
	}
	tr.closed = true
}

// run 是一代计划的主循环：等待 dueTime 产生首次 tick，
// 之后按 period 周期触发，直到本代被作废。
func (tr *tickerTrigger) run(dueTime, period time.Duration, stop chan struct{}) {
	delay := time.NewTimer(dueTime)
	defer delay.Stop()

	select {
	case <-stop:
		return
	case <-delay.C:
	}
	tr.dispatch(stop)

	if period <= 0 {
		return // 一次性触发
	}

	tick := time.NewTicker(period)
	defer tick.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			tr.dispatch(stop)
		}
	}
}

// dispatch 在独立 goroutine 上派发一次 tick。
// 作废与派发存在天然竞态，这里的检查只缩小窗口；
// 迟到的 fire 由 Timer 侧的启动标记检查兜底。
func (tr *tickerTrigger) dispatch(stop chan struct{}) {
	select {
	case <-stop:
		return
	default:
	}
	go tr.fire()
}
