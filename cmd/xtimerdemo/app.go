package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/omeyang/xtimer/pkg/xtimer"
)

// demoApp 持有演示会话的共享状态。
//
// 配置放在 atomic.Pointer 中: 回调 goroutine 与配置热重载 goroutine
// 并发读写，整体替换指针避免字段级撕裂。
type demoApp struct {
	timer  *xtimer.Timer
	cfg    atomic.Pointer[demoConfig]
	logger *slog.Logger
}

// newDemoApp 创建演示应用，定时器处于未编排状态。
func newDemoApp(cfg *demoConfig, logger *slog.Logger) (*demoApp, error) {
	app := &demoApp{logger: logger}
	app.cfg.Store(cfg)

	timer, err := xtimer.NewFunc(app.handle,
		xtimer.WithName(cfg.Name),
		xtimer.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("创建定时器失败: %w", err)
	}
	app.timer = timer
	return app, nil
}

// workSlices 把模拟处理切成的片数，每片结束记录一次进度。
const workSlices = 4

// handle 是演示回调: 记录触发日志并模拟 work 时长的业务处理。
// 处理切片进行，每片都在 select 中监听取消信号，取消响应是即时的；
// 取消时返回 ctx.Err() 使其计入失败统计。
func (a *demoApp) handle(ctx context.Context) error {
	cfg := a.cfg.Load()
	a.logger.Info("tick fired", "timer", cfg.Name, "work", cfg.Work)

	if cfg.Work <= 0 {
		return nil
	}

	slice := cfg.Work / workSlices
	if slice <= 0 {
		slice = cfg.Work
	}

	for done := time.Duration(0); done < cfg.Work; done += slice {
		select {
		case <-ctx.Done():
			a.logger.Warn("tick cancelled midway",
				"timer", cfg.Name, "progress", done, "total", cfg.Work)
			return ctx.Err()
		case <-time.After(slice):
			a.logger.Debug("work progress",
				"timer", cfg.Name, "done", done+slice, "total", cfg.Work)
		}
	}
	return nil
}

// applyConfig 应用新配置并按新调度重排定时器。
// 先停止旧编排（协作式取消 + 排水），保证新旧回调不会交错执行。
func (a *demoApp) applyConfig(cfg *demoConfig) {
	a.cfg.Store(cfg)

	if err := a.timer.Stop(true, rearmTimeout); err != nil {
		a.logger.Error("stop before rearm failed", "error", err)
		return
	}

	a.timer.Change(cfg.DueTime, cfg.Period)
	a.logger.Info("timer rescheduled from config",
		"due", cfg.DueTime, "period", cfg.Period, "work", cfg.Work)
}

// printSummary 输出执行统计。
func (a *demoApp) printSummary(w io.Writer) {
	snap := a.timer.Stats().Snapshot()
	fmt.Fprintf(w, "总执行: %d  成功: %d  失败: %d  panic: %d  丢弃: %d\n",
		snap.TotalRuns, snap.SuccessCount, snap.FailureCount, snap.PanicCount, snap.DropCount)
	if snap.TotalRuns > 0 {
		fmt.Fprintf(w, "耗时: 平均 %v  最小 %v  最大 %v\n",
			snap.AvgDuration.Round(time.Millisecond),
			snap.MinDuration.Round(time.Millisecond),
			snap.MaxDuration.Round(time.Millisecond))
	}
}
