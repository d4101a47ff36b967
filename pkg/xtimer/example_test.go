package xtimer_test

import (
	"context"
	"fmt"
	"time"

	"github.com/omeyang/xtimer/pkg/xtimer"
)

func Example_basic() {
	done := make(chan struct{})

	timer, err := xtimer.NewFunc(func(ctx context.Context) error {
		fmt.Println("tick")
		close(done)
		return nil
	}, xtimer.WithName("example-timer"))
	if err != nil {
		panic(err)
	}

	// dueTime 为 0 立即触发，period 为 0 表示只触发一次
	timer.Change(0, 0)
	<-done

	if err := timer.Stop(false, time.Second); err != nil {
		panic(err)
	}
	if err := timer.Close(); err != nil {
		panic(err)
	}
	fmt.Println("stopped")

	// Output:
	// tick
	// stopped
}

func Example_cooperativeCancel() {
	entered := make(chan struct{})

	timer, err := xtimer.NewFunc(func(ctx context.Context) error {
		close(entered)
		<-ctx.Done() // 协作式取消：等待停止信号
		fmt.Println("cancelled")
		return nil
	})
	if err != nil {
		panic(err)
	}

	timer.Change(0, time.Second)
	<-entered

	// force=true 向执行中的回调发出取消信号，并排水等待其退出
	if err := timer.Stop(true, time.Second); err != nil {
		panic(err)
	}
	fmt.Println("stopped")

	if err := timer.Close(); err != nil {
		panic(err)
	}

	// Output:
	// cancelled
	// stopped
}

func Example_withHook() {
	done := make(chan struct{})

	hook := xtimer.HookFunc{
		After: func(ctx context.Context, name string, d time.Duration, err error) {
			fmt.Printf("%s finished, err=%v\n", name, err)
			close(done)
		},
	}

	timer, err := xtimer.NewFunc(func(ctx context.Context) error {
		return nil
	}, xtimer.WithName("hooked"), xtimer.WithHook(hook))
	if err != nil {
		panic(err)
	}

	timer.Change(0, 0)
	<-done

	if err := timer.Close(); err != nil {
		panic(err)
	}

	// Output:
	// hooked finished, err=<nil>
}

func Example_stats() {
	done := make(chan struct{})

	timer, err := xtimer.NewFunc(func(ctx context.Context) error {
		defer close(done)
		return nil
	})
	if err != nil {
		panic(err)
	}

	timer.Change(0, 0)
	<-done
	if err := timer.Stop(false, time.Second); err != nil {
		panic(err)
	}

	snap := timer.Stats().Snapshot()
	fmt.Printf("total=%d success=%d dropped=%d\n", snap.TotalRuns, snap.SuccessCount, snap.DropCount)

	if err := timer.Close(); err != nil {
		panic(err)
	}

	// Output:
	// total=1 success=1 dropped=0
}
