package xtimer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newMockedTimer 创建注入 gomock 触发源的定时器。
func newMockedTimer(t *testing.T, mockTrigger *MockTrigger) *Timer {
	t.Helper()
	timer, err := NewFunc(func(ctx context.Context) error { return nil },
		WithTrigger(func(fire func()) Trigger { return mockTrigger }))
	require.NoError(t, err)
	return timer
}

// TestTimer_TriggerProtocol 验证 Timer 与触发源之间的调用协议：
// 启动编排一次、停止解除一次、关闭释放一次，已启动时的 Change 不触达触发源。
func TestTimer_TriggerProtocol(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTrigger := NewMockTrigger(ctrl)
	gomock.InOrder(
		mockTrigger.EXPECT().Reschedule(50*time.Millisecond, 50*time.Millisecond),
		mockTrigger.EXPECT().Reschedule(Infinite, Infinite),
		mockTrigger.EXPECT().Close(),
	)

	timer := newMockedTimer(t, mockTrigger)

	timer.Change(50*time.Millisecond, 50*time.Millisecond)
	timer.Change(time.Second, time.Second) // 已启动：静默空操作
	require.NoError(t, timer.Stop(false, 0))
	require.NoError(t, timer.Close())
}

// TestTimer_IdleNeverTouchesTrigger 验证未启动状态下 Stop 与无限期 Change
// 都不会触达底层触发源。
func TestTimer_IdleNeverTouchesTrigger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTrigger := NewMockTrigger(ctrl)
	mockTrigger.EXPECT().Close()

	timer := newMockedTimer(t, mockTrigger)

	timer.Change(Infinite, time.Second)
	require.NoError(t, timer.Stop(true, 0))
	require.NoError(t, timer.Close())
}

// TestTimer_RestartReprogramsTrigger 验证停止后重启会重新编排触发源。
func TestTimer_RestartReprogramsTrigger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTrigger := NewMockTrigger(ctrl)
	gomock.InOrder(
		mockTrigger.EXPECT().Reschedule(10*time.Millisecond, 10*time.Millisecond),
		mockTrigger.EXPECT().Reschedule(Infinite, Infinite),
		mockTrigger.EXPECT().Reschedule(20*time.Millisecond, time.Duration(0)),
		mockTrigger.EXPECT().Reschedule(Infinite, Infinite), // Close 内部的停止
		mockTrigger.EXPECT().Close(),
	)

	timer := newMockedTimer(t, mockTrigger)

	timer.Change(10*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, timer.Stop(false, 0))
	timer.Change(20*time.Millisecond, 0)
	require.NoError(t, timer.Close())
}
