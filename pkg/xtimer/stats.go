package xtimer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Stats 提供回调执行统计信息。
//
// 线程安全，可在回调执行期间安全读取。
// 统计数据包括执行次数、成功/失败次数、丢弃 tick 数、执行时长等。
//
// 用法：
//
//	stats := timer.Stats()
//	fmt.Printf("总执行次数: %d\n", stats.TotalRuns())
//	fmt.Printf("丢弃 tick 数: %d\n", stats.DropCount())
//	fmt.Printf("平均耗时: %v\n", stats.AvgDuration())
type Stats struct {
	totalRuns    atomic.Int64
	successCount atomic.Int64
	failureCount atomic.Int64
	panicCount   atomic.Int64 // 回调 panic 次数（计入 failureCount 的子集）
	dropCount    atomic.Int64 // 因上一次回调未结束而被丢弃的 tick 数

	mu           sync.RWMutex
	lastRunTime  time.Time     // 最后执行时间
	lastDuration time.Duration // 最后执行耗时
	lastError    error         // 最后一次错误

	// 执行时长统计
	totalDuration atomic.Int64 // 纳秒
	minDuration   atomic.Int64 // 纳秒
	maxDuration   atomic.Int64 // 纳秒
}

// newStats 创建新的统计实例。
func newStats() *Stats {
	s := &Stats{}
	// 初始化最小值为最大值，以便首次执行时正确更新
	s.minDuration.Store(int64(1<<63 - 1))
	return s
}

// TotalRuns 返回总执行次数（不含被丢弃的 tick）。
func (s *Stats) TotalRuns() int64 {
	return s.totalRuns.Load()
}

// SuccessCount 返回成功执行次数。
func (s *Stats) SuccessCount() int64 {
	return s.successCount.Load()
}

// FailureCount 返回失败执行次数（含 panic）。
func (s *Stats) FailureCount() int64 {
	return s.failureCount.Load()
}

// PanicCount 返回回调 panic 次数。
func (s *Stats) PanicCount() int64 {
	return s.panicCount.Load()
}

// DropCount 返回因可重入保护被丢弃的 tick 数。
func (s *Stats) DropCount() int64 {
	return s.dropCount.Load()
}

// LastRunTime 返回最后一次执行时间。
func (s *Stats) LastRunTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunTime
}

// LastDuration 返回最后一次执行耗时。
func (s *Stats) LastDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDuration
}

// LastError 返回最后一次执行错误（nil 表示成功）。
func (s *Stats) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// AvgDuration 返回平均执行耗时。
func (s *Stats) AvgDuration() time.Duration {
	total := s.totalRuns.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(s.totalDuration.Load() / total)
}

// MinDuration 返回最小执行耗时。
func (s *Stats) MinDuration() time.Duration {
	min := s.minDuration.Load()
	if min == int64(1<<63-1) {
		return 0 // 尚未执行
	}
	return time.Duration(min)
}

// MaxDuration 返回最大执行耗时。
func (s *Stats) MaxDuration() time.Duration {
	return time.Duration(s.maxDuration.Load())
}

// SuccessRate 返回成功率（0-1）。
func (s *Stats) SuccessRate() float64 {
	total := s.totalRuns.Load()
	if total == 0 {
		return 0
	}
	return float64(s.successCount.Load()) / float64(total)
}

// recordRun 记录一次回调执行。
func (s *Stats) recordRun(duration time.Duration, err error) {
	now := time.Now()
	durationNs := int64(duration)

	s.totalRuns.Add(1)
	s.totalDuration.Add(durationNs)

	if err != nil {
		s.failureCount.Add(1)
		var panicErr *PanicError
		if errors.As(err, &panicErr) {
			s.panicCount.Add(1)
		}
	} else {
		s.successCount.Add(1)
	}

	// 更新最小值（CAS 循环）
	for {
		old := s.minDuration.Load()
		if durationNs >= old {
			break
		}
		if s.minDuration.CompareAndSwap(old, durationNs) {
			break
		}
	}

	// 更新最大值（CAS 循环）
	for {
		old := s.maxDuration.Load()
		if durationNs <= old {
			break
		}
		if s.maxDuration.CompareAndSwap(old, durationNs) {
			break
		}
	}

	s.mu.Lock()
	s.lastRunTime = now
	s.lastDuration = duration
	s.lastError = err
	s.mu.Unlock()
}

// recordDrop 记录一次被丢弃的 tick。
func (s *Stats) recordDrop() {
	s.dropCount.Add(1)
}

// StatsSnapshot 统计快照，用于序列化。
type StatsSnapshot struct {
	TotalRuns    int64         `json:"total_runs"`
	SuccessCount int64         `json:"success_count"`
	FailureCount int64         `json:"failure_count"`
	PanicCount   int64         `json:"panic_count"`
	DropCount    int64         `json:"drop_count"`
	SuccessRate  float64       `json:"success_rate"`
	LastRunTime  time.Time     `json:"last_run_time,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	AvgDuration  time.Duration `json:"avg_duration"`
	MinDuration  time.Duration `json:"min_duration"`
	MaxDuration  time.Duration `json:"max_duration"`
}

// Snapshot 返回统计快照。
func (s *Stats) Snapshot() *StatsSnapshot {
	snap := &StatsSnapshot{
		TotalRuns:    s.TotalRuns(),
		SuccessCount: s.SuccessCount(),
		FailureCount: s.FailureCount(),
		PanicCount:   s.PanicCount(),
		DropCount:    s.DropCount(),
		SuccessRate:  s.SuccessRate(),
		LastRunTime:  s.LastRunTime(),
		LastDuration: s.LastDuration(),
		AvgDuration:  s.AvgDuration(),
		MinDuration:  s.MinDuration(),
		MaxDuration:  s.MaxDuration(),
	}

	if err := s.LastError(); err != nil {
		snap.LastError = err.Error()
	}

	return snap
}
