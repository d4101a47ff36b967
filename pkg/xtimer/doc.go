// Package xtimer 提供可重入安全、支持协作式取消的周期性定时器封装。
//
// # 概述
//
// 标准库的 time.Timer / time.Ticker 只负责按时触发，不关心回调执行了多久：
// 当回调耗时超过触发周期时，下一轮触发会与上一轮并发执行。xtimer 在底层
// 触发源之上增加一个可重入保护层，保证同一实例的回调在任意时刻至多执行
// 一个，迟到的 tick 直接丢弃（不排队、不合并、不补偿）。
//
// 核心能力：
//   - 可重入保护：原子 CAS 守门，回调永不与自身并发
//   - 确定性停止：Stop 正常返回即保证没有回调在执行、也不会再有新回调开始
//   - 协作式取消：回调通过 context 感知取消信号，优雅退出长任务
//   - 停止后可重启：取消源自动更换，重启后的回调拿到全新的 context
//   - 执行统计：次数、丢弃、耗时分布，支持 JSON 快照
//
// # 快速开始
//
//	timer, err := xtimer.NewFunc(func(ctx context.Context) error {
//	    for i := 0; i < 10; i++ {
//	        select {
//	        case <-ctx.Done():
//	            return ctx.Err() // 响应取消，尽快返回
//	        default:
//	        }
//	        doSlice(i)
//	    }
//	    return nil
//	}, xtimer.WithName("report-flush"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer timer.Close()
//
//	timer.Change(0, time.Second) // 立即开始，每秒触发一次
//
//	// 需要改变周期时先停止再重新编排
//	if err := timer.Stop(true, 5*time.Second); err != nil {
//	    log.Fatal(err) // 回调未在期限内退出，视为失控
//	}
//	timer.Change(0, 10*time.Second)
//
// # 设计权衡
//
// Stop 的排水（drain）采用短睡眠轮询而非阻塞等待：回调通常很短，轮询换来
// 更低的返回延迟，代价是排水期间少量 CPU 消耗。取消是协作式的：Stop 的
// force 参数只翻转 context 的取消信号，不会抢占正在执行的回调；完全不检查
// ctx 的回调会让无限期 Stop 一直阻塞，或让限时 Stop 返回 [TimeoutError]，
// 调用方应将后者视为回调已失控的致命信号。
//
// 已启动的实例再次调用 Change 是静默空操作（不会重新编排底层调度），需要
// 先 Stop 再 Change 才能改变周期。这是刻意的简化：拒绝并发重排，换取启动
// 路径上单次 CAS 即可判定的确定性。
package xtimer
