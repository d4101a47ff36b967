// xtimerdemo 是 xtimer 定时器库的交互式演示程序。
//
// 用法:
//
//	xtimerdemo [全局选项] <命令>
//
// 全局选项:
//
//	-c, --config     配置文件路径 (.yaml/.yml/.json)
//	-w, --watch      监视配置文件变更并自动重排定时器
//	    --log-file   日志输出文件（自动按大小轮转）
//	    --log-level  日志级别 (debug/info/warn/error, 默认 info)
//	-n, --name       定时器名称 (默认 demo)
//	    --due        首次触发延迟 (默认 0，立即触发)
//	    --period     触发周期 (默认 2s；<= 0 表示一次性)
//	    --work       模拟回调耗时 (默认 500ms)
//
// 命令:
//
//	run            交互模式（REPL），支持 start/stop/cancel/status/quit
//	once           运行指定时长后输出统计并退出
//	help           显示帮助信息
//
// 可重入保护说明:
//
//	当 work 大于 period 时，回调执行期间到达的 tick 会被直接丢弃
//	（不排队、不合并），可通过 status 或 once 的统计观察丢弃计数。
//
// 退出码:
//
//	0: 成功
//	1: 运行错误（once 命令: 窗口内未触发任何回调）
//	2: 参数错误（无效时长、未知日志级别、不支持的配置格式等）
//
// 示例:
//
//	xtimerdemo run                                  # 交互模式
//	xtimerdemo --period 1s --work 3s run            # 周期小于回调耗时，观察丢弃
//	xtimerdemo -c demo.yaml -w run                  # 配置热重载
//	xtimerdemo --period 200ms once --for 3s         # 定时运行 3 秒后输出统计
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xtimerdemo",
		Usage:   "xtimer 定时器库的交互式演示程序",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径 (.yaml/.yml/.json)",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "监视配置文件变更并自动重排定时器",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志输出文件（自动按大小轮转）",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "定时器名称",
			},
			&cli.DurationFlag{
				Name:  "due",
				Usage: "首次触发延迟",
			},
			&cli.DurationFlag{
				Name:  "period",
				Usage: "触发周期（<= 0 表示一次性）",
			},
			&cli.DurationFlag{
				Name:  "work",
				Usage: "模拟回调耗时",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "run",
		Authors: []any{
			"xtimer Team",
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射，确保与文档退出码契约一致。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		Description: `xtimerdemo 用一个可观察的演示回调展示 xtimer 的核心行为:
可重入保护（慢回调下的 tick 丢弃）、协作式取消、停止排水与统计。

交互命令:
  start [due] [period]   编排定时器（默认取配置值）
  stop                   停止并等待执行中的回调自然结束
  cancel                 停止并向执行中的回调发送取消信号
  status                 查看定时器状态与统计
  quit / exit            退出

配置文件字段 (koanf 标签):
  name       定时器名称
  due_time   首次触发延迟（如 "500ms"）
  period     触发周期（如 "2s"）
  work       模拟回调耗时（如 "1s"）`,
	}
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 设置信号处理
	setupSignalHandler(cancel)

	if err := app.Run(ctx, os.Args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	return 0
}

// 共享超时常量。
const (
	// stopTimeout 控制台 stop/cancel 以及 once 收尾的排水上限
	stopTimeout = 10 * time.Second
	// rearmTimeout 配置热重载时停止旧编排的排水上限
	rearmTimeout = 5 * time.Second
)
