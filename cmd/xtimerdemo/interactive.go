package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtimer/pkg/xtimer"
)

// cmdRun 运行交互模式，可选启动配置文件监视。
func cmdRun(ctx context.Context, cmd *cli.Command, cfg *demoConfig, logger *slog.Logger) error {
	app, err := newDemoApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.timer.Close() }()

	consoleCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(consoleCtx)

	if cmd.Bool("watch") {
		path := cmd.String("config")
		if path == "" {
			return &usageError{msg: "--watch 需要同时指定 --config"}
		}
		g.Go(func() error {
			return watchConfig(gctx, path, app)
		})
	}

	g.Go(func() error {
		// REPL 退出后结束监视 goroutine
		defer stop()
		return runConsole(gctx, app)
	})

	return g.Wait()
}

// runConsole 运行交互式控制台，阻塞直到用户退出或 ctx 取消。
func runConsole(ctx context.Context, app *demoApp) error {
	cfg := app.cfg.Load()
	fmt.Printf("xtimerdemo 交互模式（定时器: %s, 周期: %v, 回调耗时: %v）\n",
		cfg.Name, cfg.Period, cfg.Work)
	fmt.Println("输入 'help' 查看可用命令，'quit' 或 'exit' 退出")
	fmt.Println()

	inputCh, errCh := startInputReader(ctx)

	for {
		fmt.Print("xtimer> ")

		select {
		case <-ctx.Done():
			fmt.Println("\n再见!")
			return nil
		case err := <-errCh:
			return fmt.Errorf("读取输入错误: %w", err)
		case line, ok := <-inputCh:
			if !ok {
				// EOF（如 Ctrl+D 或管道输入结束）
				fmt.Println()
				return nil
			}
			if shouldExit := app.processLine(line); shouldExit {
				return nil
			}
		}
	}
}

// startInputReader 启动输入读取 goroutine。
// 返回的 inputCh 在 EOF 时关闭，读取错误发送到 errCh。
func startInputReader(ctx context.Context) (<-chan string, <-chan error) {
	inputCh := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(inputCh)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			errCh <- err
		}
	}()

	return inputCh, errCh
}

// processLine 处理单行输入，返回 true 表示应该退出。
func (a *demoApp) processLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if line == "quit" || line == "exit" {
		fmt.Println("再见!")
		return true
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "start":
		a.startTimer(fields[1:])
	case "stop":
		a.stopTimer(false)
	case "cancel":
		a.stopTimer(true)
	case "status":
		a.printStatus(os.Stdout)
	case "help":
		printConsoleHelp()
	default:
		fmt.Printf("未知命令: %q（输入 'help' 查看可用命令）\n", fields[0])
	}
	return false
}

// startTimer 处理 start 命令: start [due] [period]。
// 定时器未运行时才编排；运行中的重排是静默空操作，控制台替库把话说明白。
func (a *demoApp) startTimer(args []string) {
	if a.timer.IsStarted() {
		fmt.Println("定时器已在运行；运行中的重排不会生效，请先 stop 或 cancel")
		return
	}

	due, period, err := parseStartArgs(args, a.cfg.Load())
	if err != nil {
		fmt.Printf("参数错误: %v\n", err)
		return
	}

	a.timer.Change(due, period)
	if !a.timer.IsStarted() {
		fmt.Printf("未编排（due %v 为负表示永不触发）\n", due)
		return
	}
	fmt.Printf("已编排: 首次 %v 后触发，周期 %s\n", due, formatPeriod(period))
}

// parseStartArgs 解析 start 命令参数，缺省值取当前配置。
func parseStartArgs(args []string, cfg *demoConfig) (due, period time.Duration, err error) {
	due, period = cfg.DueTime, cfg.Period

	if len(args) > 2 {
		return 0, 0, errors.New("用法: start [due] [period]")
	}
	if len(args) >= 1 {
		d, parseErr := time.ParseDuration(args[0])
		if parseErr != nil {
			return 0, 0, fmt.Errorf("无效的 due: %w", parseErr)
		}
		due = d
	}
	if len(args) == 2 {
		p, parseErr := time.ParseDuration(args[1])
		if parseErr != nil {
			return 0, 0, fmt.Errorf("无效的 period: %w", parseErr)
		}
		period = p
	}
	return due, period, nil
}

// formatPeriod 把周期格式化为人类可读形式。
func formatPeriod(p time.Duration) string {
	if p <= 0 {
		return "一次性"
	}
	return p.String()
}

// stopTimer 处理 stop/cancel 命令。force 为 true 时向回调发送取消信号。
func (a *demoApp) stopTimer(force bool) {
	if err := a.timer.Stop(force, stopTimeout); err != nil {
		var toErr *xtimer.TimeoutError
		if errors.As(err, &toErr) {
			fmt.Printf("回调在 %v 内未退出，仍在后台运行（可稍后重试 cancel）\n", toErr.Timeout)
			return
		}
		fmt.Printf("停止失败: %v\n", err)
		return
	}

	if force {
		fmt.Println("已取消并停止（执行中的回调收到取消信号后退出）")
		return
	}
	fmt.Println("已停止（执行中的回调已自然结束）")
}

// printStatus 输出定时器状态与统计。
func (a *demoApp) printStatus(w io.Writer) {
	cfg := a.cfg.Load()
	state := "已停止"
	if a.timer.IsStarted() {
		state = "运行中"
	}

	fmt.Fprintf(w, "名称: %s\n", cfg.Name)
	fmt.Fprintf(w, "状态: %s\n", state)
	a.printSummary(w)

	snap := a.timer.Stats().Snapshot()
	if !snap.LastRunTime.IsZero() {
		fmt.Fprintf(w, "最近执行: %s（耗时 %v）\n",
			snap.LastRunTime.Format(time.RFC3339),
			snap.LastDuration.Round(time.Millisecond))
	}
	if snap.LastError != "" {
		fmt.Fprintf(w, "最近错误: %s\n", snap.LastError)
	}
}

// printConsoleHelp 显示控制台帮助。
func printConsoleHelp() {
	fmt.Println(`可用命令:
  start [due] [period]   编排定时器（默认取配置值；period <= 0 表示一次性）
  stop                   停止并等待执行中的回调自然结束
  cancel                 停止并向执行中的回调发送取消信号
  status                 查看定时器状态与统计
  help                   显示本帮助
  quit / exit            退出`)
}
