package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志轮转参数。
const (
	logMaxSizeMB  = 100
	logMaxBackups = 7
	logMaxAgeDays = 30
)

// exitError 携带非零退出码；错误信息已在别处输出，Error() 刻意为空。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 表示命令行参数错误，由 run() 统一输出并映射为退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// createCommands 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createRunCommand(),
		createOnceCommand(),
	}
}

// createRunCommand 创建交互模式命令。
func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r", "repl"},
		Usage:   "交互模式（REPL）",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLog()
			return cmdRun(ctx, cmd, cfg, logger)
		},
	}
}

// createOnceCommand 创建定时运行命令。
func createOnceCommand() *cli.Command {
	return &cli.Command{
		Name:    "once",
		Aliases: []string{"o"},
		Usage:   "运行指定时长后输出统计并退出",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "for",
				Usage: "运行时长",
				Value: 5 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLog()
			return cmdOnce(ctx, cfg, logger, cmd.Duration("for"))
		},
	}
}

// cmdOnce 编排定时器并运行 runFor 时长，结束后输出统计。
// 窗口内一次回调都未触发视为运行错误（退出码 1）。
func cmdOnce(ctx context.Context, cfg *demoConfig, logger *slog.Logger, runFor time.Duration) error {
	if runFor <= 0 {
		return &usageError{msg: "--for 必须为正时长"}
	}

	app, err := newDemoApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.timer.Close() }()

	app.timer.Change(cfg.DueTime, cfg.Period)
	logger.Info("timer armed",
		"due", cfg.DueTime, "period", cfg.Period, "for", runFor)

	select {
	case <-ctx.Done():
		logger.Info("interrupted, stopping early")
	case <-time.After(runFor):
	}

	if err := app.timer.Stop(true, stopTimeout); err != nil {
		logger.Warn("handler did not drain in time", "error", err)
	}

	app.printSummary(os.Stdout)

	if app.timer.Stats().TotalRuns() == 0 {
		fmt.Fprintln(os.Stderr, "窗口内未触发任何回调（due 可能大于 --for）")
		return &exitError{code: 1}
	}
	return nil
}

// newLogger 按命令行参数构建结构化日志器。
// 指定 --log-file 时输出到按大小轮转的文件，返回的清理函数负责关闭它。
func newLogger(cmd *cli.Command) (*slog.Logger, func(), error) {
	level, err := parseLogLevel(cmd.String("log-level"))
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if path := cmd.String("log-file"); path != "" {
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
		w = rotator
		closeFn = func() { _ = rotator.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

// parseLogLevel 解析日志级别，空值回退到 info。
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, &usageError{msg: fmt.Sprintf("未知日志级别: %q（支持 debug/info/warn/error）", s)}
	}
}

// setupSignalHandler 设置信号处理。
// 第一次 SIGINT/SIGTERM 触发优雅取消，第二次强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
