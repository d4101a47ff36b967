package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce 变更事件去抖窗口。
// 编辑器保存往往产生多个事件（truncate + write 或 写临时文件 + rename），
// 只在事件静默后重载一次。
const watchDebounce = 100 * time.Millisecond

// watchConfig 监视配置文件并在变更后重载、重排定时器。
// 阻塞直到 ctx 取消; 监视器创建失败返回错误，运行期错误记日志继续。
func watchConfig(ctx context.Context, path string, app *demoApp) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监视器失败: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// 监视目录而非文件本身: 编辑器原子保存（写临时文件后 rename）
	// 会使文件级监视失效，目录级监视能持续收到事件。
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("监视目录 %s 失败: %w", dir, err)
	}

	filename := filepath.Base(path)

	var mu sync.Mutex
	var debounce *time.Timer
	defer func() {
		mu.Lock()
		if debounce != nil {
			debounce.Stop()
		}
		mu.Unlock()
	}()

	app.logger.Info("watching config file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case <-ctx.Done():
					return
				default:
				}
				reloadConfig(path, app)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			app.logger.Error("config watch error", "error", err)
		}
	}
}

// reloadConfig 重载配置文件并应用。解析失败保留当前配置。
func reloadConfig(path string, app *demoApp) {
	cfg, err := loadConfigFile(path)
	if err != nil {
		app.logger.Error("config reload failed, keeping current config",
			"path", path, "error", err)
		return
	}
	app.applyConfig(cfg)
}
