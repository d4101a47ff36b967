package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
)

// 默认配置值。
const (
	defaultTimerName = "demo"
	defaultPeriod    = 2 * time.Second
	defaultWork      = 500 * time.Millisecond
)

// demoConfig 是演示程序配置。
// 时长字段在配置文件中写可读字符串（如 "500ms"、"2s"），
// 由 koanf 的默认 mapstructure 钩子解析为 time.Duration。
type demoConfig struct {
	Name    string        `koanf:"name"`
	DueTime time.Duration `koanf:"due_time"`
	Period  time.Duration `koanf:"period"`
	Work    time.Duration `koanf:"work"`
}

// defaultConfig 返回默认配置。
func defaultConfig() *demoConfig {
	return &demoConfig{
		Name:    defaultTimerName,
		DueTime: 0,
		Period:  defaultPeriod,
		Work:    defaultWork,
	}
}

// loadConfigFile 从 YAML/JSON 文件加载配置，按扩展名选择解析器。
// 文件中缺失的字段保留默认值。
func loadConfigFile(path string) (*demoConfig, error) {
	parser, err := parserForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg := defaultConfig()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("配置反序列化失败: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = defaultTimerName
	}
	return cfg, nil
}

// parserForPath 根据文件扩展名选择解析器。
func parserForPath(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, &usageError{
			msg: fmt.Sprintf("不支持的配置文件格式: %s（支持 .yaml/.yml/.json）", path),
		}
	}
}

// resolveConfig 合并配置来源: 默认值 < 配置文件 < 命令行参数。
// 只有显式出现在命令行上的参数才覆盖文件值。
func resolveConfig(cmd *cli.Command) (*demoConfig, error) {
	cfg := defaultConfig()

	if path := cmd.String("config"); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if cmd.IsSet("name") {
		cfg.Name = cmd.String("name")
	}
	if cmd.IsSet("due") {
		cfg.DueTime = cmd.Duration("due")
	}
	if cmd.IsSet("period") {
		cfg.Period = cmd.Duration("period")
	}
	if cmd.IsSet("work") {
		cfg.Work = cmd.Duration("work")
	}

	if cfg.Name == "" {
		return nil, &usageError{msg: "name 不能为空"}
	}
	if cfg.Work < 0 {
		return nil, &usageError{msg: "work 不能为负值"}
	}
	return cfg, nil
}
