package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
)

func writeTestConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Name != "demo" {
		t.Errorf("Name = %q, want %q", cfg.Name, "demo")
	}
	if cfg.DueTime != 0 {
		t.Errorf("DueTime = %v, want 0", cfg.DueTime)
	}
	if cfg.Period != 2*time.Second {
		t.Errorf("Period = %v, want 2s", cfg.Period)
	}
	if cfg.Work != 500*time.Millisecond {
		t.Errorf("Work = %v, want 500ms", cfg.Work)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		want     demoConfig
		wantErr  bool
	}{
		{
			name:     "yaml_full",
			filename: "demo.yaml",
			content:  "name: worker\ndue_time: 500ms\nperiod: 3s\nwork: 1s\n",
			want: demoConfig{
				Name: "worker", DueTime: 500 * time.Millisecond,
				Period: 3 * time.Second, Work: time.Second,
			},
		},
		{
			name:     "yml_partial_keeps_defaults",
			filename: "demo.yml",
			content:  "period: 7s\n",
			want: demoConfig{
				Name: "demo", DueTime: 0,
				Period: 7 * time.Second, Work: 500 * time.Millisecond,
			},
		},
		{
			name:     "json",
			filename: "demo.json",
			content:  `{"name": "jsonTimer", "period": "1s"}`,
			want: demoConfig{
				Name: "jsonTimer", DueTime: 0,
				Period: time.Second, Work: 500 * time.Millisecond,
			},
		},
		{
			name:     "empty_name_falls_back",
			filename: "demo.yaml",
			content:  "name: \"\"\nperiod: 1s\n",
			want: demoConfig{
				Name: "demo", DueTime: 0,
				Period: time.Second, Work: 500 * time.Millisecond,
			},
		},
		{
			name:     "invalid_yaml",
			filename: "demo.yaml",
			content:  "name: [unclosed",
			wantErr:  true,
		},
		{
			name:     "invalid_duration",
			filename: "demo.yaml",
			content:  "period: notaduration\n",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestConfig(t, tt.filename, tt.content)
			got, err := loadConfigFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadConfigFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if *got != tt.want {
				t.Errorf("loadConfigFile() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestLoadConfigFileUnsupportedExt(t *testing.T) {
	path := writeTestConfig(t, "demo.toml", "name = 'x'")

	_, err := loadConfigFile(path)
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected *usageError, got %T: %v", err, err)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := loadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("loadConfigFile on missing file should return error")
	}
}

// resolveVia 通过真实的 CLI 参数解析路径调用 resolveConfig。
func resolveVia(t *testing.T, args ...string) (*demoConfig, error) {
	t.Helper()

	var (
		got    *demoConfig
		gotErr error
	)
	cmd := &cli.Command{
		Name:  "xtimerdemo",
		Flags: createApp().Flags,
		Action: func(_ context.Context, c *cli.Command) error {
			got, gotErr = resolveConfig(c)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"xtimerdemo"}, args...)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return got, gotErr
}

func TestResolveConfig(t *testing.T) {
	cfgPath := writeTestConfig(t, "demo.yaml", "name: fromfile\nperiod: 9s\n")

	tests := []struct {
		name    string
		args    []string
		want    demoConfig
		wantErr bool
	}{
		{
			name: "defaults_only",
			want: demoConfig{Name: "demo", Period: 2 * time.Second, Work: 500 * time.Millisecond},
		},
		{
			name: "flags_override_defaults",
			args: []string{"--name", "cli", "--due", "1s", "--period", "0s", "--work", "0s"},
			want: demoConfig{Name: "cli", DueTime: time.Second, Period: 0, Work: 0},
		},
		{
			name: "file_then_flag_precedence",
			args: []string{"--config", cfgPath, "--period", "3s"},
			want: demoConfig{Name: "fromfile", Period: 3 * time.Second, Work: 500 * time.Millisecond},
		},
		{
			name:    "negative_work_rejected",
			args:    []string{"--work=-1s"},
			wantErr: true,
		},
		{
			name:    "empty_name_rejected",
			args:    []string{"--name", ""},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveVia(t, tt.args...)
			if tt.wantErr {
				var usageErr *usageError
				if !errors.As(err, &usageErr) {
					t.Fatalf("expected *usageError, got %T: %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveConfig() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("resolveConfig() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
