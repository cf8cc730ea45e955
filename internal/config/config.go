// Package config 加载命令行工具的 YAML 配置文件
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DirEnvVar 覆盖配置文件中的表目录
	DirEnvVar = "CSV233_DIR"
	// DefaultDir 默认表目录
	DefaultDir = "tables"
)

// Config 命令行工具配置
type Config struct {
	Separator   string      `yaml:"separator"`   // 单字节分隔符，默认 ","；"\t" 表示制表符
	LogLevel    string      `yaml:"log_level"`   // debug / info / warn / error
	LogFormat   string      `yaml:"log_format"`  // text / json
	Dir         string      `yaml:"dir"`         // watch 命令默认目录
	Parallelism int         `yaml:"parallelism"` // 并行加载数，0 为 CPU 核数
	Watch       WatchConfig `yaml:"watch"`
}

// WatchConfig 热重载配置
type WatchConfig struct {
	BatchDelay time.Duration `yaml:"batch_delay"`
	Cooldown   time.Duration `yaml:"cooldown"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Separator: ",",
		LogLevel:  "info",
		LogFormat: "text",
		Dir:       DefaultDir,
		Watch: WatchConfig{
			BatchDelay: 500 * time.Millisecond,
			Cooldown:   300 * time.Millisecond,
		},
	}
}

// Load 读取配置文件，未设置的字段使用默认值
// path 为空或文件不存在时返回默认配置；环境变量 CSV233_DIR 优先于文件中的 dir
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if dir := os.Getenv(DirEnvVar); dir != "" {
		cfg.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if _, err := ParseSeparator(c.Separator); err != nil {
		return err
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must be >= 0, got %d", c.Parallelism)
	}
	if c.Watch.BatchDelay < 0 || c.Watch.Cooldown < 0 {
		return fmt.Errorf("watch delays must not be negative")
	}
	return nil
}

// SeparatorByte 返回分隔符字节
func (c *Config) SeparatorByte() byte {
	sep, err := ParseSeparator(c.Separator)
	if err != nil {
		return ','
	}
	return sep
}

// ParseSeparator 解析分隔符：空串为 ','，"\t" 或 "tab" 为制表符，其余必须是单字节
func ParseSeparator(s string) (byte, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("separator must be a single byte, got %q", s)
	}
	if s[0] == '\n' {
		return 0, fmt.Errorf("separator must not be a newline")
	}
	return s[0], nil
}
