package config

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/forever-free1/bidindex/loader"
	"github.com/forever-free1/bidindex/storage"
	"github.com/forever-free1/bidindex/storage/index"
)

// Config 是 bidctl 的完整配置
type Config struct {
	Backend string       `yaml:"backend"`
	Hash    HashConfig   `yaml:"hash"`
	Loader  LoaderConfig `yaml:"loader"`
	Bloom   BloomConfig  `yaml:"bloom"`
	Server  ServerConfig `yaml:"server"`
	Log     LogConfig    `yaml:"log"`
}

type HashConfig struct {
	TableSize int `yaml:"table_size"`
}

type LoaderConfig struct {
	Path      string         `yaml:"path"`
	StripChar string         `yaml:"strip_char"` // 只使用第一个字符
	HasHeader bool           `yaml:"has_header"`
	Columns   loader.Columns `yaml:"columns"`
}

type BloomConfig struct {
	ExpectedItems uint    `yaml:"expected_items"`
	FalsePositive float64 `yaml:"false_positive"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP 监听地址，例如 :8080
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// searchPaths 是未指定路径时依次尝试的配置文件
var searchPaths = []string{"bidindex.yaml", "configs/bidindex.yaml"}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Backend: index.TypeSequence.String(),
		Hash:    HashConfig{TableSize: index.DefaultTableSize},
		Loader: LoaderConfig{
			Path:      "eBid_Monthly_Sales.csv",
			StripChar: string(storage.DefaultStripChar),
			HasHeader: true,
			Columns:   loader.DefaultColumns,
		},
		Bloom: BloomConfig{
			ExpectedItems: 100000,
			FalsePositive: 0.01,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load 读取配置
// 参数：
//   - configPath: 配置文件路径；为空时按 searchPaths 查找，都不存在则使用默认值
//
// 返回：
//   - *Config: 配置，出错时也会返回默认值
//   - error: 指定文件读取失败或 YAML 格式错误
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range searchPaths {
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", p, err)
			}
			applyDefaults(cfg)
			return cfg, nil
		}
		applyDefaults(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configPath, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend == "" {
		cfg.Backend = index.TypeSequence.String()
	}
	if cfg.Hash.TableSize <= 0 {
		cfg.Hash.TableSize = index.DefaultTableSize
	}
	if cfg.Loader.StripChar == "" {
		cfg.Loader.StripChar = string(storage.DefaultStripChar)
	}
	if cfg.Bloom.ExpectedItems == 0 {
		cfg.Bloom.ExpectedItems = 100000
	}
	if cfg.Bloom.FalsePositive <= 0 || cfg.Bloom.FalsePositive >= 1 {
		cfg.Bloom.FalsePositive = 0.01
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// IndexType 解析 backend 字段
func (c *Config) IndexType() (index.Type, error) {
	return index.ParseType(c.Backend)
}

// StripRune 返回 strip_char 的第一个字符
func (c *Config) StripRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Loader.StripChar)
	if r == utf8.RuneError {
		return storage.DefaultStripChar
	}
	return r
}

// LogLevel 解析日志级别，无法识别时为 Info
func (c *Config) LogLevel() hclog.Level {
	if l := hclog.LevelFromString(c.Log.Level); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}

// LoaderOptions 把 loader 配置转换为 loader.Option
func (c *Config) LoaderOptions() []loader.Option {
	return []loader.Option{
		loader.WithColumns(c.Loader.Columns),
		loader.WithStripChar(c.StripRune()),
		loader.WithHeader(c.Loader.HasHeader),
	}
}
