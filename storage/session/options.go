package session

import (
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/forever-free1/bidindex/storage/index"
	"github.com/forever-free1/bidindex/watch"
)

// Options 定义 Session 的配置选项
type Options struct {
	// Backend 后端类型，默认顺序表
	Backend index.Type

	// TableSize 哈希后端的桶数量
	TableSize int

	// BloomExpected 布隆过滤器预期容量
	BloomExpected uint

	// BloomFP 布隆过滤器期望误判率
	BloomFP float64

	Logger   hclog.Logger
	Registry *prometheus.Registry

	// Hub 为 nil 时不发布变更事件
	Hub *watch.Hub
}

// Option 定义 Options 的配置函数
type Option func(*Options)

// WithBackend 设置后端类型
func WithBackend(typ index.Type) Option {
	return func(o *Options) {
		o.Backend = typ
	}
}

// WithTableSize 设置哈希表桶数量
func WithTableSize(size int) Option {
	return func(o *Options) {
		o.TableSize = size
	}
}

// WithBloomFilter 设置布隆过滤器的容量与误判率
func WithBloomFilter(expected uint, fp float64) Option {
	return func(o *Options) {
		o.BloomExpected = expected
		o.BloomFP = fp
	}
}

// WithLogger 设置日志器
func WithLogger(logger hclog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRegistry 设置指标注册表
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *Options) {
		o.Registry = reg
	}
}

// WithWatchHub 设置事件通知中心
func WithWatchHub(hub *watch.Hub) Option {
	return func(o *Options) {
		o.Hub = hub
	}
}

func defaultOptions() *Options {
	return &Options{
		Backend:       index.TypeSequence,
		TableSize:     index.DefaultTableSize,
		BloomExpected: 100000,
		BloomFP:       0.01,
	}
}
