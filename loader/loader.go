package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forever-free1/bidindex/storage"
)

// ErrSourceUnavailable 表示数据源无法打开
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrShortRow 表示 CSV 行的列数少于列映射需要的数量
var ErrShortRow = errors.New("row has too few columns")

// ErrBadSnapshot 表示快照头部的魔数或版本不匹配
var ErrBadSnapshot = errors.New("bad snapshot header")

// ParseError 表示数据源中某一行（或某一条记录）格式错误
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Source 是记录数据源
type Source interface {
	// Each 按数据源中的顺序对每条记录调用 fn
	// fn 返回的错误会原样返回并终止遍历；ctx 取消时返回 ctx.Err()
	Each(ctx context.Context, fn func(storage.Record) error) error
}

// Columns 是 CSV 列到记录字段的映射（从 0 开始）
type Columns struct {
	ID     int `yaml:"id"`
	Title  int `yaml:"title"`
	Fund   int `yaml:"fund"`
	Amount int `yaml:"amount"`
}

// DefaultColumns 是市政拍卖导出文件的列布局
var DefaultColumns = Columns{ID: 1, Title: 0, Fund: 8, Amount: 4}

// width 返回一行至少需要的列数
func (c Columns) width() int {
	return max(c.ID, c.Title, c.Fund, c.Amount) + 1
}

// Options 数据源配置
type Options struct {
	Columns   Columns
	StripChar rune
	HasHeader bool
}

// Option 定义配置函数
type Option func(*Options)

// WithColumns 设置列映射
func WithColumns(c Columns) Option {
	return func(o *Options) {
		o.Columns = c
	}
}

// WithStripChar 设置金额中需要剔除的字符
func WithStripChar(r rune) Option {
	return func(o *Options) {
		o.StripChar = r
	}
}

// WithHeader 设置第一行是否为表头
func WithHeader(has bool) Option {
	return func(o *Options) {
		o.HasHeader = has
	}
}

// Open 根据扩展名选择数据源：.snap 为快照，其余按 CSV 处理
// 文件在 Each 时才会打开
func Open(path string, opts ...Option) Source {
	options := &Options{
		Columns:   DefaultColumns,
		StripChar: storage.DefaultStripChar,
		HasHeader: true,
	}
	for _, opt := range opts {
		opt(options)
	}

	if strings.EqualFold(filepath.Ext(path), SnapshotExt) {
		return &SnapshotSource{Path: path}
	}
	return &CSVSource{
		Path:      path,
		Columns:   options.Columns,
		StripChar: options.StripChar,
		HasHeader: options.HasHeader,
	}
}
