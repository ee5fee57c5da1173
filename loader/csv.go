package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/forever-free1/bidindex/storage"
)

// CSVSource 从 CSV 文件读取记录
type CSVSource struct {
	Path      string
	Columns   Columns
	StripChar rune
	HasHeader bool

	header []string
}

// Header 返回最近一次 Each 读到的表头，没有表头时为 nil
func (s *CSVSource) Header() []string {
	return s.header
}

// Each 逐行解析并回调
// 参数：
//   - ctx: 每行之前检查一次
//   - fn: 记录回调
//
// 返回：
//   - error: 打开失败返回包装后的 ErrSourceUnavailable，格式错误返回 *ParseError
func (s *CSVSource) Each(ctx context.Context, fn func(storage.Record) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	s.header = nil
	if s.HasHeader {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return csvError(err)
		}
		s.header = append([]string(nil), row...)
	}

	width := s.Columns.width()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return csvError(err)
		}
		if len(row) < width {
			line, _ := r.FieldPos(0)
			return &ParseError{Line: line, Err: fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(row), width)}
		}

		rec := storage.Record{
			ID:     row[s.Columns.ID],
			Title:  row[s.Columns.Title],
			Fund:   row[s.Columns.Fund],
			Amount: storage.ParseAmount(row[s.Columns.Amount], s.StripChar),
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

var _ Source = (*CSVSource)(nil)
