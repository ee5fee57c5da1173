package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forever-free1/bidindex/loader"
	"github.com/forever-free1/bidindex/storage"
)

// LoadStats 一次 Load 的统计
type LoadStats struct {
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Rejected   int           `json:"rejected"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Load 从数据源批量写入记录，追加到已有记录之后
// ID 重复与 ID 格式错误的行会被跳过并计数；数据源本身出错时终止，
// 已写入的记录保留。
//
// 参数：
//   - ctx: 取消加载
//   - src: 数据源
//
// 返回：
//   - LoadStats: 统计信息，出错时也有效
//   - error: 数据源错误（ErrSourceUnavailable、*loader.ParseError）或 ctx 错误
func (s *Session) Load(ctx context.Context, src loader.Source) (LoadStats, error) {
	start := time.Now()
	defer s.metrics.observe("load", start)

	var stats LoadStats
	err := src.Each(ctx, func(r storage.Record) error {
		switch err := s.Insert(r); {
		case err == nil:
			stats.Inserted++
		case errors.Is(err, storage.ErrDuplicateID):
			stats.Duplicates++
			s.logger.Warn("skipping duplicate id", "id", r.ID)
		case errors.Is(err, storage.ErrKeyFormat):
			stats.Rejected++
			s.logger.Warn("skipping row", "id", r.ID, "error", err)
		default:
			return err
		}
		return nil
	})
	stats.Elapsed = time.Since(start)

	s.metrics.countLoad("inserted", stats.Inserted)
	s.metrics.countLoad("duplicate", stats.Duplicates)
	s.metrics.countLoad("rejected", stats.Rejected)

	if err != nil {
		s.logger.Error("load aborted", "inserted", stats.Inserted, "error", err)
		return stats, fmt.Errorf("load: %w", err)
	}
	s.logger.Info("load complete",
		"backend", s.typ,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"rejected", stats.Rejected,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}
