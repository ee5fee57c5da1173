package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/forever-free1/bidindex/storage"
)

const (
	// SnapshotExt 是快照文件的扩展名
	SnapshotExt = ".snap"

	snapshotMagic   = "BIDS"
	snapshotVersion = 1
)

// snapshotHeader 写在每个快照流的开头
type snapshotHeader struct {
	Magic   string `codec:"magic"`
	Version int    `codec:"version"`
	Count   int    `codec:"count"`
}

// WriteSnapshot 把记录写成 snappy 分帧压缩的 msgpack 流
// 格式：头部 {magic, version, count}，随后是 count 条记录
// 不会关闭 w
func WriteSnapshot(w io.Writer, records []storage.Record) error {
	sw := snappy.NewBufferedWriter(w)
	enc := codec.NewEncoder(sw, &codec.MsgpackHandle{})

	header := snapshotHeader{Magic: snapshotMagic, Version: snapshotVersion, Count: len(records)}
	if err := enc.Encode(&header); err != nil {
		return fmt.Errorf("encode snapshot header: %w", err)
	}
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("encode record %q: %w", records[i].ID, err)
		}
	}
	return sw.Close()
}

// WriteSnapshotFile 创建（或覆盖）快照文件
func WriteSnapshotFile(path string, records []storage.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := WriteSnapshot(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SnapshotSource 读取 WriteSnapshot 写出的文件
type SnapshotSource struct {
	Path string
}

// Each 按写入顺序回调每条记录
// ParseError.Line 为记录序号（从 1 开始），头部错误时为 0
func (s *SnapshotSource) Each(ctx context.Context, fn func(storage.Record) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	dec := codec.NewDecoder(snappy.NewReader(f), &codec.MsgpackHandle{})

	var header snapshotHeader
	if err := dec.Decode(&header); err != nil {
		return &ParseError{Err: fmt.Errorf("%w: %w", ErrBadSnapshot, err)}
	}
	if header.Magic != snapshotMagic || header.Version != snapshotVersion {
		return &ParseError{Err: fmt.Errorf("%w: magic %q version %d", ErrBadSnapshot, header.Magic, header.Version)}
	}

	for i := 0; i < header.Count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var rec storage.Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return &ParseError{Line: i + 1, Err: err}
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

var _ Source = (*SnapshotSource)(nil)
