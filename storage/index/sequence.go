package index

import (
	"iter"
	"strings"

	"github.com/forever-free1/bidindex/storage"
)

// SequenceIndex 是基于切片的顺序表
// 保留插入顺序，提供选择排序与快速排序，不提供按键查找与删除
type SequenceIndex struct {
	records []storage.Record
}

// NewSequenceIndex 创建一个空的顺序表
func NewSequenceIndex() *SequenceIndex {
	return &SequenceIndex{}
}

// Append 将记录追加到末尾，均摊 O(1)
func (s *SequenceIndex) Append(r storage.Record) {
	s.records = append(s.records, r)
}

// Insert 等价于 Append，总是成功
func (s *SequenceIndex) Insert(r storage.Record) error {
	s.Append(r)
	return nil
}

// At 返回第 i 条记录
func (s *SequenceIndex) At(i int) storage.Record {
	return s.records[i]
}

// All 按当前顺序返回全部记录
func (s *SequenceIndex) All() iter.Seq[storage.Record] {
	return func(yield func(storage.Record) bool) {
		for _, r := range s.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Size 返回记录数量
func (s *SequenceIndex) Size() int {
	return len(s.records)
}

// Close 释放底层切片
func (s *SequenceIndex) Close() {
	s.records = nil
}

// SortBySelection 按字段原地选择排序（升序）
// 每一轮在未排序后缀中找到最小值（相等时取最早出现者）并交换到位置 i。
// 时间 O(n²)，额外空间 O(1)，不稳定。
func (s *SequenceIndex) SortBySelection(f storage.Field) {
	n := len(s.records)
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < n; j++ {
			if strings.Compare(f.Value(s.records[j]), f.Value(s.records[minIdx])) < 0 {
				minIdx = j
			}
		}
		if minIdx != i {
			s.records[i], s.records[minIdx] = s.records[minIdx], s.records[i]
		}
	}
}

// SortByQuick 按字段原地快速排序（升序）
// 平均 O(n log n)，最坏 O(n²)
func (s *SequenceIndex) SortByQuick(f storage.Field) {
	s.quickSort(f, 0, len(s.records)-1)
}

func (s *SequenceIndex) quickSort(f storage.Field, begin, end int) {
	if begin >= end {
		return
	}
	mid := s.partition(f, begin, end)
	s.quickSort(f, begin, mid)
	s.quickSort(f, mid+1, end)
}

// partition 对 [begin, end] 做 Hoare 划分，返回右游标作为分割点
// 基准值在扫描前取出，之后元素交换不会改变它
func (s *SequenceIndex) partition(f storage.Field, begin, end int) int {
	low, high := begin, end
	pivot := f.Value(s.records[begin+(end-begin)/2])

	for {
		for strings.Compare(f.Value(s.records[low]), pivot) < 0 {
			low++
		}
		for strings.Compare(pivot, f.Value(s.records[high])) < 0 {
			high--
		}
		if low >= high {
			return high
		}
		s.records[low], s.records[high] = s.records[high], s.records[low]
		low++
		high--
	}
}

var (
	_ Index  = (*SequenceIndex)(nil)
	_ Sorter = (*SequenceIndex)(nil)
)
