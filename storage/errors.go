package storage

import "errors"

// ErrKeyNotFound 表示键不存在的错误
var ErrKeyNotFound = errors.New("key not found")

// ErrKeyFormat 表示 ID 无法解释为非负整数（仅哈希索引会返回）
var ErrKeyFormat = errors.New("key is not a non-negative integer")

// ErrDuplicateID 表示同一会话中已存在相同 ID 的记录
var ErrDuplicateID = errors.New("duplicate record id")

// ErrUnsupported 表示当前后端不支持该操作
var ErrUnsupported = errors.New("operation not supported by backend")

// ErrUnknownField 表示无法识别的排序字段
var ErrUnknownField = errors.New("unknown record field")
