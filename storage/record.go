package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultStripChar 是金额字符串中默认剔除的货币符号
const DefaultStripChar = '$'

// Record 表示一条竞价记录
// ID 在同一个后端实例中唯一，写入后不可修改
type Record struct {
	ID     string  `json:"id" codec:"id"`
	Title  string  `json:"title" codec:"title"`
	Fund   string  `json:"fund" codec:"fund"`
	Amount float64 `json:"amount" codec:"amount"`
}

// String 方便调试打印，格式与控制台展示一致
func (r Record) String() string {
	return fmt.Sprintf("%s: %s | %s | %s", r.ID, r.Title, strconv.FormatFloat(r.Amount, 'f', -1, 64), r.Fund)
}

// IsZero 判断记录是否为空值
func (r Record) IsZero() bool {
	return r == Record{}
}

// ParseAmount 将货币格式的字符串解析为浮点数
// 参数：
//   - s: 原始字符串，例如 "$1,200.50"
//   - strip: 需要剔除的字符，例如 '$'
//
// 返回：
//   - float64: 解析结果；无法解析时返回 0.0，从不报错
//
// 剔除字符后只解析最长的合法数字前缀，"1,200" 得到 1。
func ParseAmount(s string, strip rune) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, string(strip), ""))
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	prefix := numericPrefix(s)
	if prefix == "" {
		return 0
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}
	return v
}

// numericPrefix 返回形如 [+-]digits[.digits] 的最长前缀
func numericPrefix(s string) string {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		frac := end + 1
		for frac < len(s) && s[frac] >= '0' && s[frac] <= '9' {
			frac++
			digits++
		}
		end = frac
	}
	if digits == 0 {
		return ""
	}
	return strings.TrimSuffix(s[:end], ".")
}

// Field 选择记录中用于排序比较的字段
type Field int

const (
	// FieldTitle 按标题排序（默认）
	FieldTitle Field = iota
	// FieldID 按 ID 排序（字典序）
	FieldID
	// FieldFund 按资金来源排序
	FieldFund
)

// Value 返回记录中该字段的字符串值
func (f Field) Value(r Record) string {
	switch f {
	case FieldID:
		return r.ID
	case FieldFund:
		return r.Fund
	default:
		return r.Title
	}
}

func (f Field) String() string {
	switch f {
	case FieldID:
		return "id"
	case FieldFund:
		return "fund"
	default:
		return "title"
	}
}

// ParseField 将字段名解析为 Field，空字符串表示默认的 title
func ParseField(name string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "title":
		return FieldTitle, nil
	case "id":
		return FieldID, nil
	case "fund":
		return FieldFund, nil
	default:
		return FieldTitle, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}
