package scoring

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// isBlank nil、空字符串和空列表都视为未作答
func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

// tokens 把答案值转换为可能对应的选项值，布尔值同时对应 yes/no 和 true/false
func tokens(v any) ([]string, bool) {
	switch x := v.(type) {
	case string:
		return []string{strings.TrimSpace(x)}, true
	case bool:
		if x {
			return []string{"yes", "true"}, true
		}
		return []string{"no", "false"}, true
	case json.Number:
		return []string{x.String()}, true
	}
	if d, ok := number(v); ok {
		return []string{d.String()}, true
	}
	return nil, false
}

// selections 展开多选题答案，单个标量视为选了一项，重复的选项只计一次
func selections(v any) ([]string, bool) {
	var raw []any
	switch x := v.(type) {
	case []string:
		for _, s := range x {
			raw = append(raw, s)
		}
	case []any:
		raw = x
	default:
		raw = []any{v}
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		ts, ok := tokens(item)
		if !ok || len(ts) == 0 {
			return nil, false
		}
		key := strings.ToLower(ts[0])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ts[0])
	}
	return out, true
}

// number 解析数值答案，包括以字符串形式提交的数字。NaN 和 ±Inf 不是合法数值
func number(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		if !finite(x) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		if !finite(float64(x)) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		return d, err == nil
	}
	return decimal.Zero, false
}

func findOption(q Question, token string) (Option, bool) {
	for _, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(opt.Value), token) {
			return opt, true
		}
	}
	return Option{}, false
}

func matchOption(q Question, v any) (Option, bool) {
	ts, ok := tokens(v)
	if !ok {
		return Option{}, false
	}
	for _, t := range ts {
		if opt, found := findOption(q, t); found {
			return opt, true
		}
	}
	return Option{}, false
}

// contribution 选项未加权的得分
func (q Question) contribution(opt Option) decimal.Decimal {
	if opt.Score != nil {
		return decimal.NewFromFloat(*opt.Score)
	}
	if q.Type.IsNumeric() {
		if d, err := decimal.NewFromString(strings.TrimSpace(opt.Value)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// numericRange 评分题数值选项的取值范围，没有任何数值选项时 ok 为 false
func (q Question) numericRange() (lo, hi decimal.Decimal, ok bool) {
	for _, opt := range q.Options {
		d, err := decimal.NewFromString(strings.TrimSpace(opt.Value))
		if err != nil {
			continue
		}
		if !ok {
			lo, hi, ok = d, d, true
			continue
		}
		lo = decimal.Min(lo, d)
		hi = decimal.Max(hi, d)
	}
	return lo, hi, ok
}

// integralRating 所有数值选项都是整数时，评分题只接受整数答案
func (q Question) integralRating() bool {
	for _, opt := range q.Options {
		d, err := decimal.NewFromString(strings.TrimSpace(opt.Value))
		if err == nil && !integral(d) {
			return false
		}
	}
	return true
}

func integral(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(0))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
