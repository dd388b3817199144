package util

import (
	"strconv"
)

// ParseID 解析数字ID，非数字或 0 都视为无效
func ParseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// FormatFloat 导出时使用的分数格式，nil 输出空串
func FormatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
