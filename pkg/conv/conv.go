// Package conv 提供 ID 格式化与 slice 转换等泛型工具，用于简化各模块中的重复逻辑。
package conv

import "strconv"

// FormatID 将 int64 的视频/用户 ID 格式化为十进制字符串（KV 成员名/持久化 key 用）。
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID 解析十进制字符串为 int64 ID。
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ConvertSlice 将 []T 按 convert 转为 []U，convert 返回 false 的元素被跳过。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}
