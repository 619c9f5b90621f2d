package gateway

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sign 生成请求签名
// 签名算法:
// 1. 去掉值为 nil 或空字符串的参数
// 2. 参数名按 ASCII 升序排序
// 3. 拼接为 key1=value1&key2=value2，值保持原文不转义
// 4. 末尾追加 &key=密钥
// 5. MD5 后转大写
func Sign(params map[string]any, secretKey string) string {
	keys := make([]string, 0, len(params))
	values := make(map[string]string, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		s := formatValue(v)
		if s == "" {
			continue
		}
		keys = append(keys, k)
		values[k] = s
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString("&")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(values[k])
	}
	builder.WriteString("&key=")
	builder.WriteString(secretKey)

	hash := md5.Sum([]byte(builder.String()))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

// Verify 验证签名，params 中的 sign 字段不参与计算
func Verify(params map[string]any, secretKey, sign string) bool {
	filtered := make(map[string]any, len(params))
	for k, v := range params {
		if k == "sign" {
			continue
		}
		filtered[k] = v
	}
	return strings.EqualFold(Sign(filtered, secretKey), sign)
}

// formatValue 按表单编码的习惯把标量转成字符串，布尔值写作 1/0
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
