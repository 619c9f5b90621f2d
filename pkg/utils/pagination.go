package utils

import "strconv"

// Pagination 列表查询的 limit/offset 参数
type Pagination struct {
	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}

// Normalize limit 小于 1 时取 defaultLimit，并限制在 maxLimit 以内，offset 不小于 0
func (p *Pagination) Normalize(defaultLimit, maxLimit int) {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// ClampInt 解析整数参数，非数字取默认值，结果限制在 [min, max]，max 小于 min 时不设上限
func ClampInt(raw string, def, min, max int) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		v = def
	}
	if v < min {
		v = min
	}
	if max >= min && v > max {
		v = max
	}
	return v
}
