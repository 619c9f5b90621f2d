package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"f2fpay/internal/domain/facepay/model"
	"f2fpay/internal/domain/facepay/payerr"
)

const defaultErrMsg = "unknown error"

// CreateResult 下单结果
type CreateResult struct {
	CodeURL  string
	PrepayID string
	ErrCode  *string
	ErrMsg   *string
}

// IsSuccess 二维码链接与预支付 ID 均已返回
func (r *CreateResult) IsSuccess() bool {
	return r.CodeURL != "" && r.PrepayID != ""
}

// QueryResult 查单结果，网关未返回或类型不符的字段为 nil
type QueryResult struct {
	TradeState     string
	TradeStateDesc *string
	TransactionID  *string
	OutTradeNo     *string
	BankType       *string
	SuccessTime    *string
	PayType        *string
	TimeEnd        *int64
	ErrCode        *string
	ErrMsg         *string
}

// State 未知状态返回 false
func (r *QueryResult) State() (model.TradeState, bool) {
	return model.ParseTradeState(r.TradeState)
}

func (r *QueryResult) IsFinal() bool {
	s, ok := r.State()
	return ok && s.IsFinal()
}

func (r *QueryResult) IsPaid() bool {
	return r.TradeState == string(model.TradeStateSuccess)
}

func (r *QueryResult) IsFailed() bool {
	s, ok := r.State()
	return ok && s.IsFailed()
}

func (r *QueryResult) IsNotPaid() bool {
	return r.TradeState == string(model.TradeStateNotPay)
}

type envelope map[string]any

// decodeEnvelope 解析响应体并检查 errcode
// JSON 数组按空对象处理，其余非对象响应视为解析失败
func decodeEnvelope(body []byte) (envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	// 第一个 JSON 值之后只允许空白
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errNotObject
	}

	var data envelope
	switch v := raw.(type) {
	case map[string]any:
		data = v
	case []any:
		data = envelope{}
	default:
		return nil, errNotObject
	}

	if code, ok := data.numeric("errcode"); ok && code != 0 {
		msg := defaultErrMsg
		if s := data.str("errmsg"); s != nil {
			msg = *s
		}
		return nil, payerr.Gateway(int(code), msg)
	}
	return data, nil
}

// str 只接受字符串类型
func (e envelope) str(key string) *string {
	v, ok := e[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// numeric 接受 JSON 数字或数字字符串
func (e envelope) numeric(key string) (int64, bool) {
	switch v := e[key].(type) {
	case json.Number:
		return parseNumeric(v.String())
	case string:
		return parseNumeric(strings.TrimSpace(v))
	}
	return 0, false
}

func parseNumeric(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	// ParseFloat 溢出时返回 ±Inf 与 ErrRange，按边界处理
	if math.IsNaN(f) || (err != nil && !math.IsInf(f, 0)) {
		return 0, false
	}
	// 超出 int64 范围时截断到边界，保持符号
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}

func (e envelope) toCreateResult() *CreateResult {
	r := &CreateResult{
		ErrMsg: e.str("errmsg"),
	}
	if s := e.str("code_url"); s != nil {
		r.CodeURL = *s
	}
	if s := e.str("prepay_id"); s != nil {
		r.PrepayID = *s
	}
	switch v := e["errcode"].(type) {
	case string:
		r.ErrCode = &v
	case json.Number:
		code := v.String()
		r.ErrCode = &code
	}
	return r
}

func (e envelope) toQueryResult() *QueryResult {
	r := &QueryResult{
		TradeStateDesc: e.str("trade_state_desc"),
		TransactionID:  e.str("transaction_id"),
		OutTradeNo:     e.str("out_trade_no"),
		BankType:       e.str("bank_type"),
		SuccessTime:    e.str("success_time"),
		PayType:        e.str("pay_type"),
		ErrCode:        e.str("errcode"),
		ErrMsg:         e.str("errmsg"),
	}
	if s := e.str("trade_state"); s != nil {
		r.TradeState = *s
	}
	if n, ok := e.numeric("time_end"); ok {
		r.TimeEnd = &n
	}
	return r
}
