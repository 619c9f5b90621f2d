// Package payerr 面对面收款统一错误类型
package payerr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation 调用方参数非法或订单号重复，不可重试
	KindValidation
	// KindGateway 网关返回非零 errcode
	KindGateway
	// KindTransport 网络、超时、响应解析失败
	KindTransport
	// KindPollTimeout 轮询次数用尽仍未到达终态
	KindPollTimeout
	// KindNotFound 本地订单不存在
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindGateway:
		return "gateway"
	case KindTransport:
		return "transport"
	case KindPollTimeout:
		return "poll_timeout"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// 校验类错误码
const (
	CodeEmptyOutTradeNo = 40001
	CodeInvalidTotalFee = 40002
	CodeEmptyBody       = 40003
	CodeDuplicateOrder  = 40004
	CodeInvalidPollArgs = 40005
	CodeInvalidOrder    = 40006
	CodeOrderNotFound   = 40401
)

// Error 携带类别、机器错误码与提示信息
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode 网关错误码为 0 时视为无错误码
func (e *Error) HasCode() bool {
	return e.Code != 0
}

func Validation(code int, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func Gateway(code int, msg string) *Error {
	return &Error{Kind: KindGateway, Code: code, Message: msg}
}

func Transport(msg string, err error) *Error {
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

func PollTimeout(msg string) *Error {
	return &Error{Kind: KindPollTimeout, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeOrderNotFound, Message: msg}
}

// As 从错误链中取出 *Error
func As(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf 返回错误链中第一个 *Error 的类别
func KindOf(err error) Kind {
	if pe, ok := As(err); ok {
		return pe.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsGateway(err error) bool     { return KindOf(err) == KindGateway }
func IsTransport(err error) bool   { return KindOf(err) == KindTransport }
func IsPollTimeout(err error) bool { return KindOf(err) == KindPollTimeout }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }

// IsDuplicate 订单号重复
func IsDuplicate(err error) bool {
	pe, ok := As(err)
	return ok && pe.Kind == KindValidation && pe.Code == CodeDuplicateOrder
}
