package model

// TradeState 网关交易状态
type TradeState string

const (
	TradeStateNotPay     TradeState = "NOTPAY"     // 未支付
	TradeStateSuccess    TradeState = "SUCCESS"    // 支付成功
	TradeStateRefund     TradeState = "REFUND"     // 转入退款
	TradeStateNotPayNot  TradeState = "NOTPAYNOT"  // 未支付超时已关闭
	TradeStateClosed     TradeState = "CLOSED"     // 已关闭
	TradeStatePayError   TradeState = "PAYERROR"   // 支付失败
	TradeStateUserPaying TradeState = "USERPAYING" // 用户支付中
)

var allTradeStates = []TradeState{
	TradeStateNotPay,
	TradeStateSuccess,
	TradeStateRefund,
	TradeStateNotPayNot,
	TradeStateClosed,
	TradeStatePayError,
	TradeStateUserPaying,
}

// AllTradeStates 返回全部交易状态
func AllTradeStates() []TradeState {
	states := make([]TradeState, len(allTradeStates))
	copy(states, allTradeStates)
	return states
}

// ParseTradeState 未知取值返回 false
func ParseTradeState(s string) (TradeState, bool) {
	ts := TradeState(s)
	if !ts.Valid() {
		return "", false
	}
	return ts, true
}

func (s TradeState) Valid() bool {
	switch s {
	case TradeStateNotPay, TradeStateSuccess, TradeStateRefund, TradeStateNotPayNot,
		TradeStateClosed, TradeStatePayError, TradeStateUserPaying:
		return true
	}
	return false
}

func (s TradeState) String() string {
	return string(s)
}

// IsFinal 是否为终态
// NOTPAYNOT 虽表示超时关闭，网关侧仍按非终态处理，这里保持一致
func (s TradeState) IsFinal() bool {
	switch s {
	case TradeStateSuccess, TradeStateRefund, TradeStateClosed, TradeStatePayError:
		return true
	}
	return false
}

func (s TradeState) IsSuccess() bool {
	return s == TradeStateSuccess
}

// IsFailed 不包含 NOTPAYNOT
func (s TradeState) IsFailed() bool {
	return s == TradeStateClosed || s == TradeStatePayError
}

// Label 中文描述
func (s TradeState) Label() string {
	switch s {
	case TradeStateNotPay:
		return "未支付"
	case TradeStateSuccess:
		return "支付成功"
	case TradeStateRefund:
		return "转入退款"
	case TradeStateNotPayNot:
		return "未支付超时已关闭"
	case TradeStateClosed:
		return "已关闭"
	case TradeStatePayError:
		return "支付失败"
	case TradeStateUserPaying:
		return "用户支付中"
	}
	return ""
}

// Badge 前端展示用的徽章类型
func (s TradeState) Badge() string {
	switch s {
	case TradeStateNotPay:
		return "secondary"
	case TradeStateUserPaying:
		return "info"
	case TradeStateSuccess:
		return "success"
	case TradeStateRefund:
		return "warning"
	case TradeStateClosed, TradeStateNotPayNot, TradeStatePayError:
		return "danger"
	}
	return ""
}
