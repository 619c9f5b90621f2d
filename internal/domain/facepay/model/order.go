package model

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	baseModel "f2fpay/pkg/model"
)

const (
	DefaultCurrency = "CNY"

	MaxOutTradeNoLen = 64
	MaxBodyLen       = 128
)

// ErrInvalidArgument 字段不满足实体约束
var ErrInvalidArgument = errors.New("invalid order field")

// Order 面对面收款订单
type Order struct {
	baseModel.BaseModel
	OutTradeNo string  `gorm:"size:64;uniqueIndex;not null" json:"outTradeNo"`
	AppID      string  `gorm:"size:32" json:"appId"`
	MchID      string  `gorm:"size:32" json:"mchId"`
	TotalFee   int64   `gorm:"not null" json:"totalFee"` // 分
	Currency   string  `gorm:"size:8;not null" json:"currency"`
	Body       string  `gorm:"size:128;not null" json:"body"`
	OpenID     *string `gorm:"size:64" json:"openId,omitempty"`
	Attach     *string `gorm:"size:127" json:"attach,omitempty"`
	GoodsTag   *string `gorm:"size:32" json:"goodsTag,omitempty"`
	LimitPay   *string `gorm:"size:32" json:"limitPay,omitempty"`

	// 网关回填
	CodeURL       *string `gorm:"size:512" json:"codeUrl,omitempty"`
	PrepayID      *string `gorm:"size:64;index" json:"prepayId,omitempty"`
	TransactionID *string `gorm:"size:64;index" json:"transactionId,omitempty"`
	BankType      *string `gorm:"size:32" json:"bankType,omitempty"`
	PayType       *string `gorm:"size:16" json:"payType,omitempty"`
	SuccessTime   *string `gorm:"size:32" json:"successTime,omitempty"`
	TimeEnd       *int64  `json:"timeEnd,omitempty"`
	ErrCode       *string `gorm:"size:32" json:"errCode,omitempty"`
	ErrMsg        *string `gorm:"size:512" json:"errMsg,omitempty"`

	TradeState     TradeState `gorm:"size:32;not null;index:idx_f2f_state_expire,priority:1" json:"tradeState"`
	TradeStateDesc *string    `gorm:"size:256" json:"tradeStateDesc,omitempty"`

	ExpireTime *int64 `gorm:"index:idx_f2f_state_expire,priority:2" json:"expireTime,omitempty"` // unix 秒
	UserID     *int64 `gorm:"index" json:"userId,omitempty"`
}

func (Order) TableName() string {
	return "face_to_face_orders"
}

// NewOrder 创建未支付订单
func NewOrder(outTradeNo string, totalFee int64, body string) *Order {
	o := &Order{
		OutTradeNo: outTradeNo,
		TotalFee:   totalFee,
		Currency:   DefaultCurrency,
		Body:       body,
		TradeState: TradeStateNotPay,
	}
	o.Touch(time.Now())
	return o
}

// SetOutTradeNo 商户订单号一经设置不可修改
func (o *Order) SetOutTradeNo(outTradeNo string) error {
	if o.OutTradeNo != "" && o.OutTradeNo != outTradeNo {
		return fmt.Errorf("%w: out_trade_no is immutable", ErrInvalidArgument)
	}
	o.OutTradeNo = outTradeNo
	return nil
}

func (o *Order) SetTotalFee(totalFee int64) error {
	if totalFee < 0 {
		return fmt.Errorf("%w: total fee cannot be negative", ErrInvalidArgument)
	}
	o.TotalFee = totalFee
	return nil
}

func (o *Order) SetExpireTime(expireTime *int64) error {
	if expireTime != nil && *expireTime < 0 {
		return fmt.Errorf("%w: expire time cannot be negative", ErrInvalidArgument)
	}
	o.ExpireTime = expireTime
	return nil
}

func (o *Order) SetTimeEnd(timeEnd *int64) error {
	if timeEnd != nil && *timeEnd < 0 {
		return fmt.Errorf("%w: time end cannot be negative", ErrInvalidArgument)
	}
	o.TimeEnd = timeEnd
	return nil
}

func (o *Order) SetUserID(userID *int64) error {
	if userID != nil && *userID <= 0 {
		return fmt.Errorf("%w: user id must be positive", ErrInvalidArgument)
	}
	o.UserID = userID
	return nil
}

// Validate 检查长度等字段约束，金额与描述的业务校验由服务层负责
func (o *Order) Validate() error {
	if utf8.RuneCountInString(o.OutTradeNo) > MaxOutTradeNoLen {
		return fmt.Errorf("%w: out_trade_no longer than %d", ErrInvalidArgument, MaxOutTradeNoLen)
	}
	if utf8.RuneCountInString(o.Body) > MaxBodyLen {
		return fmt.Errorf("%w: body longer than %d", ErrInvalidArgument, MaxBodyLen)
	}
	if o.TotalFee < 0 {
		return fmt.Errorf("%w: total fee cannot be negative", ErrInvalidArgument)
	}
	if len(o.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidArgument)
	}
	if o.ExpireTime != nil && *o.ExpireTime < 0 {
		return fmt.Errorf("%w: expire time cannot be negative", ErrInvalidArgument)
	}
	if o.UserID != nil && *o.UserID <= 0 {
		return fmt.Errorf("%w: user id must be positive", ErrInvalidArgument)
	}
	return nil
}

// TradeStateEnum 未知状态返回 false
func (o *Order) TradeStateEnum() (TradeState, bool) {
	return ParseTradeState(string(o.TradeState))
}

func (o *Order) IsTradeStateFinal() bool {
	s, ok := o.TradeStateEnum()
	return ok && s.IsFinal()
}

func (o *Order) IsTradeStateSuccess() bool {
	s, ok := o.TradeStateEnum()
	return ok && s.IsSuccess()
}

func (o *Order) IsTradeStateFailed() bool {
	s, ok := o.TradeStateEnum()
	return ok && s.IsFailed()
}

func (o *Order) IsUnpaid() bool {
	return o.TradeState == TradeStateNotPay
}

func (o *Order) IsUserPaying() bool {
	return o.TradeState == TradeStateUserPaying
}

// IsExpired 未设置失效时间的订单永不过期
func (o *Order) IsExpired(now time.Time) bool {
	return o.ExpireTime != nil && *o.ExpireTime <= now.Unix()
}

// BelongsTo 订单未绑定用户时对所有用户可见
func (o *Order) BelongsTo(userID int64) bool {
	return o.UserID == nil || *o.UserID == userID
}
