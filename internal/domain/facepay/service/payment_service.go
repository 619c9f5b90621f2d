package service

import (
	"context"
	"time"

	"f2fpay/internal/domain/facepay/gateway"
	"f2fpay/internal/domain/facepay/model"
	"f2fpay/internal/domain/facepay/payerr"
	"f2fpay/internal/domain/facepay/repository"
	"f2fpay/pkg/logger"
	"f2fpay/pkg/metrics"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultPollMaxAttempts = 30
	DefaultPollInterval    = 2

	closedDesc = "订单已关闭"
)

// Gateway 面对面收款网关，*gateway.Client 实现该接口
type Gateway interface {
	CreateOrder(ctx context.Context, order *model.Order) (*gateway.CreateResult, error)
	QueryOrder(ctx context.Context, outTradeNo string) (*gateway.QueryResult, error)
	CloseOrder(ctx context.Context, outTradeNo string) error
}

type PaymentService interface {
	CreateOrder(ctx context.Context, order *model.Order) (*gateway.CreateResult, error)
	QueryOrder(ctx context.Context, outTradeNo string) (*gateway.QueryResult, error)
	CloseOrder(ctx context.Context, outTradeNo string) error
	PollOrderStatus(ctx context.Context, outTradeNo string, maxAttempts, intervalSeconds int) (*gateway.QueryResult, error)

	GetOrder(ctx context.Context, outTradeNo string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error)
	FindExpiredOrders(ctx context.Context) ([]model.Order, error)
	FindUnpaidOrders(ctx context.Context, window time.Duration) ([]model.Order, error)
}

// SleepFunc 可被 ctx 打断的等待
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*paymentService)

func WithLogger(l *zap.Logger) Option {
	return func(s *paymentService) {
		s.l = l
	}
}

func WithKeyLocker(locker KeyLocker) Option {
	return func(s *paymentService) {
		s.locker = locker
	}
}

func WithSleep(sleep SleepFunc) Option {
	return func(s *paymentService) {
		s.sleep = sleep
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *paymentService) {
		s.now = now
	}
}

func WithMetrics(m *metrics.MetricsCollector) Option {
	return func(s *paymentService) {
		s.metrics = m
	}
}

// WithMerchant 下单时写入订单的商户凭证
func WithMerchant(appID, mchID string) Option {
	return func(s *paymentService) {
		s.appID = appID
		s.mchID = mchID
	}
}

type paymentService struct {
	store   repository.OrderStore
	gw      Gateway
	locker  KeyLocker
	sleep   SleepFunc
	now     func() time.Time
	metrics *metrics.MetricsCollector
	l       *zap.Logger

	appID string
	mchID string
}

func NewPaymentService(store repository.OrderStore, gw Gateway, opts ...Option) PaymentService {
	s := &paymentService{
		store:  store,
		gw:     gw,
		locker: NewMemoryKeyLocker(),
		sleep:  sleepContext,
		now:    time.Now,
		l:      logger.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder 校验、落库后向网关下单，成功后回填二维码链接与预支付 ID
func (s *paymentService) CreateOrder(ctx context.Context, order *model.Order) (*gateway.CreateResult, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, order.OutTradeNo)
	if err != nil {
		return nil, errors.WithMessage(err, "创建订单失败")
	}
	defer unlock()

	existing, err := s.store.FindByOutTradeNo(ctx, order.OutTradeNo)
	if err != nil {
		return nil, errors.WithMessage(err, "创建订单失败")
	}
	if existing != nil {
		return nil, payerr.Validation(payerr.CodeDuplicateOrder, "订单号已存在")
	}

	if s.appID != "" {
		order.AppID = s.appID
	}
	if s.mchID != "" {
		order.MchID = s.mchID
	}
	if order.TradeState == "" {
		order.TradeState = model.TradeStateNotPay
	}
	order.Touch(s.now())

	if err := s.store.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			return nil, payerr.Validation(payerr.CodeDuplicateOrder, "订单号已存在")
		}
		return nil, errors.WithMessage(err, "创建订单失败")
	}
	// 落库后由唯一索引兜底，网关调用期间不再持锁
	unlock()

	res, err := s.gw.CreateOrder(ctx, order)
	if err != nil {
		s.l.Error("面对面收款订单创建失败",
			zap.String("out_trade_no", order.OutTradeNo),
			zap.Error(err),
		)
		return nil, errors.WithMessage(err, "创建订单失败")
	}

	order.CodeURL = optional(res.CodeURL)
	order.PrepayID = optional(res.PrepayID)
	order.Touch(s.now())
	if err := s.store.Save(ctx, order); err != nil {
		return nil, errors.WithMessage(err, "保存订单失败")
	}

	s.l.Info("面对面收款订单创建成功",
		zap.String("out_trade_no", order.OutTradeNo),
		zap.String("prepay_id", res.PrepayID),
	)
	return res, nil
}

// validateOrder 依次检查订单号、金额、商品描述
func validateOrder(order *model.Order) error {
	if order == nil || order.OutTradeNo == "" {
		return payerr.Validation(payerr.CodeEmptyOutTradeNo, "商户订单号不能为空")
	}
	if order.TotalFee <= 0 {
		return payerr.Validation(payerr.CodeInvalidTotalFee, "支付金额必须大于0")
	}
	if order.Body == "" {
		return payerr.Validation(payerr.CodeEmptyBody, "商品描述不能为空")
	}
	if order.Currency == "" {
		order.Currency = model.DefaultCurrency
	}
	if err := order.Validate(); err != nil {
		return &payerr.Error{Kind: payerr.KindValidation, Code: payerr.CodeInvalidOrder, Message: "订单参数不合法", Err: err}
	}
	return nil
}

// QueryOrder 每次都请求网关，并用结果覆盖本地订单状态
func (s *paymentService) QueryOrder(ctx context.Context, outTradeNo string) (*gateway.QueryResult, error) {
	res, err := s.gw.QueryOrder(ctx, outTradeNo)
	if err != nil {
		s.l.Error("查询面对面收款订单失败",
			zap.String("out_trade_no", outTradeNo),
			zap.Error(err),
		)
		return nil, errors.WithMessage(err, "查询订单失败")
	}

	order, err := s.store.FindByOutTradeNo(ctx, outTradeNo)
	if err != nil {
		return nil, errors.WithMessage(err, "查询订单失败")
	}
	if order == nil {
		return res, nil
	}

	if err := applyQueryResult(order, res); err != nil {
		return nil, errors.WithMessage(err, "查询订单失败")
	}
	order.Touch(s.now())
	if err := s.store.Save(ctx, order); err != nil {
		return nil, errors.WithMessage(err, "保存订单失败")
	}
	return res, nil
}

// applyQueryResult 校验失败时订单保持原样
func applyQueryResult(order *model.Order, res *gateway.QueryResult) error {
	// SetTimeEnd 是唯一会拒绝的字段，放在最前面
	if err := order.SetTimeEnd(res.TimeEnd); err != nil {
		return err
	}

	// 网关未返回状态时保留本地状态，避免写入空值
	if res.TradeState != "" {
		order.TradeState = model.TradeState(res.TradeState)
	}
	order.TradeStateDesc = res.TradeStateDesc
	order.TransactionID = res.TransactionID
	order.BankType = res.BankType
	order.SuccessTime = res.SuccessTime
	order.PayType = res.PayType

	if res.ErrCode != nil {
		order.ErrCode = res.ErrCode
		order.ErrMsg = res.ErrMsg
	}
	return nil
}

func (s *paymentService) CloseOrder(ctx context.Context, outTradeNo string) error {
	if err := s.gw.CloseOrder(ctx, outTradeNo); err != nil {
		s.l.Error("关闭面对面收款订单失败",
			zap.String("out_trade_no", outTradeNo),
			zap.Error(err),
		)
		return errors.WithMessage(err, "关闭订单失败")
	}

	order, err := s.store.FindByOutTradeNo(ctx, outTradeNo)
	if err != nil {
		return errors.WithMessage(err, "关闭订单失败")
	}
	if order != nil {
		desc := closedDesc
		order.TradeState = model.TradeStateClosed
		order.TradeStateDesc = &desc
		order.Touch(s.now())
		if err := s.store.Save(ctx, order); err != nil {
			return errors.WithMessage(err, "保存订单失败")
		}
	}

	s.l.Info("面对面收款订单关闭成功", zap.String("out_trade_no", outTradeNo))
	return nil
}

// PollOrderStatus 轮询直到终态，最后一次查询后不再等待
func (s *paymentService) PollOrderStatus(ctx context.Context, outTradeNo string, maxAttempts, intervalSeconds int) (*gateway.QueryResult, error) {
	if maxAttempts <= 0 || intervalSeconds <= 0 {
		return nil, payerr.Validation(payerr.CodeInvalidPollArgs, "轮询次数与间隔必须大于0")
	}
	interval := time.Duration(intervalSeconds) * time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			s.metrics.RecordPollResult("canceled")
			return nil, errors.WithMessage(err, "轮询订单状态中断")
		}

		res, err := s.QueryOrder(ctx, outTradeNo)
		if err != nil {
			s.metrics.RecordPollResult("error")
			return nil, err
		}
		if res.IsFinal() {
			s.metrics.RecordPollResult("final")
			return res, nil
		}

		if attempt < maxAttempts {
			if err := s.sleep(ctx, interval); err != nil {
				s.metrics.RecordPollResult("canceled")
				return nil, errors.WithMessage(err, "轮询订单状态中断")
			}
		}
	}

	s.metrics.RecordPollResult("timeout")
	s.l.Warn("轮询订单状态超时",
		zap.String("out_trade_no", outTradeNo),
		zap.Int("max_attempts", maxAttempts),
	)
	return nil, payerr.PollTimeout("订单状态查询超时")
}

// GetOrder 只读本地订单，不请求网关
func (s *paymentService) GetOrder(ctx context.Context, outTradeNo string) (*model.Order, error) {
	order, err := s.store.FindByOutTradeNo(ctx, outTradeNo)
	if err != nil {
		return nil, errors.WithMessage(err, "获取订单失败")
	}
	if order == nil {
		return nil, payerr.NotFound("订单不存在")
	}
	return order, nil
}

func (s *paymentService) ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	orders, err := s.store.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, errors.WithMessage(err, "获取订单列表失败")
	}
	return orders, nil
}

func (s *paymentService) FindExpiredOrders(ctx context.Context) ([]model.Order, error) {
	return s.store.FindExpiredUnclosed(ctx, s.now())
}

func (s *paymentService) FindUnpaidOrders(ctx context.Context, window time.Duration) ([]model.Order, error) {
	return s.store.FindUnpaidWithinWindow(ctx, s.now(), window)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
