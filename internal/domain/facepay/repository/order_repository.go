package repository

import (
	"context"
	"errors"
	"time"

	"f2fpay/internal/domain/facepay/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000

	defaultUnpaidWindow = 10 * time.Minute

	pgUniqueViolation = "23505"
)

// ErrDuplicateOrder 商户订单号已存在
var ErrDuplicateOrder = errors.New("duplicate out_trade_no")

// OrderStore 订单持久化
// 单条查询未命中时返回 (nil, nil)
type OrderStore interface {
	FindByOutTradeNo(ctx context.Context, outTradeNo string) (*model.Order, error)
	Create(ctx context.Context, order *model.Order) error
	Save(ctx context.Context, order *model.Order) error
	FindExpiredUnclosed(ctx context.Context, now time.Time) ([]model.Order, error)
	FindUnpaidWithinWindow(ctx context.Context, now time.Time, window time.Duration) ([]model.Order, error)
	FindByUserID(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Order, error)
	FindByPrepayID(ctx context.Context, prepayID string) (*model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderStore {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByOutTradeNo(ctx context.Context, outTradeNo string) (*model.Order, error) {
	return r.first(ctx, "out_trade_no = ?", outTradeNo)
}

func (r *orderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*model.Order, error) {
	return r.first(ctx, "transaction_id = ?", transactionID)
}

func (r *orderRepository) FindByPrepayID(ctx context.Context, prepayID string) (*model.Order, error) {
	return r.first(ctx, "prepay_id = ?", prepayID)
}

func (r *orderRepository) first(ctx context.Context, query string, arg any) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where(query, arg).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOrder
		}
		return err
	}
	return nil
}

func (r *orderRepository) Save(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// FindExpiredUnclosed 已过期但仍未支付的订单
func (r *orderRepository) FindExpiredUnclosed(ctx context.Context, now time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("trade_state = ?", model.TradeStateNotPay).
		Where("expire_time IS NOT NULL AND expire_time <= ?", now.Unix()).
		Order("expire_time ASC").
		Find(&orders).Error
	return orders, err
}

// FindUnpaidWithinWindow 未支付且过期时间晚于 now-window 的订单，按创建时间升序
// window 非正时取 10 分钟
func (r *orderRepository) FindUnpaidWithinWindow(ctx context.Context, now time.Time, window time.Duration) ([]model.Order, error) {
	if window <= 0 {
		window = defaultUnpaidWindow
	}
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("trade_state = ?", model.TradeStateNotPay).
		Where("expire_time IS NULL OR expire_time > ?", now.Add(-window).Unix()).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) FindByUserID(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, err
}

// isDuplicateKey 兼容开启 TranslateError 与直接返回驱动错误两种情况
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
