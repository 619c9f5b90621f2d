package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"f2fpay/internal/domain/facepay/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:f2f_orders_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Order{}))
	return db
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func TestOrderRepository_CreateAndFind(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	order := model.NewOrder("T1", 100, "coffee")
	order.PrepayID = strPtr("wx_prepay_1")
	order.TransactionID = strPtr("4200001")
	require.NoError(t, repo.Create(ctx, order))
	assert.NotEmpty(t, order.ID)

	t.Run("by out_trade_no", func(t *testing.T) {
		got, err := repo.FindByOutTradeNo(ctx, "T1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, int64(100), got.TotalFee)
		assert.Equal(t, model.TradeStateNotPay, got.TradeState)
	})

	t.Run("by prepay id", func(t *testing.T) {
		got, err := repo.FindByPrepayID(ctx, "wx_prepay_1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "T1", got.OutTradeNo)
	})

	t.Run("by transaction id", func(t *testing.T) {
		got, err := repo.FindByTransactionID(ctx, "4200001")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "T1", got.OutTradeNo)
	})

	t.Run("absent returns nil without error", func(t *testing.T) {
		got, err := repo.FindByOutTradeNo(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestOrderRepository_Save(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	order := model.NewOrder("T2", 200, "tea")
	require.NoError(t, repo.Create(ctx, order))

	order.TradeState = model.TradeStateSuccess
	order.TradeStateDesc = strPtr("支付成功")
	order.TimeEnd = int64Ptr(1704074400)
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.FindByOutTradeNo(ctx, "T2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.TradeStateSuccess, got.TradeState)
	assert.Equal(t, "支付成功", *got.TradeStateDesc)
	assert.Equal(t, int64(1704074400), *got.TimeEnd)
}

func TestOrderRepository_CreateDuplicate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "face_to_face_orders"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err = NewOrderRepository(db).Create(context.Background(), model.NewOrder("T1", 100, "coffee"))
	assert.ErrorIs(t, err, ErrDuplicateOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isDuplicateKey(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicateKey(errors.New("boom")))
}

func TestOrderRepository_FindExpiredUnclosed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	seed := []struct {
		no     string
		state  model.TradeState
		expire *int64
	}{
		{"expired", model.TradeStateNotPay, int64Ptr(now.Unix() - 60)},
		{"expires-now", model.TradeStateNotPay, int64Ptr(now.Unix())},
		{"future", model.TradeStateNotPay, int64Ptr(now.Unix() + 60)},
		{"no-expire", model.TradeStateNotPay, nil},
		{"paid-expired", model.TradeStateSuccess, int64Ptr(now.Unix() - 60)},
	}
	for _, s := range seed {
		o := model.NewOrder(s.no, 1, "b")
		o.TradeState = s.state
		o.ExpireTime = s.expire
		require.NoError(t, repo.Create(ctx, o))
	}

	orders, err := repo.FindExpiredUnclosed(ctx, now)
	require.NoError(t, err)
	var nos []string
	for _, o := range orders {
		nos = append(nos, o.OutTradeNo)
	}
	assert.ElementsMatch(t, []string{"expired", "expires-now"}, nos)
}

func TestOrderRepository_FindUnpaidWithinWindow(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	seed := []struct {
		no     string
		state  model.TradeState
		expire *int64
	}{
		{"recent", model.TradeStateNotPay, int64Ptr(now.Unix() - 60)},
		{"stale", model.TradeStateNotPay, int64Ptr(now.Unix() - 3600)},
		{"open", model.TradeStateNotPay, nil},
		{"closed", model.TradeStateClosed, nil},
	}
	for i, s := range seed {
		o := model.NewOrder(s.no, 1, "b")
		o.TradeState = s.state
		o.ExpireTime = s.expire
		o.CreatedAt = now.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, o))
	}

	orders, err := repo.FindUnpaidWithinWindow(ctx, now, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "recent", orders[0].OutTradeNo)
	assert.Equal(t, "open", orders[1].OutTradeNo)

	// 非正窗口回退到默认值
	orders, err = repo.FindUnpaidWithinWindow(ctx, now, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestOrderRepository_FindByUserID(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for i := 0; i < 5; i++ {
		o := model.NewOrder(fmt.Sprintf("U%d", i), 1, "b")
		o.UserID = int64Ptr(7)
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, o))
	}
	other := model.NewOrder("other", 1, "b")
	other.UserID = int64Ptr(8)
	require.NoError(t, repo.Create(ctx, other))

	testCases := []struct {
		name   string
		limit  int
		offset int
		want   []string
	}{
		{name: "newest first", limit: 2, offset: 0, want: []string{"U4", "U3"}},
		{name: "offset", limit: 2, offset: 2, want: []string{"U2", "U1"}},
		{name: "zero limit uses default", limit: 0, offset: 0, want: []string{"U4", "U3", "U2", "U1", "U0"}},
		{name: "negative offset clamped", limit: 1, offset: -3, want: []string{"U4"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			orders, err := repo.FindByUserID(ctx, 7, tc.limit, tc.offset)
			require.NoError(t, err)
			var nos []string
			for _, o := range orders {
				nos = append(nos, o.OutTradeNo)
			}
			assert.Equal(t, tc.want, nos)
		})
	}
}
