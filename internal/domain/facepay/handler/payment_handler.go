package handler

import (
	"net/http"
	"time"

	"f2fpay/internal/domain/facepay/model"
	"f2fpay/internal/domain/facepay/payerr"
	"f2fpay/internal/domain/facepay/service"
	"f2fpay/internal/pkg/middleware"
	"f2fpay/pkg/response"
	"f2fpay/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const (
	APIPrefix = "/api/wechat-pay-face-to-face"

	defaultListLimit = 20
	maxListLimit     = 100

	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

type PaymentHandler struct {
	service              service.PaymentService
	defaultExpireMinutes int
	pollMaxAttempts      int
	pollInterval         int
	now                  func() time.Time
}

type Option func(*PaymentHandler)

// WithPollDefaults 轮询接口未传参时使用的默认值
func WithPollDefaults(maxAttempts, intervalSeconds int) Option {
	return func(h *PaymentHandler) {
		if maxAttempts > 0 {
			h.pollMaxAttempts = maxAttempts
		}
		if intervalSeconds > 0 {
			h.pollInterval = intervalSeconds
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *PaymentHandler) {
		h.now = now
	}
}

// NewPaymentHandler defaultExpireMinutes 不大于 0 时订单不设失效时间
func NewPaymentHandler(s service.PaymentService, defaultExpireMinutes int, opts ...Option) *PaymentHandler {
	h := &PaymentHandler{
		service:              s,
		defaultExpireMinutes: defaultExpireMinutes,
		pollMaxAttempts:      service.DefaultPollMaxAttempts,
		pollInterval:         service.DefaultPollInterval,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type CreateOrderInput struct {
	OutTradeNo    string  `json:"out_trade_no" binding:"required,max=64"`
	TotalFee      *int64  `json:"total_fee" binding:"required,gte=0"`
	Body          string  `json:"body" binding:"required,max=128"`
	Currency      string  `json:"currency" binding:"omitempty,len=3"`
	OpenID        *string `json:"openid" binding:"omitempty,max=64"`
	Attach        *string `json:"attach" binding:"omitempty,max=127"`
	GoodsTag      *string `json:"goods_tag" binding:"omitempty,max=32"`
	LimitPay      *string `json:"limit_pay" binding:"omitempty,max=32"`
	ExpireMinutes *int    `json:"expire_minutes" binding:"omitempty,gte=0"`
}

// Index 接口列表
// @Summary 接口列表
// @Tags FacePay
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/wechat-pay-face-to-face [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	response.Success(c, gin.H{
		"message": "WeChat Pay Face-to-Face API is working",
		"endpoints": gin.H{
			"create_order":      APIPrefix + "/create-order",
			"query_order":       APIPrefix + "/query-order/{outTradeNo}",
			"close_order":       APIPrefix + "/close-order/{outTradeNo}",
			"poll_order_status": APIPrefix + "/poll-order-status/{outTradeNo}",
			"list_orders":       APIPrefix + "/orders",
			"get_order":         APIPrefix + "/order/{outTradeNo}",
			"order_qrcode":      APIPrefix + "/order/{outTradeNo}/qrcode",
		},
	})
}

// CreateOrder 创建面对面收款订单
// @Summary 创建订单
// @Tags FacePay
// @Accept json
// @Produce json
// @Param input body CreateOrderInput true "Order Info"
// @Success 200 {object} response.Response
// @Router /api/wechat-pay-face-to-face/create-order [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "参数验证失败: "+err.Error())
		return
	}

	order := model.NewOrder(input.OutTradeNo, *input.TotalFee, input.Body)
	if input.Currency != "" {
		order.Currency = input.Currency
	}
	order.OpenID = input.OpenID
	order.Attach = input.Attach
	order.GoodsTag = input.GoodsTag
	order.LimitPay = input.LimitPay

	minutes := h.defaultExpireMinutes
	if input.ExpireMinutes != nil {
		minutes = *input.ExpireMinutes
	}
	// 显式传 0 与默认值不大于 0 一样表示不设失效时间
	if minutes > 0 {
		expireAt := h.now().Add(time.Duration(minutes) * time.Minute).Unix()
		order.ExpireTime = &expireAt
	}

	if userID, ok := middleware.GetUserID(c); ok {
		if err := order.SetUserID(&userID); err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
			return
		}
	}

	res, err := h.service.CreateOrder(c.Request.Context(), order)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"out_trade_no":   order.OutTradeNo,
		"code_url":       res.CodeURL,
		"prepay_id":      res.PrepayID,
		"total_fee":      order.TotalFee,
		"total_fee_yuan": formatYuan(order.TotalFee),
		"currency":       order.Currency,
		"body":           order.Body,
		"expire_time":    order.ExpireTime,
	})
}

// QueryOrder 查询订单并同步本地状态
// @Summary 查询订单
// @Tags FacePay
// @Produce json
// @Param outTradeNo path string true "商户订单号"
// @Success 200 {object} response.Response
// @Router /api/wechat-pay-face-to-face/query-order/{outTradeNo} [get]
func (h *PaymentHandler) QueryOrder(c *gin.Context) {
	res, err := h.service.QueryOrder(c.Request.Context(), c.Param("outTradeNo"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"out_trade_no":     res.OutTradeNo,
		"trade_state":      res.TradeState,
		"trade_state_desc": res.TradeStateDesc,
		"trade_state_text": stateLabel(res.TradeState),
		"transaction_id":   res.TransactionID,
		"bank_type":        res.BankType,
		"success_time":     res.SuccessTime,
		"pay_type":         res.PayType,
		"time_end":         res.TimeEnd,
		"is_paid":          res.IsPaid(),
		"is_failed":        res.IsFailed(),
		"is_not_paid":      res.IsNotPaid(),
		"is_final_state":   res.IsFinal(),
	})
}

// CloseOrder 关闭订单
// @Summary 关闭订单
// @Tags FacePay
// @Produce json
// @Param outTradeNo path string true "商户订单号"
// @Success 200 {object} response.Response
// @Router /api/wechat-pay-face-to-face/close-order/{outTradeNo} [post]
func (h *PaymentHandler) CloseOrder(c *gin.Context) {
	if err := h.service.CloseOrder(c.Request.Context(), c.Param("outTradeNo")); err != nil {
		h.handleError(c, err)
		return
	}
	response.SuccessMessage(c, "订单关闭成功")
}

// PollOrderStatus 阻塞轮询直到终态或超时
// @Summary 轮询订单状态
// @Tags FacePay
// @Produce json
// @Param outTradeNo path string true "商户订单号"
// @Param max_attempts query int false "最大轮询次数 1-100"
// @Param interval_seconds query int false "轮询间隔秒 1-60"
// @Success 200 {object} response.Response
// @Router /api/wechat-pay-face-to-face/poll-order-status/{outTradeNo} [get]
func (h *PaymentHandler) PollOrderStatus(c *gin.Context) {
	maxAttempts := utils.ClampInt(c.Query("max_attempts"), h.pollMaxAttempts, 1, 100)
	interval := utils.ClampInt(c.Query("interval_seconds"), h.pollInterval, 1, 60)

	res, err := h.service.PollOrderStatus(c.Request.Context(), c.Param("outTradeNo"), maxAttempts, interval)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"out_trade_no":     res.OutTradeNo,
		"trade_state":      res.TradeState,
		"trade_state_desc": res.TradeStateDesc,
		"transaction_id":   res.TransactionID,
		"is_paid":          res.IsPaid(),
		"is_failed":        res.IsFailed(),
		"is_final_state":   res.IsFinal(),
	})
}

// ListOrders 当前用户的订单列表
// @Summary 订单列表
// @Tags FacePay
// @Security Bearer
// @Produce json
// @Param limit query int false "每页数量 1-100"
// @Param offset query int false "偏移量"
// @Success 200 {object} response.Response
// @Router /api/wechat-pay-face-to-face/orders [get]
func (h *PaymentHandler) ListOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, "用户未登录")
		return
	}

	page := utils.Pagination{
		Limit:  utils.ClampInt(c.Query("limit"), defaultListLimit, 1, maxListLimit),
		Offset: utils.ClampInt(c.Query("offset"), 0, 0, -1),
	}
	page.Normalize(defaultListLimit, maxListLimit)

	orders, err := h.service.ListOrdersByUser(c.Request.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	list := make([]gin.H, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		list = append(list, gin.H{
			"id":               o.ID,
			"out_trade_no":     o.OutTradeNo,
			"total_fee":        o.TotalFee,
			"total_fee_yuan":   formatYuan(o.TotalFee),
			"currency":         o.Currency,
			"body":             o.Body,
			"trade_state":      o.TradeState,
			"trade_state_desc": o.TradeStateDesc,
			"transaction_id":   o.TransactionID,
			"created_at":       o.CreatedAt,
			"updated_at":       o.UpdatedAt,
			"expire_time":      o.ExpireTime,
		})
	}
	response.Success(c, gin.H{
		"list":   list,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// GetOrder 本地订单详情，只能查看自己的订单
// @Summary 订单详情
// @Tags FacePay
// @Security Bearer
// @Produce json
// @Param outTradeNo path string true "商户订单号"
// @Success 200 {object} response.Response
// @Router /api/wechat-pay-face-to-face/order/{outTradeNo} [get]
func (h *PaymentHandler) GetOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, "无权访问此订单")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), c.Param("outTradeNo"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !order.BelongsTo(userID) {
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, "无权访问此订单")
		return
	}

	response.Success(c, gin.H{
		"id":               order.ID,
		"out_trade_no":     order.OutTradeNo,
		"total_fee":        order.TotalFee,
		"total_fee_yuan":   formatYuan(order.TotalFee),
		"currency":         order.Currency,
		"body":             order.Body,
		"trade_state":      order.TradeState,
		"trade_state_desc": order.TradeStateDesc,
		"trade_state_text": order.TradeState.Label(),
		"transaction_id":   order.TransactionID,
		"code_url":         order.CodeURL,
		"prepay_id":        order.PrepayID,
		"created_at":       order.CreatedAt,
		"updated_at":       order.UpdatedAt,
		"expire_time":      order.ExpireTime,
		"success_time":     order.SuccessTime,
		"pay_type":         order.PayType,
		"bank_type":        order.BankType,
	})
}

// OrderQRCode 以 PNG 返回订单收款二维码，绑定用户的订单只允许本人获取
// @Summary 订单收款二维码
// @Tags FacePay
// @Security Bearer
// @Produce png
// @Param outTradeNo path string true "商户订单号"
// @Param size query int false "边长像素 128-1024"
// @Success 200 {file} binary
// @Router /api/wechat-pay-face-to-face/order/{outTradeNo}/qrcode [get]
func (h *PaymentHandler) OrderQRCode(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), c.Param("outTradeNo"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	// 匿名订单对所有人可见
	userID, _ := middleware.GetUserID(c)
	if !order.BelongsTo(userID) {
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, "无权访问此订单")
		return
	}
	if order.CodeURL == nil || *order.CodeURL == "" {
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "订单尚未生成收款码")
		return
	}

	size := utils.ClampInt(c.Query("size"), defaultQRSize, minQRSize, maxQRSize)
	png, err := qrcode.Encode(*order.CodeURL, qrcode.Medium, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrQRCode, "生成二维码失败: "+err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// handleError 按错误类别映射 HTTP 状态码
func (h *PaymentHandler) handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	pe, ok := payerr.As(err)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "系统错误: "+err.Error())
		return
	}

	switch pe.Kind {
	case payerr.KindValidation:
		response.Error(c, http.StatusBadRequest, pe.Code, err.Error())
	case payerr.KindNotFound:
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, err.Error())
	case payerr.KindGateway:
		response.ErrorWithData(c, http.StatusBadGateway, response.ErrGateway, err.Error(), gin.H{
			"error_code": pe.Code,
		})
	case payerr.KindTransport:
		response.Error(c, http.StatusBadGateway, response.ErrTransport, err.Error())
	case payerr.KindPollTimeout:
		response.Error(c, http.StatusRequestTimeout, response.ErrPollTimeout, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "系统错误: "+err.Error())
	}
}

// formatYuan 分转元，保留两位小数
func formatYuan(fen int64) string {
	return decimal.New(fen, -2).StringFixed(2)
}

func stateLabel(state string) string {
	s, ok := model.ParseTradeState(state)
	if !ok {
		return state
	}
	return s.Label()
}
