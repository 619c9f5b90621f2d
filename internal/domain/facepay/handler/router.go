package handler

import (
	"f2fpay/internal/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes 设置面对面收款路由，pollGuard 用于限制阻塞型轮询接口
func SetupRoutes(r gin.IRouter, h *PaymentHandler, pollGuard ...gin.HandlerFunc) {
	g := r.Group(APIPrefix)

	// 公开路由，登录用户下单时绑定用户，二维码按绑定用户校验
	g.GET("", h.Index)
	g.POST("/create-order", middleware.OptionalAuthMiddleware(), h.CreateOrder)
	g.GET("/query-order/:outTradeNo", h.QueryOrder)
	g.POST("/close-order/:outTradeNo", h.CloseOrder)
	g.GET("/poll-order-status/:outTradeNo", append(pollGuard, h.PollOrderStatus)...)
	g.GET("/order/:outTradeNo/qrcode", middleware.OptionalAuthMiddleware(), h.OrderQRCode)

	// 受保护的路由
	auth := g.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.GET("/orders", h.ListOrders)
		auth.GET("/order/:outTradeNo", h.GetOrder)
	}
}
