package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"f2fpay/internal/domain/facepay/model"
	"f2fpay/internal/domain/facepay/payerr"
	"f2fpay/pkg/logger"
	"f2fpay/pkg/metrics"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.weixin.qq.com/wxa/business/f2f"
	DefaultTimeout = 30 * time.Second

	createOrderPath = "/createorderinfo"
	queryOrderPath  = "/queryorderinfo"
	closeOrderPath  = "/closeorderinfo"

	// 响应体上限，防止异常响应占满内存
	maxResponseBytes = 1 << 20
)

var errNotObject = errors.New("响应解析失败")

// Config 网关凭证与地址
type Config struct {
	BaseURL string
	AppID   string
	MchID   string
	APIKey  string
	Timeout time.Duration
}

// Client 面对面收款网关客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
	l          *zap.Logger
	metrics    *metrics.MetricsCollector
}

type Option func(*Client)

// WithHTTPClient 替换底层 http.Client，此时 Config.Timeout 不再生效
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.l = l
	}
}

func WithMetrics(m *metrics.MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		l:          logger.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AppID 下单时写入订单
func (c *Client) AppID() string { return c.cfg.AppID }

func (c *Client) MchID() string { return c.cfg.MchID }

// CreateOrder 创建面对面收款订单，返回二维码链接与预支付 ID
func (c *Client) CreateOrder(ctx context.Context, order *model.Order) (*CreateResult, error) {
	data, err := c.post(ctx, "create", createOrderPath, c.buildCreateOrderParams(order))
	if err != nil {
		return nil, err
	}
	return data.toCreateResult(), nil
}

// QueryOrder 查询订单状态
func (c *Client) QueryOrder(ctx context.Context, outTradeNo string) (*QueryResult, error) {
	data, err := c.post(ctx, "query", queryOrderPath, c.baseParams(outTradeNo))
	if err != nil {
		return nil, err
	}
	return data.toQueryResult(), nil
}

// CloseOrder 关闭订单，网关无错误码即成功
func (c *Client) CloseOrder(ctx context.Context, outTradeNo string) error {
	_, err := c.post(ctx, "close", closeOrderPath, c.baseParams(outTradeNo))
	return err
}

func (c *Client) baseParams(outTradeNo string) map[string]any {
	return map[string]any{
		"appid":        c.cfg.AppID,
		"mchid":        c.cfg.MchID,
		"out_trade_no": outTradeNo,
	}
}

func (c *Client) buildCreateOrderParams(order *model.Order) map[string]any {
	params := c.baseParams(order.OutTradeNo)
	params["total_fee"] = order.TotalFee
	params["currency"] = order.Currency
	params["body"] = order.Body

	// 可选参数仅在设置时携带
	optional := map[string]*string{
		"openid":    order.OpenID,
		"attach":    order.Attach,
		"goods_tag": order.GoodsTag,
		"limit_pay": order.LimitPay,
	}
	for k, v := range optional {
		if v != nil {
			params[k] = *v
		}
	}
	return params
}

func (c *Client) post(ctx context.Context, op, path string, params map[string]any) (envelope, error) {
	start := time.Now()
	params["sign"] = Sign(params, c.cfg.APIKey)

	data, err := c.do(ctx, path, params)
	endpoint := strings.TrimPrefix(path, "/")
	switch {
	case err == nil:
		c.metrics.RecordGatewayRequest(endpoint, "ok", time.Since(start))
		c.l.Debug("gateway request ok",
			zap.String("op", op),
			zap.Any("out_trade_no", params["out_trade_no"]),
			zap.Duration("cost", time.Since(start)),
		)
		return data, nil
	case payerr.IsGateway(err):
		c.metrics.RecordGatewayRequest(endpoint, "gateway_error", time.Since(start))
		c.l.Warn("gateway returned error",
			zap.String("op", op),
			zap.Any("out_trade_no", params["out_trade_no"]),
			zap.Error(err),
		)
		return nil, err
	default:
		c.metrics.RecordGatewayRequest(endpoint, "transport_error", time.Since(start))
		c.l.Warn("gateway request failed",
			zap.String("op", op),
			zap.Any("out_trade_no", params["out_trade_no"]),
			zap.Error(err),
		)
		return nil, payerr.Transport(op+" order failed", err)
	}
}

func (c *Client) do(ctx context.Context, path string, params map[string]any) (envelope, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected http status %d", resp.StatusCode)
	}

	data, err := decodeEnvelope(body)
	if err != nil {
		if payerr.IsGateway(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "decode response")
	}
	return data, nil
}
