package gateway

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"f2fpay/internal/domain/facepay/model"
	"f2fpay/internal/domain/facepay/payerr"
	"f2fpay/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path   string
	Method string
	Params map[string]any
}

func newTestServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.Path = r.URL.Path
			captured.Method = r.Method
			dec := json.NewDecoder(r.Body)
			dec.UseNumber()
			_ = dec.Decode(&captured.Params)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string, opts ...Option) *Client {
	return NewClient(Config{
		BaseURL: baseURL,
		AppID:   "wx_app",
		MchID:   "1900000001",
		APIKey:  "secret",
		Timeout: 2 * time.Second,
	}, opts...)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{AppID: "a", MchID: "m"})
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, "a", c.AppID())
	assert.Equal(t, "m", c.MchID())

	c = NewClient(Config{BaseURL: "http://example.com/f2f/"})
	assert.Equal(t, "http://example.com/f2f", c.cfg.BaseURL)
}

func TestClient_CreateOrder(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK,
		`{"errcode":0,"errmsg":"ok","code_url":"weixin://wxpay/bizpayurl?pr=abc","prepay_id":"wx_prepay_1"}`, &captured)
	c := newTestClient(srv.URL)

	order := model.NewOrder("T1", 100, "coffee")
	attach := "table=3"
	order.Attach = &attach

	res, err := c.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "weixin://wxpay/bizpayurl?pr=abc", res.CodeURL)
	assert.Equal(t, "wx_prepay_1", res.PrepayID)
	assert.True(t, res.IsSuccess())
	require.NotNil(t, res.ErrCode)
	assert.Equal(t, "0", *res.ErrCode)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/createorderinfo", captured.Path)
	assert.Equal(t, "wx_app", captured.Params["appid"])
	assert.Equal(t, "1900000001", captured.Params["mchid"])
	assert.Equal(t, "T1", captured.Params["out_trade_no"])
	assert.Equal(t, json.Number("100"), captured.Params["total_fee"])
	assert.Equal(t, "CNY", captured.Params["currency"])
	assert.Equal(t, "table=3", captured.Params["attach"])
	assert.NotContains(t, captured.Params, "openid")

	sign, _ := captured.Params["sign"].(string)
	assert.True(t, Verify(captured.Params, "secret", sign))
}

func TestClient_QueryOrder(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		verify func(t *testing.T, res *QueryResult)
	}{
		{
			name: "paid order",
			body: `{"trade_state":"SUCCESS","trade_state_desc":"支付成功","transaction_id":"42000001",
				"out_trade_no":"T1","bank_type":"CMB_DEBIT","success_time":"2024-01-01T10:00:00+08:00",
				"pay_type":"NATIVE","time_end":1704074400}`,
			verify: func(t *testing.T, res *QueryResult) {
				assert.True(t, res.IsPaid())
				assert.True(t, res.IsFinal())
				assert.False(t, res.IsFailed())
				assert.Equal(t, "42000001", *res.TransactionID)
				assert.Equal(t, "CMB_DEBIT", *res.BankType)
				require.NotNil(t, res.TimeEnd)
				assert.Equal(t, int64(1704074400), *res.TimeEnd)
				assert.Nil(t, res.ErrCode)
			},
		},
		{
			name: "numeric string time_end",
			body: `{"trade_state":"NOTPAY","time_end":"1704074400"}`,
			verify: func(t *testing.T, res *QueryResult) {
				assert.True(t, res.IsNotPaid())
				assert.False(t, res.IsFinal())
				require.NotNil(t, res.TimeEnd)
				assert.Equal(t, int64(1704074400), *res.TimeEnd)
			},
		},
		{
			name: "wrong field types decode as nil",
			body: `{"trade_state":7,"transaction_id":123,"bank_type":["x"],"time_end":"soon"}`,
			verify: func(t *testing.T, res *QueryResult) {
				assert.Equal(t, "", res.TradeState)
				assert.Nil(t, res.TransactionID)
				assert.Nil(t, res.BankType)
				assert.Nil(t, res.TimeEnd)
				assert.False(t, res.IsFinal())
			},
		},
		{
			name: "array body treated as empty object",
			body: `[]`,
			verify: func(t *testing.T, res *QueryResult) {
				assert.Equal(t, "", res.TradeState)
				assert.Nil(t, res.TradeStateDesc)
			},
		},
		{
			name: "string zero errcode is kept",
			body: `{"errcode":"0","errmsg":"ok","trade_state":"USERPAYING"}`,
			verify: func(t *testing.T, res *QueryResult) {
				require.NotNil(t, res.ErrCode)
				assert.Equal(t, "0", *res.ErrCode)
				assert.Equal(t, "ok", *res.ErrMsg)
				assert.False(t, res.IsFinal())
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var captured capturedRequest
			srv := newTestServer(t, http.StatusOK, tc.body, &captured)
			c := newTestClient(srv.URL)

			res, err := c.QueryOrder(context.Background(), "T1")
			require.NoError(t, err)
			assert.Equal(t, "/queryorderinfo", captured.Path)
			assert.Equal(t, "T1", captured.Params["out_trade_no"])
			tc.verify(t, res)
		})
	}
}

func TestClient_GatewayErrors(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr int
		wantMsg string
	}{
		{name: "numeric errcode", body: `{"errcode":500,"errmsg":"order not found"}`, wantErr: 500, wantMsg: "order not found"},
		{name: "string errcode", body: `{"errcode":"40013","errmsg":"invalid appid"}`, wantErr: 40013, wantMsg: "invalid appid"},
		{name: "missing errmsg", body: `{"errcode":-1}`, wantErr: -1, wantMsg: "unknown error"},
		{name: "non string errmsg", body: `{"errcode":1,"errmsg":{"a":1}}`, wantErr: 1, wantMsg: "unknown error"},
		{name: "huge errcode clamps to int64 max", body: `{"errcode":1e30,"errmsg":"overflow"}`, wantErr: math.MaxInt64, wantMsg: "overflow"},
		{name: "huge negative errcode clamps to int64 min", body: `{"errcode":"-1e400"}`, wantErr: math.MinInt64, wantMsg: "unknown error"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, http.StatusOK, tc.body, nil)
			c := newTestClient(srv.URL)

			_, err := c.QueryOrder(context.Background(), "T1")
			require.Error(t, err)
			pe, ok := payerr.As(err)
			require.True(t, ok)
			assert.Equal(t, payerr.KindGateway, pe.Kind)
			assert.Equal(t, tc.wantErr, pe.Code)
			assert.Equal(t, tc.wantMsg, pe.Message)
		})
	}
}

func TestClient_TransportErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		call   func(c *Client) error
		msg    string
	}{
		{
			name:   "non json body",
			status: http.StatusOK,
			body:   `<html>bad gateway</html>`,
			call: func(c *Client) error {
				_, err := c.QueryOrder(context.Background(), "T1")
				return err
			},
			msg: "query order failed",
		},
		{
			name:   "scalar body",
			status: http.StatusOK,
			body:   `"ok"`,
			call: func(c *Client) error {
				_, err := c.CreateOrder(context.Background(), model.NewOrder("T1", 1, "b"))
				return err
			},
			msg: "create order failed",
		},
		{
			name:   "trailing data after object",
			status: http.StatusOK,
			body:   `{"errcode":0} garbage`,
			call: func(c *Client) error {
				_, err := c.QueryOrder(context.Background(), "T1")
				return err
			},
			msg: "query order failed",
		},
		{
			name:   "two json objects",
			status: http.StatusOK,
			body:   `{"trade_state":"SUCCESS"}{"trade_state":"NOTPAY"}`,
			call: func(c *Client) error {
				_, err := c.QueryOrder(context.Background(), "T1")
				return err
			},
			msg: "query order failed",
		},
		{
			name:   "http 500",
			status: http.StatusInternalServerError,
			body:   `{}`,
			call: func(c *Client) error {
				return c.CloseOrder(context.Background(), "T1")
			},
			msg: "close order failed",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, tc.status, tc.body, nil)
			err := tc.call(newTestClient(srv.URL))
			require.Error(t, err)
			assert.True(t, payerr.IsTransport(err))
			pe, _ := payerr.As(err)
			assert.Equal(t, tc.msg, pe.Message)
			assert.NotNil(t, pe.Unwrap())
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := newTestClient(url).CloseOrder(context.Background(), "T1")
	require.Error(t, err)
	assert.True(t, payerr.IsTransport(err))
}

func TestClient_CloseOrder(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"errcode":0,"errmsg":"ok"}`, &captured)

	err := newTestClient(srv.URL).CloseOrder(context.Background(), "T9")
	require.NoError(t, err)
	assert.Equal(t, "/closeorderinfo", captured.Path)
	assert.Equal(t, "T9", captured.Params["out_trade_no"])
}

func TestClient_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsCollector(reg)

	okSrv := newTestServer(t, http.StatusOK, `{"trade_state":"NOTPAY"}`, nil)
	_, err := newTestClient(okSrv.URL, WithMetrics(m)).QueryOrder(context.Background(), "T1")
	require.NoError(t, err)

	errSrv := newTestServer(t, http.StatusOK, `{"errcode":1}`, nil)
	_, err = newTestClient(errSrv.URL, WithMetrics(m)).QueryOrder(context.Background(), "T1")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "facepay_gateway_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
