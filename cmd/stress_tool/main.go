package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"f2fpay/pkg/response"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

var httpClient *http.Client

func init() {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 1000
	t.MaxIdleConnsPerHost = 1000
	t.MaxConnsPerHost = 1000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   60 * time.Second,
	}
}

// 并发使用同一个商户订单号下单，只允许一个请求成功
func main() {
	baseURL := pflag.String("base-url", "http://localhost:8080", "服务地址")
	concurrency := pflag.IntP("concurrency", "c", 200, "并发请求数")
	fee := pflag.Int64("fee", 1, "订单金额（分）")
	pflag.Parse()

	outTradeNo := "STRESS" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	url := strings.TrimRight(*baseURL, "/") + "/api/wechat-pay-face-to-face/create-order"

	fmt.Printf("开始压测：%d 个并发请求使用同一订单号 %s 下单...\n", *concurrency, outTradeNo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	codes := make(map[int]int)

	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := createOrder(url, outTradeNo, *fee)
			mu.Lock()
			codes[code]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	duration := time.Since(start)

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("总请求数: %d\n", *concurrency)
	fmt.Printf("QPS: %.2f\n", float64(*concurrency)/duration.Seconds())

	keys := make([]int, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	sort.Ints(keys)
	for _, code := range keys {
		fmt.Printf("业务码 %d: %d\n", code, codes[code])
	}

	// 网关不可用时成功数为 0，至多一个成功即视为通过
	success := codes[response.CodeSuccess]
	fmt.Printf("下单成功: %d (预期: 不超过 1)\n", success)
	fmt.Println("--------------------------------------------------")
	if success > 1 {
		os.Exit(1)
	}
}

// createOrder 返回业务码，请求失败返回 -1
func createOrder(url, outTradeNo string, fee int64) int {
	payload := map[string]interface{}{
		"out_trade_no": outTradeNo,
		"total_fee":    fee,
		"body":         "压测订单",
	}
	body, _ := json.Marshal(payload)

	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return -1
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return -1
	}

	var result struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return -1
	}
	return result.Code
}
