package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EventsRequest 事件接口的请求体
type EventsRequest struct {
	TransactionHash string `json:"transaction_hash" binding:"required"`
	GameID          string `json:"game_id" binding:"required"`
}

// HTTPRelay 通过 POST /events 触发事件处理流水线
type HTTPRelay struct {
	url    string
	client *http.Client
}

// NewHTTPRelay 创建转发器。timeout 需覆盖服务端等待交易收据的时间
func NewHTTPRelay(url string, timeout time.Duration) *HTTPRelay {
	return &HTTPRelay{url: url, client: &http.Client{Timeout: timeout}}
}

// Forward 转发交易哈希，非2xx状态视为失败
func (r *HTTPRelay) Forward(ctx context.Context, txHash, gameID string) error {
	body, err := json.Marshal(EventsRequest{TransactionHash: txHash, GameID: gameID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求事件接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			return fmt.Errorf("事件接口返回 %d: %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("事件接口返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
