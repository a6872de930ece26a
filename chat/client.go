// Package chat 外部聊天服务客户端：会话按游戏ID寻址，支持幂等更新会话与追加消息
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

// StatusError 聊天服务返回非2xx状态
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("聊天服务 %s %s 返回 %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Config 客户端配置
type Config struct {
	BaseURL       string
	AppID         string
	SecretKey     string
	SubjectPrefix string
	Timeout       time.Duration
}

// Client 聊天服务客户端
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient 创建客户端
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("module", "chat")),
	}
}

type conversation struct {
	Subject string            `json:"subject"`
	Custom  map[string]string `json:"custom"`
}

// UpsertConversation 创建或更新游戏会话
func (c *Client) UpsertConversation(ctx context.Context, gameID string) error {
	body := conversation{
		Subject: strings.TrimSpace(c.cfg.SubjectPrefix + " " + gameID),
		Custom:  map[string]string{"game_id": gameID},
	}
	return c.do(ctx, http.MethodPut, c.conversationPath(gameID), body)
}

// AppendMessages 向会话追加一批消息，保持顺序
func (c *Client) AppendMessages(ctx context.Context, gameID string, messages []models.NotificationMessage) error {
	return c.do(ctx, http.MethodPost, c.conversationPath(gameID)+"/messages", messages)
}

func (c *Client) conversationPath(gameID string) string {
	return "/" + url.PathEscape(c.cfg.AppID) + "/conversations/" + url.PathEscape(gameID)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("编码请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("请求聊天服务失败: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("[聊天服务] 请求完成",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
