package services

import (
	"context"
	"fmt"

	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

// ConversationStore 外部聊天服务的会话存储，*chat.Client 实现该接口
type ConversationStore interface {
	UpsertConversation(ctx context.Context, gameID string) error
	AppendMessages(ctx context.Context, gameID string, messages []models.NotificationMessage) error
}

// Dispatcher 将一批消息投递到游戏会话
type Dispatcher struct {
	store   ConversationStore
	metrics *Metrics
	logger  *zap.Logger
}

// NewDispatcher 创建投递器，metrics 可以为 nil
func NewDispatcher(store ConversationStore, metrics *Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		metrics: metrics,
		logger:  logger.With(zap.String("module", "dispatcher")),
	}
}

// Dispatch 先更新会话，再追加消息；空批次只更新会话。不重试，不去重
func (d *Dispatcher) Dispatch(ctx context.Context, gameID string, messages []models.NotificationMessage) error {
	if gameID == "" {
		return ErrGameIDRequired
	}

	if err := d.store.UpsertConversation(ctx, gameID); err != nil {
		d.metrics.dispatchFailed("upsert")
		return fmt.Errorf("upsert conversation: %w", err)
	}

	if len(messages) == 0 {
		d.logger.Debug("[消息投递] 没有需要投递的消息", zap.String("game", gameID))
		return nil
	}

	if err := d.store.AppendMessages(ctx, gameID, messages); err != nil {
		d.metrics.dispatchFailed("append")
		return fmt.Errorf("append messages: %w", err)
	}

	d.metrics.messagesDelivered(len(messages))
	d.logger.Info("[消息投递] 已投递消息", zap.String("game", gameID), zap.Int("count", len(messages)))
	return nil
}
