package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

// ErrInvitationRequired 邀请内容为空
var ErrInvitationRequired = errors.New("缺少邀请内容")

// ReceiptSource 交易收据与合约事件定义的来源，*ledger.Contract 实现该接口
type ReceiptSource interface {
	Address() string
	Schema(ctx context.Context) (*ledger.Schema, error)
	WaitForReceipt(ctx context.Context, hash string) (*ledger.Receipt, error)
}

// PipelineResult 一次处理的结果
type PipelineResult struct {
	Events   int                          `json:"events"`
	Messages []models.NotificationMessage `json:"messages"`
}

// Pipeline 收据 -> 事件解码 -> 播报 -> 投递
type Pipeline struct {
	source         ReceiptSource
	narrator       *Narrator
	dispatcher     *Dispatcher
	metrics        *Metrics
	logger         *zap.Logger
	receiptTimeout time.Duration
}

// NewPipeline 创建事件处理流水线。receiptTimeout 为等待收据的上限，0 表示只受调用方 ctx 约束
func NewPipeline(source ReceiptSource, narrator *Narrator, dispatcher *Dispatcher, metrics *Metrics, receiptTimeout time.Duration, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		source:         source,
		narrator:       narrator,
		dispatcher:     dispatcher,
		metrics:        metrics,
		receiptTimeout: receiptTimeout,
		logger:         logger.With(zap.String("module", "pipeline")),
	}
}

// ProcessTransaction 处理一笔交易的事件并投递到游戏会话。同一交易重复提交会重复投递
func (p *Pipeline) ProcessTransaction(ctx context.Context, txHash, gameID string) (*PipelineResult, error) {
	if gameID == "" {
		return nil, ErrGameIDRequired
	}
	start := time.Now()
	log := p.logger.With(zap.String("tx", txHash), zap.String("game", gameID))

	waitCtx := ctx
	if p.receiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.receiptTimeout)
		defer cancel()
	}
	receipt, err := p.source.WaitForReceipt(waitCtx, txHash)
	if err != nil {
		return nil, fmt.Errorf("获取交易收据: %w", err)
	}

	schema, err := p.source.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取合约事件定义: %w", err)
	}

	decoder := ledger.NewDecoder(schema, p.source.Address(), p.logger,
		ledger.WithDropHook(func(_ int, err error) {
			p.metrics.eventDropped(ledger.DropReason(err))
		}))
	events, err := decoder.Decode(receipt)
	if err != nil {
		return nil, fmt.Errorf("解码交易事件: %w", err)
	}
	for _, event := range events {
		p.metrics.eventDecoded(string(event.Kind()))
	}

	messages := p.narrator.Translate(events)
	if err := p.dispatcher.Dispatch(ctx, gameID, messages); err != nil {
		return nil, err
	}

	p.metrics.pipelineObserved(time.Since(start).Seconds())
	log.Info("[事件处理] 交易事件已投递",
		zap.Int("logs", len(receipt.Events)),
		zap.Int("events", len(events)),
		zap.Int("messages", len(messages)))
	return &PipelineResult{Events: len(events), Messages: messages}, nil
}

// Invite 直接投递一条邀请消息，不经过解码与播报
func (p *Pipeline) Invite(ctx context.Context, gameID, payload string) (models.NotificationMessage, error) {
	if payload == "" {
		return models.NotificationMessage{}, ErrInvitationRequired
	}
	message := models.NewSystemMessage("📩 *Invitation:* " + payload)
	if err := p.dispatcher.Dispatch(ctx, gameID, []models.NotificationMessage{message}); err != nil {
		return models.NotificationMessage{}, err
	}
	return message, nil
}
