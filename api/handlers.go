package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
	"github.com/qianlnk/mafiachain/services"
	"go.uber.org/zap"
)

// EventProcessor 事件处理流水线，*services.Pipeline 实现该接口
type EventProcessor interface {
	ProcessTransaction(ctx context.Context, txHash, gameID string) (*services.PipelineResult, error)
	Invite(ctx context.Context, gameID, payload string) (models.NotificationMessage, error)
}

// SnapshotSource 游戏最新快照，*services.RoomManager 实现该接口
type SnapshotSource interface {
	Latest(ctx context.Context, gameID string) (models.Snapshot, error)
}

// ConnectionRegistry WebSocket 连接注册，*services.WebSocketManager 实现该接口
type ConnectionRegistry interface {
	RegisterConnection(gameID, address string, conn *websocket.Conn) (string, error)
}

type inviteRequest struct {
	InvitationPayload string `json:"invitation_payload" binding:"required"`
	GameID            string `json:"game_id" binding:"required"`
}

type handlers struct {
	pipeline    EventProcessor
	snapshots   SnapshotSource
	games       services.GameDirectory
	machine     *services.StateMachine
	connections ConnectionRegistry
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// postEvents 拉取交易收据，解码、播报并投递到游戏会话
func (h *handlers) postEvents(c *gin.Context) {
	var req services.EventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pipeline.ProcessTransaction(c.Request.Context(), req.TransactionHash, req.GameID)
	if err != nil {
		h.logger.Error("[事件接口] 处理交易失败",
			zap.String("request_id", GetRequestID(c)),
			zap.String("tx", req.TransactionHash),
			zap.String("game", req.GameID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Success",
		"events":   result.Events,
		"messages": result.Messages,
	})
}

// postInvite 直接投递邀请消息
func (h *handlers) postInvite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.pipeline.Invite(c.Request.Context(), req.GameID, req.InvitationPayload)
	if err != nil {
		h.logger.Error("[邀请接口] 投递失败", zap.String("game", req.GameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Success", "messages": []models.NotificationMessage{message}})
}

// getGame 游戏快照与 address 视角下的可用动作
func (h *handlers) getGame(c *gin.Context) {
	gameID := c.Param("id")
	snap, err := h.snapshots.Latest(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, services.NewGameView(snap, c.Query("address"), h.machine))
}

func (h *handlers) gameExists(c *gin.Context) {
	exists, err := h.games.GameExists(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// watch 升级为 WebSocket 并推送该游戏的快照
func (h *handlers) watch(c *gin.Context) {
	gameID := c.Query("game")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrGameIDRequired.Error()})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("[WebSocket] 升级连接失败", zap.Error(err))
		return
	}
	if _, err := h.connections.RegisterConnection(gameID, c.Query("address"), ws); err != nil {
		h.logger.Error("[WebSocket] 注册连接失败", zap.String("game", gameID), zap.Error(err))
		ws.Close()
	}
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidFelt), errors.Is(err, ledger.ErrNotShortString),
		errors.Is(err, ledger.ErrShortStringTooLong), errors.Is(err, services.ErrGameIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrMalformedResult):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
