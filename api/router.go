// Package api HTTP 接口：事件转发、邀请、游戏快照查询与 WebSocket 推送
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qianlnk/mafiachain/services"
	"go.uber.org/zap"
)

// Deps 路由依赖
type Deps struct {
	Pipeline    EventProcessor
	Snapshots   SnapshotSource
	Games       services.GameDirectory
	Machine     *services.StateMachine
	Connections ConnectionRegistry
	Registry    *prometheus.Registry // 为 nil 时不暴露 /metrics
	CORSOrigin  string
}

// NewRouter 创建路由
func NewRouter(deps Deps, logger *zap.Logger) *gin.Engine {
	logger = logger.With(zap.String("module", "api"))

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger(logger), CORS(deps.CORSOrigin))
	if deps.Registry != nil {
		r.Use(NewHTTPMetrics(deps.Registry).Middleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	h := &handlers{
		pipeline:    deps.Pipeline,
		snapshots:   deps.Snapshots,
		games:       deps.Games,
		machine:     deps.Machine,
		connections: deps.Connections,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	r.GET("/healthz", healthz)
	r.POST("/events", h.postEvents)
	r.POST("/invite", h.postInvite)
	r.GET("/ws", h.watch)

	games := r.Group("/api/games")
	{
		games.GET("/:id", h.getGame)
		games.GET("/:id/exists", h.gameExists)
	}

	return r
}
