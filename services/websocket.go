package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 45 * time.Second
	pingPeriod     = 15 * time.Second
	sendBufferSize = 16
	maxMessageSize = 4 * 1024
)

// Message WebSocket消息结构
type Message struct {
	Type    string      `json:"type"`
	GameID  string      `json:"game_id"`
	Content interface{} `json:"content"`
}

// GameView 某个钱包视角下的快照与可用动作
type GameView struct {
	Snapshot models.Snapshot   `json:"snapshot"`
	Actions  []AvailableAction `json:"actions"`
}

// NewGameView 以 address 的视角生成视图
func NewGameView(snap models.Snapshot, address string, machine *StateMachine) GameView {
	view := ViewAs(snap, address)
	return GameView{Snapshot: view, Actions: machine.AvailableActions(&view, nil)}
}

type wsClient struct {
	id      string
	gameID  string
	address string
	conn    *websocket.Conn
	send    chan []byte
}

// WebSocketManager WebSocket连接管理器，向观察者推送快照
type WebSocketManager struct {
	rooms    *RoomManager
	bus      *SnapshotBus
	machine  *StateMachine
	metrics  *Metrics
	logger   *zap.Logger
	clients  map[string]map[string]*wsClient // gameID -> connectionID -> client
	handlers map[string]SnapshotHandler      // gameID -> 总线回调
	mutex    sync.RWMutex
}

// NewWebSocketManager 创建WebSocket管理器实例
func NewWebSocketManager(rooms *RoomManager, bus *SnapshotBus, machine *StateMachine, metrics *Metrics, logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		rooms:    rooms,
		bus:      bus,
		machine:  machine,
		metrics:  metrics,
		logger:   logger.With(zap.String("module", "websocket")),
		clients:  make(map[string]map[string]*wsClient),
		handlers: make(map[string]SnapshotHandler),
	}
}

// RegisterConnection 注册新连接并开始推送该游戏的快照，返回连接ID
func (wm *WebSocketManager) RegisterConnection(gameID, address string, conn *websocket.Conn) (string, error) {
	c := &wsClient{
		id:      uuid.NewString(),
		gameID:  gameID,
		address: address,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
	}

	wm.mutex.Lock()
	if _, exists := wm.clients[gameID]; !exists {
		handler := SnapshotHandler(func(snap models.Snapshot) { wm.BroadcastSnapshot(snap) })
		if err := wm.bus.Subscribe(gameID, handler); err != nil {
			wm.mutex.Unlock()
			return "", err
		}
		wm.clients[gameID] = make(map[string]*wsClient)
		wm.handlers[gameID] = handler
	}
	wm.clients[gameID][c.id] = c
	wm.mutex.Unlock()

	wm.metrics.connectionOpened()
	syncer := wm.rooms.Watch(gameID)

	if snap, ok := syncer.State().Snapshot(); ok {
		wm.deliver(c, snap)
	}

	go wm.writePump(c)
	go wm.readPump(c)

	wm.logger.Info("[WebSocket] 新连接",
		zap.String("game", gameID),
		zap.String("connection", c.id),
		zap.String("address", address))
	return c.id, nil
}

// BroadcastSnapshot 向游戏的所有连接推送快照，每个连接按自己的地址标记当前玩家
func (wm *WebSocketManager) BroadcastSnapshot(snap models.Snapshot) {
	wm.mutex.RLock()
	clients := make([]*wsClient, 0, len(wm.clients[snap.GameID]))
	for _, c := range wm.clients[snap.GameID] {
		clients = append(clients, c)
	}
	wm.mutex.RUnlock()

	for _, c := range clients {
		wm.deliver(c, snap)
	}
	wm.logger.Debug("[WebSocket广播] 快照已推送",
		zap.String("game", snap.GameID),
		zap.Uint64("version", snap.Version),
		zap.Int("connections", len(clients)))
}

// ConnectionCount 某个游戏的连接数
func (wm *WebSocketManager) ConnectionCount(gameID string) int {
	wm.mutex.RLock()
	defer wm.mutex.RUnlock()
	return len(wm.clients[gameID])
}

func (wm *WebSocketManager) deliver(c *wsClient, snap models.Snapshot) {
	data, err := json.Marshal(Message{
		Type:    "snapshot",
		GameID:  snap.GameID,
		Content: NewGameView(snap, c.address, wm.machine),
	})
	if err != nil {
		wm.logger.Error("[WebSocket广播] 消息序列化失败", zap.Error(err))
		return
	}

	wm.mutex.RLock()
	defer wm.mutex.RUnlock()
	if _, alive := wm.clients[c.gameID][c.id]; !alive {
		return
	}
	select {
	case c.send <- data:
	default:
		wm.logger.Warn("[WebSocket广播] 发送队列已满，丢弃快照", zap.String("connection", c.id))
	}
}

// RemoveConnection 移除连接，最后一个连接离开时取消订阅并释放同步器
func (wm *WebSocketManager) RemoveConnection(gameID, connectionID string) {
	wm.mutex.Lock()
	c, exists := wm.clients[gameID][connectionID]
	if !exists {
		wm.mutex.Unlock()
		return
	}
	delete(wm.clients[gameID], connectionID)
	close(c.send)

	if len(wm.clients[gameID]) == 0 {
		if handler, ok := wm.handlers[gameID]; ok {
			if err := wm.bus.Unsubscribe(gameID, handler); err != nil {
				wm.logger.Warn("[WebSocket] 取消订阅失败", zap.String("game", gameID), zap.Error(err))
			}
		}
		delete(wm.clients, gameID)
		delete(wm.handlers, gameID)
	}
	wm.mutex.Unlock()

	wm.rooms.Release(gameID)
	wm.metrics.connectionClosed()
	wm.logger.Info("[WebSocket] 连接已关闭", zap.String("game", gameID), zap.String("connection", connectionID))
}

// CloseAll 关闭所有连接
func (wm *WebSocketManager) CloseAll() {
	wm.mutex.RLock()
	var clients []*wsClient
	for _, game := range wm.clients {
		for _, c := range game {
			clients = append(clients, c)
		}
	}
	wm.mutex.RUnlock()

	for _, c := range clients {
		wm.RemoveConnection(c.gameID, c.id)
	}
}

// writePump 串行写入快照并定期发送心跳
func (wm *WebSocketManager) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "连接关闭")
				_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				wm.logger.Warn("[WebSocket] 发送消息失败", zap.String("connection", c.id), zap.Error(err))
				go wm.RemoveConnection(c.gameID, c.id)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				wm.logger.Debug("[WebSocket] 心跳检测失败", zap.String("connection", c.id), zap.Error(err))
				go wm.RemoveConnection(c.gameID, c.id)
				return
			}
		}
	}
}

// readPump 只处理心跳与关闭，客户端消息被忽略
func (wm *WebSocketManager) readPump(c *wsClient) {
	defer wm.RemoveConnection(c.gameID, c.id)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wm.logger.Debug("[WebSocket] 读取消息失败", zap.String("connection", c.id), zap.Error(err))
			}
			return
		}
	}
}
