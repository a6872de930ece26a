package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

// room 一个被观察的游戏：一个同步器，多个观察者
type room struct {
	syncer   *Synchronizer
	cancel   context.CancelFunc
	watchers int
}

// RoomManager 被观察游戏的管理器。同一游戏的所有观察者共用一个同步器
type RoomManager struct {
	reader   GameReader
	bus      *SnapshotBus
	metrics  *Metrics
	logger   *zap.Logger
	interval time.Duration
	rooms    map[string]*room
	mutex    sync.RWMutex
}

// NewRoomManager 创建房间管理器实例
func NewRoomManager(reader GameReader, bus *SnapshotBus, metrics *Metrics, interval time.Duration, logger *zap.Logger) *RoomManager {
	return &RoomManager{
		reader:   reader,
		bus:      bus,
		metrics:  metrics,
		interval: interval,
		logger:   logger.With(zap.String("module", "rooms")),
		rooms:    make(map[string]*room),
	}
}

// Watch 增加一个观察者，第一个观察者到来时启动同步器
func (rm *RoomManager) Watch(gameID string) *Synchronizer {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	if r, exists := rm.rooms[gameID]; exists {
		r.watchers++
		return r.syncer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSynchronizer(rm.reader, SyncOptions{GameID: gameID, Interval: rm.interval}, NewClientState(), rm.bus, rm.metrics, rm.logger)
	rm.rooms[gameID] = &room{syncer: s, cancel: cancel, watchers: 1}
	rm.metrics.setWatchedGames(len(rm.rooms))
	go s.Run(ctx)

	rm.logger.Info("[房间] 开始观察游戏", zap.String("game", gameID))
	return s
}

// Release 减少一个观察者，最后一个观察者离开时停止同步器
func (rm *RoomManager) Release(gameID string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	r, exists := rm.rooms[gameID]
	if !exists {
		return
	}
	r.watchers--
	if r.watchers > 0 {
		return
	}

	r.syncer.Stop()
	r.cancel()
	delete(rm.rooms, gameID)
	rm.metrics.setWatchedGames(len(rm.rooms))
	rm.logger.Info("[房间] 游戏已无观察者，停止同步", zap.String("game", gameID))
}

// GetSynchronizer 获取正在运行的同步器
func (rm *RoomManager) GetSynchronizer(gameID string) (*Synchronizer, bool) {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	r, exists := rm.rooms[gameID]
	if !exists {
		return nil, false
	}
	return r.syncer, true
}

// Latest 返回游戏的最新快照。有观察者且已同步过时直接返回，否则临时同步一次
func (rm *RoomManager) Latest(ctx context.Context, gameID string) (models.Snapshot, error) {
	if s, ok := rm.GetSynchronizer(gameID); ok {
		if snap, ok := s.State().Snapshot(); ok {
			return snap, nil
		}
	}
	once := NewSynchronizer(rm.reader, SyncOptions{GameID: gameID, Interval: rm.interval}, NewClientState(), nil, rm.metrics, rm.logger)
	return once.Tick(ctx)
}

// ListGames 正在观察的游戏
func (rm *RoomManager) ListGames() []string {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	games := make([]string, 0, len(rm.rooms))
	for id := range rm.rooms {
		games = append(games, id)
	}
	sort.Strings(games)
	return games
}

// Close 停止所有同步器
func (rm *RoomManager) Close() {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	for id, r := range rm.rooms {
		r.syncer.Stop()
		r.cancel()
		delete(rm.rooms, id)
	}
	rm.metrics.setWatchedGames(0)
}
