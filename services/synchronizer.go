package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrSynchronizerStopped 同步器已停止，本轮结果被丢弃
var ErrSynchronizerStopped = errors.New("同步器已停止")

// DefaultSyncInterval 默认轮询间隔
const DefaultSyncInterval = 5 * time.Second

// GameReader 链上读取接口，*ledger.Contract 实现该接口
type GameReader interface {
	GameState(ctx context.Context, gameID string) (models.GameState, error)
	Players(ctx context.Context, gameID string) ([]string, error)
	PlayerInfo(ctx context.Context, gameID, address string) (models.PlayerInfo, error)
}

// SyncOptions 同步器参数
type SyncOptions struct {
	GameID   string
	Address  string // 本地钱包地址，为空表示旁观
	Interval time.Duration
}

// Synchronizer 按固定间隔轮询链上状态，每轮成功后整体替换本地快照
type Synchronizer struct {
	reader   GameReader
	opts     SyncOptions
	state    *ClientState
	bus      *SnapshotBus
	metrics  *Metrics
	logger   *zap.Logger
	inFlight atomic.Bool
	version  atomic.Uint64
	stopCh   chan struct{}
	stopOnce sync.Once

	stopMutex sync.Mutex // 保护 stopped，并与快照发布互斥
	stopped   bool
}

// NewSynchronizer 创建同步器。bus 与 metrics 可以为 nil
func NewSynchronizer(reader GameReader, opts SyncOptions, state *ClientState, bus *SnapshotBus, metrics *Metrics, logger *zap.Logger) *Synchronizer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSyncInterval
	}
	if state == nil {
		state = NewClientState()
	}
	return &Synchronizer{
		reader:  reader,
		opts:    opts,
		state:   state,
		bus:     bus,
		metrics: metrics,
		logger:  logger.With(zap.String("module", "sync"), zap.String("game", opts.GameID)),
		stopCh:  make(chan struct{}),
	}
}

// State 同步器写入的本地状态
func (s *Synchronizer) State() *ClientState {
	return s.state
}

// GameID 同步的游戏
func (s *Synchronizer) GameID() string {
	return s.opts.GameID
}

// Tick 执行一轮同步。上一轮仍在进行时立即返回 ErrTickInFlight，不排队；
// 任一读取失败时不更新任何状态
func (s *Synchronizer) Tick(ctx context.Context) (models.Snapshot, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.tick("skipped", 0)
		return models.Snapshot{}, ErrTickInFlight
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	snap, err := s.fetch(ctx)
	if err != nil {
		s.metrics.tick("error", 0)
		s.logger.Warn("[状态同步] 本轮同步失败，保留上一次快照", zap.Error(err))
		return models.Snapshot{}, err
	}
	if s.opts.Address != "" && !snap.SelfFound {
		s.logger.Warn("[状态同步] 本地钱包地址不在玩家名单中", zap.String("address", s.opts.Address))
	}

	if !s.commit(&snap) {
		s.metrics.tick("discarded", 0)
		return models.Snapshot{}, ErrSynchronizerStopped
	}
	s.metrics.tick("ok", time.Since(start).Seconds())
	return snap, nil
}

// commit 未停止时写入并发布快照，Stop 返回后不会再有快照发布
func (s *Synchronizer) commit(snap *models.Snapshot) bool {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	if s.stopped {
		return false
	}

	snap.Version = s.version.Add(1)
	snap.UpdatedAt = time.Now()
	s.state.Replace(*snap)
	if s.bus != nil {
		s.bus.Publish(*snap)
	}
	return true
}

func (s *Synchronizer) fetch(ctx context.Context) (models.Snapshot, error) {
	var (
		state     models.GameState
		addresses []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		state, err = s.reader.GameState(gctx, s.opts.GameID)
		if err != nil {
			return fmt.Errorf("读取游戏状态: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		addresses, err = s.reader.Players(gctx, s.opts.GameID)
		if err != nil {
			return fmt.Errorf("读取玩家名单: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Snapshot{}, err
	}

	players := make([]models.PlayerInfo, len(addresses))
	g, gctx = errgroup.WithContext(ctx)
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			info, err := s.reader.PlayerInfo(gctx, s.opts.GameID, addr)
			if err != nil {
				return fmt.Errorf("读取玩家 %s 信息: %w", addr, err)
			}
			info.Address = ledger.NormalizeAddress(addr)
			players[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{GameID: s.opts.GameID, State: state, Players: players}
	return ViewAs(snap, s.opts.Address), nil
}

// ViewAs 以某个钱包地址的视角标记当前玩家，只标记第一个匹配项
func ViewAs(snap models.Snapshot, address string) models.Snapshot {
	players := make([]models.PlayerInfo, len(snap.Players))
	snap.SelfFound = false
	for i, p := range snap.Players {
		p.IsCurrentPlayer = !snap.SelfFound && ledger.SameAddress(p.Address, address)
		if p.IsCurrentPlayer {
			snap.SelfFound = true
		}
		players[i] = p
	}
	snap.Players = players
	return snap
}

// Run 立即同步一次，之后按间隔同步，直到 ctx 结束或调用 Stop。
// 每轮在独立协程中执行，前一轮未结束时本轮跳过
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.Info("[状态同步] 开始轮询", zap.Duration("interval", s.opts.Interval))
	go s.runTick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			go s.runTick(ctx)
		}
	}
}

func (s *Synchronizer) runTick(ctx context.Context) {
	if _, err := s.Tick(ctx); errors.Is(err, ErrTickInFlight) {
		s.logger.Debug("[状态同步] 上一轮尚未完成，跳过本轮")
	}
}

// Stop 停止调度新的同步，已发出的请求完成后结果被丢弃
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		s.stopMutex.Lock()
		s.stopped = true
		s.stopMutex.Unlock()
		close(s.stopCh)
		s.logger.Info("[状态同步] 已停止")
	})
}
