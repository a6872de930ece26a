package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

const (
	gameIDPrefix      = "game_"
	gameIDSuffixLen   = 9
	gameIDAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxGameIDAttempts = 10
)

// ErrGameIDExhausted 多次生成的游戏ID都已存在
var ErrGameIDExhausted = errors.New("无法生成未使用的游戏ID")

// GameDirectory 游戏是否已存在，*ledger.Contract 实现该接口
type GameDirectory interface {
	GameExists(ctx context.Context, gameID string) (bool, error)
}

// TransactionRelay 将交易哈希转发给事件接口
type TransactionRelay interface {
	Forward(ctx context.Context, txHash, gameID string) error
}

// Submitter 构造并提交受阶段约束的动作
type Submitter struct {
	contract string
	wallet   ledger.Wallet
	games    GameDirectory
	relay    TransactionRelay
	state    *ClientState
	machine  *StateMachine
	metrics  *Metrics
	logger   *zap.Logger
}

// NewSubmitter 创建提交器。state 应与同步器共用，wallet 为 nil 时所有动作都报未连接
func NewSubmitter(contract string, wallet ledger.Wallet, games GameDirectory, relay TransactionRelay, state *ClientState, machine *StateMachine, metrics *Metrics, logger *zap.Logger) *Submitter {
	return &Submitter{
		contract: contract,
		wallet:   wallet,
		games:    games,
		relay:    relay,
		state:    state,
		machine:  machine,
		metrics:  metrics,
		logger:   logger.With(zap.String("module", "submitter")),
	}
}

func (s *Submitter) player() (string, error) {
	if s.wallet == nil || s.wallet.Address() == "" {
		return "", invalid("%v", ledger.ErrWalletNotConnected)
	}
	return s.wallet.Address(), nil
}

func validateProfile(name, identityKey string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return invalid("请输入玩家名称")
	case len(name) > ledger.ShortStringMaxLen:
		return invalid("玩家名称不能超过 %d 个字符", ledger.ShortStringMaxLen)
	case strings.TrimSpace(identityKey) == "":
		return invalid("缺少身份公钥")
	case len(identityKey) > 2*ledger.ShortStringMaxLen:
		return invalid("身份公钥不能超过 %d 个字符", 2*ledger.ShortStringMaxLen)
	}
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			return invalid("玩家名称只能包含ASCII字符")
		}
	}
	return nil
}

// snapshotFor 同步器为该游戏写入的最近快照
func (s *Submitter) snapshotFor(gameID string) (*models.Snapshot, error) {
	snap, ok := s.state.Snapshot()
	if !ok || snap.GameID != gameID {
		return nil, noSnapshot(gameID)
	}
	return &snap, nil
}

// CreateGame 生成未使用的游戏ID，在一笔交易中创建游戏并加入，返回游戏ID与交易哈希
func (s *Submitter) CreateGame(ctx context.Context, name, identityKey string) (string, string, error) {
	player, err := s.player()
	if err != nil {
		return "", "", err
	}
	if err := validateProfile(name, identityKey); err != nil {
		return "", "", err
	}

	gameID, err := s.newGameID(ctx)
	if err != nil {
		return "", "", err
	}
	create, err := ledger.CreateGameCall(s.contract, gameID)
	if err != nil {
		return "", "", err
	}
	join, err := ledger.JoinGameCall(s.contract, player, gameID, name, identityKey)
	if err != nil {
		return "", "", invalid("%v", err)
	}

	hash, err := s.submit(ctx, models.ActionCreateGame, gameID, create, join)
	return gameID, hash, err
}

func (s *Submitter) newGameID(ctx context.Context) (string, error) {
	for i := 0; i < maxGameIDAttempts; i++ {
		var b strings.Builder
		b.WriteString(gameIDPrefix)
		for j := 0; j < gameIDSuffixLen; j++ {
			b.WriteByte(gameIDAlphabet[rand.IntN(len(gameIDAlphabet))])
		}
		id := b.String()

		exists, err := s.games.GameExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("检查游戏ID: %w", err)
		}
		if !exists {
			return id, nil
		}
		s.logger.Debug("[动作提交] 游戏ID已存在，重新生成", zap.String("game", id))
	}
	return "", ErrGameIDExhausted
}

// JoinGame 加入游戏。已同步到该游戏时还会检查阶段
func (s *Submitter) JoinGame(ctx context.Context, gameID, name, identityKey string) (string, error) {
	player, err := s.player()
	if err != nil {
		return "", err
	}
	if err := validateProfile(name, identityKey); err != nil {
		return "", err
	}
	if snap, err := s.snapshotFor(gameID); err == nil {
		if err := s.machine.Permits(snap, nil, models.ActionJoinGame, ""); err != nil {
			return "", err
		}
	}

	call, err := ledger.JoinGameCall(s.contract, player, gameID, name, identityKey)
	if err != nil {
		return "", invalid("%v", err)
	}
	return s.submit(ctx, models.ActionJoinGame, gameID, call)
}

// StartGame 开始游戏，玩家数需达到法定人数
func (s *Submitter) StartGame(ctx context.Context, gameID string) (string, error) {
	if _, err := s.player(); err != nil {
		return "", err
	}
	snap, err := s.snapshotFor(gameID)
	if err != nil {
		return "", err
	}
	if err := s.machine.Permits(snap, nil, models.ActionStartGame, ""); err != nil {
		return "", err
	}

	call, err := ledger.StartGameCall(s.contract, gameID)
	if err != nil {
		return "", invalid("%v", err)
	}
	return s.submit(ctx, models.ActionStartGame, gameID, call)
}

// CastModeratorVote 投票选出主持人
func (s *Submitter) CastModeratorVote(ctx context.Context, gameID, candidate string) (string, error) {
	return s.vote(ctx, models.ActionModeratorVote, gameID, candidate, ledger.ModeratorVoteCall)
}

// CastVote 放逐投票
func (s *Submitter) CastVote(ctx context.Context, gameID, candidate string) (string, error) {
	return s.vote(ctx, models.ActionVote, gameID, candidate, ledger.VoteCall)
}

type voteBuilder func(contract, player, gameID, candidate string) (ledger.Call, error)

// vote 投票前记录待确认选择：提交失败时清除，转发成功后才标记为已确认
func (s *Submitter) vote(ctx context.Context, action models.ActionType, gameID, candidate string, build voteBuilder) (string, error) {
	player, err := s.player()
	if err != nil {
		return "", err
	}
	snap, err := s.snapshotFor(gameID)
	if err != nil {
		return "", err
	}
	if err := s.machine.Permits(snap, s.state.ActiveSelection(), action, candidate); err != nil {
		return "", err
	}
	call, err := build(s.contract, player, gameID, candidate)
	if err != nil {
		return "", invalid("%v", err)
	}

	selected := s.state.TrySetSelection(models.Selection{
		Action:    action,
		Candidate: ledger.NormalizeAddress(candidate),
		Phase:     snap.State.CurrentPhase,
		Day:       snap.State.CurrentDay,
		Status:    models.SelectionInFlight,
	})
	if !selected {
		return "", invalid("已有一笔投票正在确认中")
	}

	hash, err := s.wallet.Execute(ctx, []ledger.Call{call})
	if err != nil {
		s.state.ClearSelection()
		s.metrics.actionSubmitted(string(action), "error")
		return "", fmt.Errorf("提交%s交易: %w", action, err)
	}
	s.metrics.actionSubmitted(string(action), "ok")

	if err := s.forward(ctx, action, hash, gameID); err != nil {
		return hash, err
	}
	s.state.ConfirmSelection()
	return hash, nil
}

func (s *Submitter) submit(ctx context.Context, action models.ActionType, gameID string, calls ...ledger.Call) (string, error) {
	hash, err := s.wallet.Execute(ctx, calls)
	if err != nil {
		s.metrics.actionSubmitted(string(action), "error")
		return "", fmt.Errorf("提交%s交易: %w", action, err)
	}
	s.metrics.actionSubmitted(string(action), "ok")

	if err := s.forward(ctx, action, hash, gameID); err != nil {
		return hash, err
	}
	return hash, nil
}

func (s *Submitter) forward(ctx context.Context, action models.ActionType, hash, gameID string) error {
	if err := s.relay.Forward(ctx, hash, gameID); err != nil {
		s.logger.Error("[动作提交] 转发交易失败",
			zap.String("action", string(action)),
			zap.String("tx", hash),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}
	s.logger.Info("[动作提交] 交易已提交并转发",
		zap.String("action", string(action)),
		zap.String("game", gameID),
		zap.String("tx", hash))
	return nil
}
