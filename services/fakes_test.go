package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
)

// fakeStore 记录聊天服务调用顺序
type fakeStore struct {
	mutex        sync.Mutex
	ops          []string
	batches      [][]models.NotificationMessage
	upsertErr    error
	appendErr    error
	beforeUpsert func()
}

func (f *fakeStore) UpsertConversation(ctx context.Context, gameID string) error {
	if f.beforeUpsert != nil {
		f.beforeUpsert()
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.ops = append(f.ops, "upsert:"+gameID)
	return f.upsertErr
}

func (f *fakeStore) AppendMessages(ctx context.Context, gameID string, messages []models.NotificationMessage) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.ops = append(f.ops, "append:"+gameID)
	if f.appendErr != nil {
		return f.appendErr
	}
	f.batches = append(f.batches, messages)
	return nil
}

func (f *fakeStore) calls() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.ops...)
}

// fakeReader 可控的链上读取
type fakeReader struct {
	mutex      sync.Mutex
	state      models.GameState
	players    []string
	infos      map[string]models.PlayerInfo
	stateErr   error
	playersErr error
	infoErr    error
	gate       chan struct{} // 非 nil 时 GameState 阻塞到关闭
	stateCalls int
}

func newFakeReader(phase models.GamePhase, day uint64, players ...models.PlayerInfo) *fakeReader {
	r := &fakeReader{
		state: models.GameState{Created: true, CurrentPhase: phase, CurrentDay: day, PlayerCount: uint64(len(players))},
		infos: make(map[string]models.PlayerInfo),
	}
	for _, p := range players {
		r.players = append(r.players, p.Address)
		r.infos[p.Address] = p
	}
	return r
}

func (r *fakeReader) GameState(ctx context.Context, gameID string) (models.GameState, error) {
	r.mutex.Lock()
	r.stateCalls++
	gate := r.gate
	r.mutex.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.GameState{}, ctx.Err()
		}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.state, r.stateErr
}

func (r *fakeReader) Players(ctx context.Context, gameID string) ([]string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]string(nil), r.players...), r.playersErr
}

func (r *fakeReader) PlayerInfo(ctx context.Context, gameID, address string) (models.PlayerInfo, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.infoErr != nil {
		return models.PlayerInfo{}, r.infoErr
	}
	info, ok := r.infos[address]
	if !ok {
		return models.PlayerInfo{}, fmt.Errorf("no player %s", address)
	}
	return info, nil
}

func (r *fakeReader) update(fn func(r *fakeReader)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	fn(r)
}

// fakeWallet 记录提交的调用
type fakeWallet struct {
	mutex   sync.Mutex
	address string
	hash    string
	err     error
	batches [][]ledger.Call
}

func (w *fakeWallet) Address() string { return w.address }

func (w *fakeWallet) Execute(ctx context.Context, calls []ledger.Call) (string, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.batches = append(w.batches, calls)
	if w.err != nil {
		return "", w.err
	}
	return w.hash, nil
}

func (w *fakeWallet) submitted() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return len(w.batches)
}

// fakeDirectory 前 taken 次查询返回已存在
type fakeDirectory struct {
	taken   int
	checked []string
	err     error
}

func (d *fakeDirectory) GameExists(ctx context.Context, gameID string) (bool, error) {
	d.checked = append(d.checked, gameID)
	if d.err != nil {
		return false, d.err
	}
	return len(d.checked) <= d.taken, nil
}

// fakeRelay 记录转发的交易
type fakeRelay struct {
	forwarded []string
	err       error
}

func (r *fakeRelay) Forward(ctx context.Context, txHash, gameID string) error {
	r.forwarded = append(r.forwarded, txHash+"@"+gameID)
	return r.err
}

// fakeSource 固定收据与ABI
type fakeSource struct {
	address   string
	abi       string
	receipt   *ledger.Receipt
	schemaErr error
	waitErr   error
}

func (s *fakeSource) Address() string { return s.address }

func (s *fakeSource) Schema(ctx context.Context) (*ledger.Schema, error) {
	if s.schemaErr != nil {
		return nil, s.schemaErr
	}
	return ledger.ParseSchema([]byte(s.abi))
}

func (s *fakeSource) WaitForReceipt(ctx context.Context, hash string) (*ledger.Receipt, error) {
	if s.waitErr != nil {
		return nil, s.waitErr
	}
	if s.receipt == nil {
		return nil, errors.New("no receipt")
	}
	r := *s.receipt
	r.TransactionHash = hash
	return &r, nil
}

func newPlayer(address, name string, active bool) models.PlayerInfo {
	return models.PlayerInfo{Address: address, Name: name, IsActive: active}
}
