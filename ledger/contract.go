package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

var (
	ErrTransactionNotFound = errors.New("交易不存在")
	ErrTransactionReverted = errors.New("交易执行被回滚")
	ErrTransactionRejected = errors.New("交易被拒绝")
)

// Starknet JSON-RPC 中表示交易哈希不存在的错误码（新旧版本）
const (
	codeTxnHashNotFound       = 29
	codeLegacyTxnHashNotFound = 25
)

// 读取接口入口函数
const (
	EntrypointGetGameState  = "get_game_state"
	EntrypointGetPlayers    = "get_players"
	EntrypointGetPlayerInfo = "get_player_info"
	EntrypointDoesGameExist = "does_game_exist"
)

// ContractConfig 合约句柄配置
type ContractConfig struct {
	Address             string
	ReceiptPollInterval time.Duration
	ABICacheTTL         time.Duration
}

// Contract 游戏合约句柄。每个进程（或每个测试）显式创建一次，用完调用 Close
type Contract struct {
	rpc          RPC
	address      string
	pollInterval time.Duration
	cache        *bigcache.BigCache
	logger       *zap.Logger
}

// NewContract 创建合约句柄
func NewContract(client RPC, cfg ContractConfig, logger *zap.Logger) (*Contract, error) {
	addr, err := ParseFelt(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("合约地址无效: %w", err)
	}

	ttl := cfg.ABICacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	cacheConfig := bigcache.DefaultConfig(ttl)
	cacheConfig.Shards = 16
	cacheConfig.MaxEntriesInWindow = 64
	cacheConfig.MaxEntrySize = 64 * 1024
	cacheConfig.Verbose = false
	cache, err := bigcache.New(context.Background(), cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("创建ABI缓存失败: %w", err)
	}

	interval := cfg.ReceiptPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	return &Contract{
		rpc:          client,
		address:      FeltHex(addr),
		pollInterval: interval,
		cache:        cache,
		logger:       logger.With(zap.String("module", "ledger")),
	}, nil
}

// Address 规范化后的合约地址
func (c *Contract) Address() string {
	return c.address
}

// Close 释放缓存与连接
func (c *Contract) Close() error {
	c.rpc.Close()
	return c.cache.Close()
}

type callRequest struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// Call 调用只读入口函数
func (c *Contract) Call(ctx context.Context, entrypoint string, calldata ...*big.Int) ([]*big.Int, error) {
	req := callRequest{
		ContractAddress:    c.address,
		EntryPointSelector: FeltHex(Selector(entrypoint)),
		Calldata:           FeltHexes(calldata),
	}

	var result []string
	if err := c.rpc.CallContext(ctx, &result, "starknet_call", req, "latest"); err != nil {
		return nil, fmt.Errorf("调用 %s 失败: %w", entrypoint, err)
	}

	felts := make([]*big.Int, 0, len(result))
	for _, s := range result {
		f, err := ParseFelt(s)
		if err != nil {
			return nil, fmt.Errorf("%s 返回值: %w", entrypoint, err)
		}
		felts = append(felts, f)
	}
	return felts, nil
}

// GameState 读取游戏状态
func (c *Contract) GameState(ctx context.Context, gameID string) (models.GameState, error) {
	id, err := EncodeGameID(gameID)
	if err != nil {
		return models.GameState{}, err
	}
	felts, err := c.Call(ctx, EntrypointGetGameState, id)
	if err != nil {
		return models.GameState{}, err
	}
	return decodeGameState(felts)
}

// Players 读取玩家地址名单，保持链上顺序
func (c *Contract) Players(ctx context.Context, gameID string) ([]string, error) {
	id, err := EncodeGameID(gameID)
	if err != nil {
		return nil, err
	}
	felts, err := c.Call(ctx, EntrypointGetPlayers, id)
	if err != nil {
		return nil, err
	}
	return decodeAddressArray(felts)
}

// PlayerInfo 读取单个玩家信息，名称已解码
func (c *Contract) PlayerInfo(ctx context.Context, gameID, address string) (models.PlayerInfo, error) {
	id, err := EncodeGameID(gameID)
	if err != nil {
		return models.PlayerInfo{}, err
	}
	addr, err := ParseFelt(address)
	if err != nil {
		return models.PlayerInfo{}, err
	}
	felts, err := c.Call(ctx, EntrypointGetPlayerInfo, id, addr)
	if err != nil {
		return models.PlayerInfo{}, err
	}
	return decodePlayerInfo(address, felts)
}

// GameExists 游戏是否已存在
func (c *Contract) GameExists(ctx context.Context, gameID string) (bool, error) {
	id, err := EncodeGameID(gameID)
	if err != nil {
		return false, err
	}
	felts, err := c.Call(ctx, EntrypointDoesGameExist, id)
	if err != nil {
		return false, err
	}
	if len(felts) == 0 {
		return false, fmt.Errorf("%w: does_game_exist 没有返回值", ErrMalformedResult)
	}
	return felts[0].Sign() != 0, nil
}

type classResponse struct {
	ABI json.RawMessage `json:"abi"`
}

// Schema 获取合约ABI中的事件定义，原始ABI按合约地址缓存
func (c *Contract) Schema(ctx context.Context) (*Schema, error) {
	if raw, err := c.cache.Get(c.address); err == nil {
		return ParseSchema(raw)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		c.logger.Warn("[ABI缓存] 读取失败", zap.Error(err))
	}

	var class classResponse
	if err := c.rpc.CallContext(ctx, &class, "starknet_getClassAt", "latest", c.address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}

	schema, err := ParseSchema(class.ABI)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(c.address, class.ABI); err != nil {
		c.logger.Warn("[ABI缓存] 写入失败", zap.Error(err))
	}
	c.logger.Info("[ABI缓存] 已加载合约事件定义", zap.String("contract", c.address), zap.Int("events", schema.Len()))
	return schema, nil
}

// TransactionReceipt 读取交易收据
func (c *Contract) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var receipt Receipt
	if err := c.rpc.CallContext(ctx, &receipt, "starknet_getTransactionReceipt", hash); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			code := rpcErr.ErrorCode()
			if code == codeTxnHashNotFound || code == codeLegacyTxnHashNotFound {
				return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, hash)
			}
		}
		return nil, fmt.Errorf("读取交易收据失败: %w", err)
	}
	return &receipt, nil
}

// WaitForReceipt 轮询直到交易被 L2 或 L1 接受。交易尚未可见或尚未被接受时继续等待，
// 直到 ctx 结束；回滚或被拒绝的交易返回错误
func (c *Contract) WaitForReceipt(ctx context.Context, hash string) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Rejected() {
				return nil, fmt.Errorf("%w: %s", ErrTransactionRejected, hash)
			}
			if receipt.Reverted() {
				return nil, fmt.Errorf("%w: %s %s", ErrTransactionReverted, hash, receipt.RevertReason)
			}
			if receipt.Accepted() {
				return receipt, nil
			}
			c.logger.Debug("[交易收据] 交易尚未被接受，继续等待",
				zap.String("tx", hash), zap.String("finality", receipt.FinalityStatus))
		case errors.Is(err, ErrTransactionNotFound):
			c.logger.Debug("[交易收据] 交易尚未可见，继续等待", zap.String("tx", hash))
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("等待交易 %s 超时: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}
