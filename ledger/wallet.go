package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrWalletNotConnected 没有可用的钱包账户
var ErrWalletNotConnected = errors.New("钱包未连接")

// Wallet 外部钱包：提供当前账户地址并签名提交调用
type Wallet interface {
	Address() string
	Execute(ctx context.Context, calls []Call) (string, error)
}

// SignerWallet 通过 Starknet 钱包 JSON-RPC 接口（wallet_requestAccounts、
// wallet_addInvokeTransaction）与外部签名服务交互
type SignerWallet struct {
	rpc     RPC
	address string
}

// ConnectSigner 向签名服务请求账户。preferred 非空时必须在返回的账户中
func ConnectSigner(ctx context.Context, client RPC, preferred string) (*SignerWallet, error) {
	var accounts []string
	if err := client.CallContext(ctx, &accounts, "wallet_requestAccounts", map[string]bool{"silent_mode": false}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWalletNotConnected, err)
	}
	if len(accounts) == 0 {
		return nil, ErrWalletNotConnected
	}

	address := accounts[0]
	if preferred != "" {
		address = ""
		for _, acc := range accounts {
			if SameAddress(acc, preferred) {
				address = acc
				break
			}
		}
		if address == "" {
			return nil, fmt.Errorf("%w: 签名服务没有账户 %s", ErrWalletNotConnected, preferred)
		}
	}

	return &SignerWallet{rpc: client, address: NormalizeAddress(address)}, nil
}

// Address 当前账户地址
func (w *SignerWallet) Address() string {
	return w.address
}

type invokeRequest struct {
	Calls []Call `json:"calls"`
}

type invokeResult struct {
	TransactionHash string `json:"transaction_hash"`
}

// Execute 提交调用并返回交易哈希
func (w *SignerWallet) Execute(ctx context.Context, calls []Call) (string, error) {
	var result invokeResult
	if err := w.rpc.CallContext(ctx, &result, "wallet_addInvokeTransaction", invokeRequest{Calls: calls}); err != nil {
		return "", fmt.Errorf("提交交易失败: %w", err)
	}
	if result.TransactionHash == "" {
		return "", errors.New("钱包没有返回交易哈希")
	}
	return result.TransactionHash, nil
}

// Close 关闭与签名服务的连接
func (w *SignerWallet) Close() {
	w.rpc.Close()
}
