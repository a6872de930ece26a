package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// RPC JSON-RPC 调用接口，*rpc.Client 满足该接口
type RPC interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// Dial 连接 Starknet 节点
func Dial(ctx context.Context, url string) (*rpc.Client, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("连接节点 %s 失败: %w", url, err)
	}
	return client, nil
}
