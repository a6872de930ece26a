package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinGameCall(t *testing.T) {
	call, err := JoinGameCall("0x0123ABC", "0xa1", "game_abc", "alice", "pk-alice")
	require.NoError(t, err)

	id, _ := EncodeGameID("game_abc")
	name, _ := EncodeShortString("alice")
	key, _ := EncodeShortString("pk-alice")
	assert.Equal(t, Call{
		ContractAddress: "0x123abc",
		Entrypoint:      EntrypointJoinGame,
		Calldata:        []string{"0xa1", FeltHex(id), FeltHex(name), FeltHex(key), "0x0"},
	}, call)
}

func TestJoinGameCallValidation(t *testing.T) {
	_, err := JoinGameCall(testContract, "not-an-address", "1", "alice", "")
	assert.ErrorIs(t, err, ErrInvalidFelt)

	_, err = JoinGameCall(testContract, "0xa1", "1", strings.Repeat("n", 32), "")
	assert.ErrorIs(t, err, ErrShortStringTooLong)

	_, err = JoinGameCall(testContract, "0xa1", "1", "alice", strings.Repeat("k", 63))
	assert.ErrorIs(t, err, ErrLongStringTooLong)
}

func TestVoteCalls(t *testing.T) {
	call, err := VoteCall(testContract, "0xa1", "7", "0xB2")
	require.NoError(t, err)
	assert.Equal(t, EntrypointCastVote, call.Entrypoint)
	assert.Equal(t, []string{"0xa1", "0x7", "0xb2"}, call.Calldata)

	call, err = ModeratorVoteCall(testContract, "0xa1", "7", "0xb2")
	require.NoError(t, err)
	assert.Equal(t, EntrypointCastModeratorVote, call.Entrypoint)

	_, err = VoteCall(testContract, "0xa1", "7", "bob")
	assert.ErrorIs(t, err, ErrInvalidFelt)
}

func TestCreateAndStartCalls(t *testing.T) {
	call, err := CreateGameCall(testContract, "42")
	require.NoError(t, err)
	assert.Equal(t, Call{ContractAddress: "0x123abc", Entrypoint: EntrypointCreateGame, Calldata: []string{"0x2a"}}, call)

	call, err = StartGameCall(testContract, "42")
	require.NoError(t, err)
	assert.Equal(t, EntrypointStartGame, call.Entrypoint)

	_, err = StartGameCall(testContract, "")
	assert.ErrorIs(t, err, ErrInvalidFelt)
}

func TestConnectSigner(t *testing.T) {
	client := newFakeRPC(func(method string, args []interface{}) (interface{}, error) {
		assert.Equal(t, "wallet_requestAccounts", method)
		return []string{"0x00A1", "0xB2"}, nil
	})

	wallet, err := ConnectSigner(context.Background(), client, "")
	require.NoError(t, err)
	assert.Equal(t, "0xa1", wallet.Address())

	wallet, err = ConnectSigner(context.Background(), client, "0xb2")
	require.NoError(t, err)
	assert.Equal(t, "0xb2", wallet.Address())

	_, err = ConnectSigner(context.Background(), client, "0xc3")
	assert.ErrorIs(t, err, ErrWalletNotConnected)
}

func TestConnectSignerWithoutAccounts(t *testing.T) {
	_, err := ConnectSigner(context.Background(), newFakeRPC(func(string, []interface{}) (interface{}, error) {
		return []string{}, nil
	}), "")
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	_, err = ConnectSigner(context.Background(), newFakeRPC(func(string, []interface{}) (interface{}, error) {
		return nil, errors.New("user rejected")
	}), "")
	assert.ErrorIs(t, err, ErrWalletNotConnected)
}

func TestSignerWalletExecute(t *testing.T) {
	var sent invokeRequest
	client := newFakeRPC(func(method string, args []interface{}) (interface{}, error) {
		switch method {
		case "wallet_requestAccounts":
			return []string{"0xa1"}, nil
		case "wallet_addInvokeTransaction":
			sent = args[0].(invokeRequest)
			return map[string]string{"transaction_hash": "0xfeed"}, nil
		}
		return nil, errors.New("unexpected")
	})
	wallet, err := ConnectSigner(context.Background(), client, "")
	require.NoError(t, err)

	create, _ := CreateGameCall(testContract, "1")
	join, _ := JoinGameCall(testContract, wallet.Address(), "1", "alice", "")
	hash, err := wallet.Execute(context.Background(), []Call{create, join})
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", hash)
	require.Len(t, sent.Calls, 2)
	assert.Equal(t, EntrypointCreateGame, sent.Calls[0].Entrypoint)
	assert.Equal(t, EntrypointJoinGame, sent.Calls[1].Entrypoint)

	wallet.Close()
	assert.True(t, client.closed)
}

func TestSignerWalletExecuteWithoutHash(t *testing.T) {
	wallet := &SignerWallet{rpc: newFakeRPC(func(string, []interface{}) (interface{}, error) {
		return map[string]string{}, nil
	}), address: "0xa1"}

	_, err := wallet.Execute(context.Background(), nil)
	assert.Error(t, err)
}
