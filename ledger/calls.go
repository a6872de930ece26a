package ledger

import (
	"fmt"
	"math/big"
)

// 写入接口入口函数
const (
	EntrypointCreateGame        = "create_game"
	EntrypointJoinGame          = "join_game"
	EntrypointStartGame         = "start_game"
	EntrypointCastModeratorVote = "cast_moderator_vote"
	EntrypointCastVote          = "cast_vote"
)

// Call 一次合约调用，格式与钱包 wallet_addInvokeTransaction 的 calls 参数一致
type Call struct {
	ContractAddress string   `json:"contract_address"`
	Entrypoint      string   `json:"entry_point"`
	Calldata        []string `json:"calldata"`
}

func newCall(contract, entrypoint string, calldata ...*big.Int) Call {
	return Call{
		ContractAddress: NormalizeAddress(contract),
		Entrypoint:      entrypoint,
		Calldata:        FeltHexes(calldata),
	}
}

// CreateGameCall create_game(game_id)
func CreateGameCall(contract, gameID string) (Call, error) {
	id, err := EncodeGameID(gameID)
	if err != nil {
		return Call{}, err
	}
	return newCall(contract, EntrypointCreateGame, id), nil
}

// JoinGameCall join_game(player, game_id, player_name, identity_key_1, identity_key_2)
func JoinGameCall(contract, player, gameID, name, identityKey string) (Call, error) {
	playerFelt, err := ParseFelt(player)
	if err != nil {
		return Call{}, fmt.Errorf("玩家地址: %w", err)
	}
	id, err := EncodeGameID(gameID)
	if err != nil {
		return Call{}, err
	}
	nameFelt, err := EncodeShortString(name)
	if err != nil {
		return Call{}, fmt.Errorf("玩家名称: %w", err)
	}
	key, err := EncodeTwoFelts(identityKey)
	if err != nil {
		return Call{}, fmt.Errorf("身份公钥: %w", err)
	}
	return newCall(contract, EntrypointJoinGame, playerFelt, id, nameFelt, key[0], key[1]), nil
}

// StartGameCall start_game(game_id)
func StartGameCall(contract, gameID string) (Call, error) {
	id, err := EncodeGameID(gameID)
	if err != nil {
		return Call{}, err
	}
	return newCall(contract, EntrypointStartGame, id), nil
}

// ModeratorVoteCall cast_moderator_vote(player, game_id, candidate)
func ModeratorVoteCall(contract, player, gameID, candidate string) (Call, error) {
	return voteCall(contract, EntrypointCastModeratorVote, player, gameID, candidate)
}

// VoteCall cast_vote(player, game_id, candidate)
func VoteCall(contract, player, gameID, candidate string) (Call, error) {
	return voteCall(contract, EntrypointCastVote, player, gameID, candidate)
}

func voteCall(contract, entrypoint, player, gameID, candidate string) (Call, error) {
	playerFelt, err := ParseFelt(player)
	if err != nil {
		return Call{}, fmt.Errorf("玩家地址: %w", err)
	}
	id, err := EncodeGameID(gameID)
	if err != nil {
		return Call{}, err
	}
	candidateFelt, err := ParseFelt(candidate)
	if err != nil {
		return Call{}, fmt.Errorf("候选人地址: %w", err)
	}
	return newCall(contract, entrypoint, playerFelt, id, candidateFelt), nil
}
