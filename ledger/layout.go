package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/qianlnk/mafiachain/models"
)

// 合约读取接口的返回布局（每项一个字段元素）：
//
//	get_game_state:  created, started, ended, current_phase, player_count, current_day, moderator,
//	                 is_moderator_chosen, mafia_count, villager_count, moderator_count,
//	                 active_mafia_count, active_villager_count
//	get_player_info: name, public_identity_key_1, public_identity_key_2, has_voted_moderator,
//	                 is_moderator, is_active, role_commitment, revealed_role,
//	                 elimination_info.reason, elimination_info.mafia_remaining,
//	                 elimination_info.mafia_1_commitment, elimination_info.mafia_2_commitment
//	get_players:     Array<ContractAddress>（长度 + 元素）
const (
	gameStateWidth  = 13
	playerInfoWidth = 12
)

// ErrMalformedResult 合约调用返回值与约定布局不符
var ErrMalformedResult = errors.New("合约返回值格式错误")

// resultReader 顺序读取调用结果，记录第一个错误
type resultReader struct {
	felts []*big.Int
	pos   int
	err   error
}

func (r *resultReader) next() *big.Int {
	if r.err != nil {
		return big.NewInt(0)
	}
	if r.pos >= len(r.felts) {
		r.err = fmt.Errorf("%w: 返回值长度 %d", ErrMalformedResult, len(r.felts))
		return big.NewInt(0)
	}
	v := r.felts[r.pos]
	r.pos++
	return v
}

func (r *resultReader) flag() bool {
	return r.next().Sign() != 0
}

func (r *resultReader) number() uint64 {
	v := r.next()
	if r.err == nil && !v.IsUint64() {
		r.err = fmt.Errorf("%w: %s", ErrIntegerOverflow, FeltHex(v))
		return 0
	}
	return v.Uint64()
}

func (r *resultReader) hex() string {
	return FeltHex(r.next())
}

// text 解码名称文本，见 FeltText
func (r *resultReader) text() string {
	return FeltText(r.next())
}

func decodeGameState(felts []*big.Int) (models.GameState, error) {
	if len(felts) < gameStateWidth {
		return models.GameState{}, fmt.Errorf("%w: get_game_state 返回 %d 个值", ErrMalformedResult, len(felts))
	}
	r := &resultReader{felts: felts}
	state := models.GameState{
		Created:             r.flag(),
		Started:             r.flag(),
		Ended:               r.flag(),
		CurrentPhase:        models.GamePhase(r.number()),
		PlayerCount:         r.number(),
		CurrentDay:          r.number(),
		Moderator:           r.hex(),
		IsModeratorChosen:   r.flag(),
		MafiaCount:          r.number(),
		VillagerCount:       r.number(),
		ModeratorCount:      r.number(),
		ActiveMafiaCount:    r.number(),
		ActiveVillagerCount: r.number(),
	}
	return state, r.err
}

func decodePlayerInfo(address string, felts []*big.Int) (models.PlayerInfo, error) {
	if len(felts) < playerInfoWidth {
		return models.PlayerInfo{}, fmt.Errorf("%w: get_player_info 返回 %d 个值", ErrMalformedResult, len(felts))
	}
	r := &resultReader{felts: felts}
	info := models.PlayerInfo{Address: NormalizeAddress(address), Name: r.text()}

	key1, key2 := r.next(), r.next()
	if key, err := DecodeTwoFelts(key1, key2); err == nil {
		info.PublicIdentityKey = key
	} else {
		info.PublicIdentityKey = FeltHex(key1) + ":" + FeltHex(key2)
	}

	info.HasVotedModerator = r.flag()
	info.IsModerator = r.flag()
	info.IsActive = r.flag()
	info.RoleCommitment = r.hex()
	info.RevealedRole = models.Role(r.number())
	info.EliminationInfo = models.EliminationInfo{
		Reason:           models.EliminationReason(r.number()),
		MafiaRemaining:   r.number(),
		Mafia1Commitment: r.hex(),
		Mafia2Commitment: r.hex(),
	}
	return info, r.err
}

func decodeAddressArray(felts []*big.Int) ([]string, error) {
	if len(felts) == 0 {
		return nil, fmt.Errorf("%w: get_players 没有返回数组长度", ErrMalformedResult)
	}
	n := felts[0]
	if !n.IsUint64() || n.Uint64() != uint64(len(felts)-1) {
		return nil, fmt.Errorf("%w: 数组长度 %s 与返回值个数 %d 不符", ErrMalformedResult, n.String(), len(felts)-1)
	}
	out := make([]string, 0, len(felts)-1)
	for _, f := range felts[1:] {
		out = append(out, FeltHex(f))
	}
	return out, nil
}
