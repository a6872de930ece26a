package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

// 单条日志被丢弃的原因，丢弃后继续解码其余日志
var (
	ErrForeignEmitter   = errors.New("日志不是由游戏合约发出")
	ErrUnknownSelector  = errors.New("未知的事件选择器")
	ErrUnsupportedEvent = errors.New("不支持的事件类型")
	ErrTruncatedEvent   = errors.New("事件字段不完整")
	ErrUnsupportedType  = errors.New("不支持的成员类型")
	ErrIntegerOverflow  = errors.New("整数字段溢出")
)

// DropHook 日志被丢弃时的回调
type DropHook func(index int, err error)

// Decoder 将交易收据中的日志解码为游戏事件
type Decoder struct {
	schema   *Schema
	contract *big.Int
	logger   *zap.Logger
	onDrop   DropHook
}

// DecoderOption 解码器选项
type DecoderOption func(*Decoder)

// WithDropHook 设置丢弃回调
func WithDropHook(hook DropHook) DecoderOption {
	return func(d *Decoder) { d.onDrop = hook }
}

// NewDecoder 创建解码器。contractAddress 为空时不过滤发出者
func NewDecoder(schema *Schema, contractAddress string, logger *zap.Logger, opts ...DecoderOption) *Decoder {
	d := &Decoder{schema: schema, logger: logger}
	if contractAddress != "" {
		if addr, err := ParseFelt(contractAddress); err == nil {
			d.contract = addr
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode 按收据中的顺序解码事件。无法识别的日志被丢弃，不影响其余日志的顺序；
// 只有在没有ABI时整体失败
func (d *Decoder) Decode(receipt *Receipt) ([]models.GameEvent, error) {
	if d.schema == nil {
		return nil, ErrSchemaUnavailable
	}
	if receipt == nil {
		return nil, nil
	}

	events := make([]models.GameEvent, 0, len(receipt.Events))
	for i, raw := range receipt.Events {
		event, err := d.decodeEntry(raw)
		if err != nil {
			d.logger.Debug("[事件解码] 丢弃日志",
				zap.String("tx", receipt.TransactionHash),
				zap.Int("index", i),
				zap.Error(err))
			if d.onDrop != nil {
				d.onDrop(i, err)
			}
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (d *Decoder) decodeEntry(raw EmittedEvent) (models.GameEvent, error) {
	if d.contract != nil {
		from, err := ParseFelt(raw.FromAddress)
		if err != nil || from.Cmp(d.contract) != 0 {
			return nil, fmt.Errorf("%w: %s", ErrForeignEmitter, raw.FromAddress)
		}
	}
	if len(raw.Keys) == 0 {
		return nil, fmt.Errorf("%w: 日志没有键", ErrUnknownSelector)
	}

	selector, err := ParseFelt(raw.Keys[0])
	if err != nil {
		return nil, err
	}
	spec, ok := d.schema.Lookup(selector)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, raw.Keys[0])
	}
	build, ok := eventBuilders[models.EventKind(spec.Variant)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, spec.Name)
	}

	fields, err := readMembers(spec, raw.Keys[1:], raw.Data)
	if err != nil {
		return nil, err
	}
	r := &fieldReader{fields: fields}
	event := build(r)
	if r.err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Variant, r.err)
	}
	return event, nil
}

func readMembers(spec *EventSpec, keys, data []string) (map[string][]*big.Int, error) {
	fields := make(map[string][]*big.Int, len(spec.Members))
	var keyPos, dataPos int
	for _, m := range spec.Members {
		width, err := typeWidth(m.Type)
		if err != nil {
			return nil, err
		}

		source, pos := data, &dataPos
		if m.Kind == MemberKey {
			source, pos = keys, &keyPos
		}
		if *pos+width > len(source) {
			return nil, fmt.Errorf("%w: %s.%s", ErrTruncatedEvent, spec.Variant, m.Name)
		}

		values := make([]*big.Int, width)
		for i := 0; i < width; i++ {
			v, err := ParseFelt(source[*pos+i])
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		*pos += width
		fields[m.Name] = values
	}
	return fields, nil
}

// fieldReader 按名称读取成员，记录第一个错误
type fieldReader struct {
	fields map[string][]*big.Int
	err    error
}

func (r *fieldReader) lookup(names ...string) ([]*big.Int, bool) {
	for _, name := range names {
		if v, ok := r.fields[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (r *fieldReader) felt(names ...string) *big.Int {
	if r.err != nil {
		return nil
	}
	v, ok := r.lookup(names...)
	if !ok {
		r.err = fmt.Errorf("%w: 缺少成员 %s", ErrTruncatedEvent, names[0])
		return nil
	}
	if len(v) == 2 {
		// u256: low + high<<128
		x := new(big.Int).Lsh(v[1], 128)
		return x.Add(x, v[0])
	}
	return v[0]
}

func (r *fieldReader) number(names ...string) uint64 {
	x := r.felt(names...)
	if r.err != nil {
		return 0
	}
	if !x.IsUint64() {
		r.err = fmt.Errorf("%w: %s", ErrIntegerOverflow, names[0])
		return 0
	}
	return x.Uint64()
}

var eventBuilders = map[models.EventKind]func(r *fieldReader) models.GameEvent{
	models.KindGameCreated: func(r *fieldReader) models.GameEvent {
		return models.GameCreated{GameID: r.felt("game_id")}
	},
	models.KindGameStarted: func(r *fieldReader) models.GameEvent {
		return models.GameStarted{GameID: r.felt("game_id"), PlayerCount: r.number("player_count")}
	},
	models.KindPlayerRegistered: func(r *fieldReader) models.GameEvent {
		return models.PlayerRegistered{
			GameID:        r.felt("game_id"),
			PlayerAddress: r.felt("player", "player_address"),
			PlayerName:    r.felt("name", "player_name"),
		}
	},
	models.KindModeratorVoteCast: func(r *fieldReader) models.GameEvent {
		return models.ModeratorVoteCast{
			GameID:        r.felt("game_id"),
			Voter:         r.felt("voter"),
			Candidate:     r.felt("candidate"),
			VoterName:     r.felt("voter_name"),
			CandidateName: r.felt("candidate_name"),
		}
	},
	models.KindModeratorChosen: func(r *fieldReader) models.GameEvent {
		return models.ModeratorChosen{
			GameID:    r.felt("game_id"),
			Moderator: r.felt("moderator"),
			Name:      r.felt("name"),
			VoteCount: r.number("vote_count"),
		}
	},
	models.KindRoleCommitmentSubmitted: func(r *fieldReader) models.GameEvent {
		return models.RoleCommitmentSubmitted{
			GameID:     r.felt("game_id"),
			Player:     r.felt("player"),
			PlayerName: r.felt("player_name"),
		}
	},
	models.KindVoteSubmitted: func(r *fieldReader) models.GameEvent {
		return models.VoteSubmitted{
			GameID:        r.felt("game_id"),
			Voter:         r.felt("voter"),
			Candidate:     r.felt("candidate"),
			VoterName:     r.felt("voter_name"),
			CandidateName: r.felt("candidate_name"),
			Day:           r.number("day"),
			Phase:         r.number("phase"),
		}
	},
	models.KindDayChanged: func(r *fieldReader) models.GameEvent {
		return models.DayChanged{GameID: r.felt("game_id"), NewDay: r.number("new_day")}
	},
	models.KindRoleRevealed: func(r *fieldReader) models.GameEvent {
		return models.RoleRevealed{
			GameID:     r.felt("game_id"),
			Player:     r.felt("player"),
			PlayerName: r.felt("player_name"),
			Role:       r.number("role"),
		}
	},
	models.KindPlayerEliminated: func(r *fieldReader) models.GameEvent {
		return models.PlayerEliminated{
			GameID:     r.felt("game_id"),
			Player:     r.felt("player"),
			PlayerName: r.felt("player_name"),
			Reason:     r.number("reason"),
		}
	},
	models.KindPhaseChanged: func(r *fieldReader) models.GameEvent {
		return models.PhaseChanged{GameID: r.felt("game_id"), NewPhase: r.number("new_phase")}
	},
	models.KindGameEnded: func(r *fieldReader) models.GameEvent {
		return models.GameEnded{GameID: r.felt("game_id"), Winner: r.number("winner")}
	},
}

// DropReason 丢弃原因的简短标签，用于指标
func DropReason(err error) string {
	switch {
	case errors.Is(err, ErrForeignEmitter):
		return "foreign_emitter"
	case errors.Is(err, ErrUnknownSelector):
		return "unknown_selector"
	case errors.Is(err, ErrUnsupportedEvent):
		return "unsupported_event"
	case errors.Is(err, ErrTruncatedEvent):
		return "truncated"
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrIntegerOverflow):
		return "overflow"
	case errors.Is(err, ErrInvalidFelt):
		return "invalid_felt"
	default:
		return "other"
	}
}
