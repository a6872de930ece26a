package models

import "math/big"

// EventKind 合约事件类型，取自合约事件枚举的变体名
type EventKind string

const (
	KindGameCreated             EventKind = "GameCreated"
	KindGameStarted             EventKind = "GameStarted"
	KindPlayerRegistered        EventKind = "PlayerRegistered"
	KindModeratorVoteCast       EventKind = "ModeratorVoteCast"
	KindModeratorChosen         EventKind = "ModeratorChosen"
	KindRoleCommitmentSubmitted EventKind = "RoleCommitmentSubmitted"
	KindVoteSubmitted           EventKind = "VoteSubmitted"
	KindDayChanged              EventKind = "DayChanged"
	KindRoleRevealed            EventKind = "RoleRevealed"
	KindPlayerEliminated        EventKind = "PlayerEliminated"
	KindPhaseChanged            EventKind = "PhaseChanged"
	KindGameEnded               EventKind = "GameEnded"
)

// GameEvent 解码后的游戏事件。实现者仅限本文件中的十二种事件
type GameEvent interface {
	Kind() EventKind
	Accept(v EventVisitor) error
}

// EventVisitor 按事件类型分派。新增事件类型时所有实现都必须补齐对应方法
type EventVisitor interface {
	VisitGameCreated(e GameCreated) error
	VisitGameStarted(e GameStarted) error
	VisitPlayerRegistered(e PlayerRegistered) error
	VisitModeratorVoteCast(e ModeratorVoteCast) error
	VisitModeratorChosen(e ModeratorChosen) error
	VisitRoleCommitmentSubmitted(e RoleCommitmentSubmitted) error
	VisitVoteSubmitted(e VoteSubmitted) error
	VisitDayChanged(e DayChanged) error
	VisitRoleRevealed(e RoleRevealed) error
	VisitPlayerEliminated(e PlayerEliminated) error
	VisitPhaseChanged(e PhaseChanged) error
	VisitGameEnded(e GameEnded) error
}

// 字段元素类型的字段使用 *big.Int，nil 表示缺失

type GameCreated struct {
	GameID *big.Int `json:"game_id"`
}

type GameStarted struct {
	GameID      *big.Int `json:"game_id"`
	PlayerCount uint64   `json:"player_count"`
}

type PlayerRegistered struct {
	GameID        *big.Int `json:"game_id"`
	PlayerAddress *big.Int `json:"player_address"`
	PlayerName    *big.Int `json:"player_name"`
}

type ModeratorVoteCast struct {
	GameID        *big.Int `json:"game_id"`
	Voter         *big.Int `json:"voter"`
	Candidate     *big.Int `json:"candidate"`
	VoterName     *big.Int `json:"voter_name"`
	CandidateName *big.Int `json:"candidate_name"`
}

type ModeratorChosen struct {
	GameID    *big.Int `json:"game_id"`
	Moderator *big.Int `json:"moderator"`
	Name      *big.Int `json:"name"`
	VoteCount uint64   `json:"vote_count"`
}

type RoleCommitmentSubmitted struct {
	GameID     *big.Int `json:"game_id"`
	Player     *big.Int `json:"player"`
	PlayerName *big.Int `json:"player_name"`
}

type VoteSubmitted struct {
	GameID        *big.Int `json:"game_id"`
	Voter         *big.Int `json:"voter"`
	Candidate     *big.Int `json:"candidate"`
	VoterName     *big.Int `json:"voter_name"`
	CandidateName *big.Int `json:"candidate_name"`
	Day           uint64   `json:"day"`
	Phase         uint64   `json:"phase"`
}

type DayChanged struct {
	GameID *big.Int `json:"game_id"`
	NewDay uint64   `json:"new_day"`
}

type RoleRevealed struct {
	GameID     *big.Int `json:"game_id"`
	Player     *big.Int `json:"player"`
	PlayerName *big.Int `json:"player_name"`
	Role       uint64   `json:"role"`
}

type PlayerEliminated struct {
	GameID     *big.Int `json:"game_id"`
	Player     *big.Int `json:"player"`
	PlayerName *big.Int `json:"player_name"`
	Reason     uint64   `json:"reason"`
}

type PhaseChanged struct {
	GameID   *big.Int `json:"game_id"`
	NewPhase uint64   `json:"new_phase"`
}

type GameEnded struct {
	GameID *big.Int `json:"game_id"`
	Winner uint64   `json:"winner"`
}

func (GameCreated) Kind() EventKind             { return KindGameCreated }
func (GameStarted) Kind() EventKind             { return KindGameStarted }
func (PlayerRegistered) Kind() EventKind        { return KindPlayerRegistered }
func (ModeratorVoteCast) Kind() EventKind       { return KindModeratorVoteCast }
func (ModeratorChosen) Kind() EventKind         { return KindModeratorChosen }
func (RoleCommitmentSubmitted) Kind() EventKind { return KindRoleCommitmentSubmitted }
func (VoteSubmitted) Kind() EventKind           { return KindVoteSubmitted }
func (DayChanged) Kind() EventKind              { return KindDayChanged }
func (RoleRevealed) Kind() EventKind            { return KindRoleRevealed }
func (PlayerEliminated) Kind() EventKind        { return KindPlayerEliminated }
func (PhaseChanged) Kind() EventKind            { return KindPhaseChanged }
func (GameEnded) Kind() EventKind               { return KindGameEnded }

func (e GameCreated) Accept(v EventVisitor) error       { return v.VisitGameCreated(e) }
func (e GameStarted) Accept(v EventVisitor) error       { return v.VisitGameStarted(e) }
func (e PlayerRegistered) Accept(v EventVisitor) error  { return v.VisitPlayerRegistered(e) }
func (e ModeratorVoteCast) Accept(v EventVisitor) error { return v.VisitModeratorVoteCast(e) }
func (e ModeratorChosen) Accept(v EventVisitor) error   { return v.VisitModeratorChosen(e) }
func (e RoleCommitmentSubmitted) Accept(v EventVisitor) error {
	return v.VisitRoleCommitmentSubmitted(e)
}
func (e VoteSubmitted) Accept(v EventVisitor) error    { return v.VisitVoteSubmitted(e) }
func (e DayChanged) Accept(v EventVisitor) error       { return v.VisitDayChanged(e) }
func (e RoleRevealed) Accept(v EventVisitor) error     { return v.VisitRoleRevealed(e) }
func (e PlayerEliminated) Accept(v EventVisitor) error { return v.VisitPlayerEliminated(e) }
func (e PhaseChanged) Accept(v EventVisitor) error     { return v.VisitPhaseChanged(e) }
func (e GameEnded) Accept(v EventVisitor) error        { return v.VisitGameEnded(e) }
