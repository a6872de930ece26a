package models

import "time"

// GamePhase 游戏阶段，取值与合约中的枚举序号一致
type GamePhase uint8

const (
	PhaseNotCreated     GamePhase = iota // 游戏未创建
	PhaseSetup                           // 等待玩家加入
	PhaseModeratorVote                   // 主持人投票
	PhaseRoleAssignment                  // 角色分配
	PhaseNight                           // 夜晚
	PhaseDay                             // 白天
	PhaseVoting                          // 白天之后的投票阶段（可选）
)

func (p GamePhase) String() string {
	switch p {
	case PhaseNotCreated:
		return "Game not created"
	case PhaseSetup:
		return "Game setup"
	case PhaseModeratorVote:
		return "Moderator vote"
	case PhaseRoleAssignment:
		return "Role assignment"
	case PhaseNight:
		return "Night"
	case PhaseDay:
		return "Day"
	case PhaseVoting:
		return "Voting"
	default:
		return "Unknown"
	}
}

// Role 公开后的角色
type Role uint8

const (
	RoleVillager Role = 0 // 村民
	RoleMafia    Role = 1 // 黑手党，非零值都视为黑手党
)

// EliminationReason 出局原因
type EliminationReason uint8

const (
	ReasonVotedOut      EliminationReason = 0 // 被投票出局
	ReasonKilledByMafia EliminationReason = 1 // 被黑手党杀害
)

// EliminationInfo 出局信息
type EliminationInfo struct {
	Reason           EliminationReason `json:"reason"`
	MafiaRemaining   uint64            `json:"mafia_remaining"`
	Mafia1Commitment string            `json:"mafia_1_commitment"`
	Mafia2Commitment string            `json:"mafia_2_commitment"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	Address           string          `json:"address"`
	Name              string          `json:"name"`
	IsCurrentPlayer   bool            `json:"is_current_player"` // 本地推导，不来自链上
	PublicIdentityKey string          `json:"public_identity_key"`
	HasVotedModerator bool            `json:"has_voted_moderator"`
	IsModerator       bool            `json:"is_moderator"`
	IsActive          bool            `json:"is_active"`
	RoleCommitment    string          `json:"role_commitment"`
	RevealedRole      Role            `json:"revealed_role"`
	EliminationInfo   EliminationInfo `json:"elimination_info"`
}

// GameState 链上游戏状态
type GameState struct {
	Created             bool      `json:"created"`
	Started             bool      `json:"started"`
	Ended               bool      `json:"ended"`
	CurrentPhase        GamePhase `json:"current_phase"`
	PlayerCount         uint64    `json:"player_count"`
	CurrentDay          uint64    `json:"current_day"`
	Moderator           string    `json:"moderator"`
	IsModeratorChosen   bool      `json:"is_moderator_chosen"`
	MafiaCount          uint64    `json:"mafia_count"`
	VillagerCount       uint64    `json:"villager_count"`
	ModeratorCount      uint64    `json:"moderator_count"`
	ActiveMafiaCount    uint64    `json:"active_mafia_count"`
	ActiveVillagerCount uint64    `json:"active_villager_count"`
}

// Snapshot 一次成功轮询得到的完整视图，整体替换，不做字段级合并
type Snapshot struct {
	GameID    string       `json:"game_id"`
	State     GameState    `json:"state"`
	Players   []PlayerInfo `json:"players"`
	SelfFound bool         `json:"self_found"`
	Version   uint64       `json:"version"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CurrentPlayer 返回本地玩家，不在名单中时返回nil
func (s *Snapshot) CurrentPlayer() *PlayerInfo {
	for i := range s.Players {
		if s.Players[i].IsCurrentPlayer {
			return &s.Players[i]
		}
	}
	return nil
}

// ActionType 客户端可以发起的动作
type ActionType string

const (
	ActionCreateGame    ActionType = "create_game"
	ActionJoinGame      ActionType = "join_game"
	ActionStartGame     ActionType = "start_game"
	ActionModeratorVote ActionType = "moderator_vote"
	ActionVote          ActionType = "vote"
)

// SelectionStatus 待确认选择的状态
type SelectionStatus string

const (
	SelectionInFlight  SelectionStatus = "in_flight" // 交易已发起，尚未确认
	SelectionConfirmed SelectionStatus = "confirmed" // 交易已提交并已转发给事件接口
)

// Selection 本地乐观持有的投票选择
type Selection struct {
	Action    ActionType      `json:"action"`
	Candidate string          `json:"candidate"`
	Phase     GamePhase       `json:"phase"`
	Day       uint64          `json:"day"`
	Status    SelectionStatus `json:"status"`
}

// SystemMessage 聊天服务中的系统消息类型
const SystemMessage = "SystemMessage"

// NotificationMessage 发往聊天服务的一条消息
type NotificationMessage struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// NewSystemMessage 创建系统消息
func NewSystemMessage(text string) NotificationMessage {
	return NotificationMessage{Text: text, Type: SystemMessage}
}
