package services

import (
	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
)

// DefaultQuorum 开始游戏所需的最少玩家数
const DefaultQuorum = 4

// PhasePolicy 动作开放规则中可配置的部分
type PhasePolicy struct {
	Quorum                 int
	AllowSelfModeratorVote bool
}

// AvailableAction 当前可以发起的动作及可选目标
type AvailableAction struct {
	Type    models.ActionType `json:"type"`
	Targets []string          `json:"targets,omitempty"`
}

// StateMachine 链上阶段的被动投影：只根据最近一次快照决定开放哪些动作，
// 不维护转换表，链上报告的任何阶段跳转都接受
type StateMachine struct {
	policy PhasePolicy
}

// NewStateMachine 创建状态机实例
func NewStateMachine(policy PhasePolicy) *StateMachine {
	if policy.Quorum <= 0 {
		policy.Quorum = DefaultQuorum
	}
	return &StateMachine{policy: policy}
}

// Policy 当前规则
func (sm *StateMachine) Policy() PhasePolicy {
	return sm.policy
}

// AvailableActions 根据快照与本地待确认选择列出可用动作。snap 为 nil 时没有动作
func (sm *StateMachine) AvailableActions(snap *models.Snapshot, selection *models.Selection) []AvailableAction {
	if snap == nil {
		return nil
	}
	self := snap.CurrentPlayer()

	var actions []AvailableAction
	switch snap.State.CurrentPhase {
	case models.PhaseSetup:
		if self == nil {
			actions = append(actions, AvailableAction{Type: models.ActionJoinGame})
		}
		if len(snap.Players) >= sm.policy.Quorum {
			actions = append(actions, AvailableAction{Type: models.ActionStartGame})
		}
	case models.PhaseModeratorVote:
		if self == nil || self.HasVotedModerator || selection != nil {
			return nil
		}
		targets := sm.moderatorTargets(snap)
		if len(targets) > 0 {
			actions = append(actions, AvailableAction{Type: models.ActionModeratorVote, Targets: targets})
		}
	case models.PhaseDay, models.PhaseVoting:
		if self == nil || !self.IsActive || selection != nil {
			return nil
		}
		targets := voteTargets(snap)
		if len(targets) > 0 {
			actions = append(actions, AvailableAction{Type: models.ActionVote, Targets: targets})
		}
	}
	return actions
}

// Permits 检查动作是否开放、目标是否可选，不满足时返回 *ValidationError
func (sm *StateMachine) Permits(snap *models.Snapshot, selection *models.Selection, action models.ActionType, candidate string) error {
	if snap == nil {
		return noSnapshot("")
	}
	if selection != nil && (action == models.ActionModeratorVote || action == models.ActionVote) {
		return invalid("已有一笔投票正在确认中")
	}

	for _, available := range sm.AvailableActions(snap, selection) {
		if available.Type != action {
			continue
		}
		if action != models.ActionModeratorVote && action != models.ActionVote {
			return nil
		}
		for _, target := range available.Targets {
			if ledger.SameAddress(target, candidate) {
				return nil
			}
		}
		return invalid("%s 不是可选目标", candidate)
	}

	if action == models.ActionStartGame && snap.State.CurrentPhase == models.PhaseSetup {
		return invalid("玩家人数不足，至少需要 %d 人，当前 %d 人", sm.policy.Quorum, len(snap.Players))
	}
	return invalid("当前阶段（%s）不能执行 %s", snap.State.CurrentPhase, action)
}

func (sm *StateMachine) moderatorTargets(snap *models.Snapshot) []string {
	targets := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		if p.IsCurrentPlayer && !sm.policy.AllowSelfModeratorVote {
			continue
		}
		targets = append(targets, p.Address)
	}
	return targets
}

func voteTargets(snap *models.Snapshot) []string {
	targets := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		if !p.IsActive || p.IsCurrentPlayer {
			continue
		}
		targets = append(targets, p.Address)
	}
	return targets
}
