package services

import (
	"sync"

	"github.com/qianlnk/mafiachain/models"
)

// ClientState 客户端本地状态：最近一次完整快照与一笔待确认的投票选择。
// 快照只由同步器写入，选择只由提交器写入
type ClientState struct {
	snapshot  *models.Snapshot
	selection *models.Selection
	mutex     sync.RWMutex
}

// NewClientState 创建空状态
func NewClientState() *ClientState {
	return &ClientState{}
}

// Replace 整体替换快照
func (cs *ClientState) Replace(snap models.Snapshot) {
	snap.Players = clonePlayers(snap.Players)

	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	cs.snapshot = &snap
}

// Snapshot 返回最近一次快照的副本
func (cs *ClientState) Snapshot() (models.Snapshot, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if cs.snapshot == nil {
		return models.Snapshot{}, false
	}
	snap := *cs.snapshot
	snap.Players = clonePlayers(snap.Players)
	return snap, true
}

// ConfirmSelection 交易已提交并转发成功
func (cs *ClientState) ConfirmSelection() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	if cs.selection != nil {
		cs.selection.Status = models.SelectionConfirmed
	}
}

// ClearSelection 清除选择，允许重新投票
func (cs *ClientState) ClearSelection() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	cs.selection = nil
}

// TrySetSelection 没有有效选择时记录 sel 并返回 true，已有有效选择时返回 false
func (cs *ClientState) TrySetSelection(sel models.Selection) bool {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if cs.activeSelection() != nil {
		return false
	}
	cs.selection = &sel
	return true
}

// ActiveSelection 当前仍然有效的选择。阶段或天数变化后的旧选择视为无效；
// 名单显示已投过主持人票时，主持人投票视为已确认
func (cs *ClientState) ActiveSelection() *models.Selection {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()
	return cs.activeSelection()
}

// activeSelection 调用方需持有锁
func (cs *ClientState) activeSelection() *models.Selection {
	if cs.selection == nil {
		return nil
	}
	sel := *cs.selection
	if cs.snapshot == nil {
		return &sel
	}

	state := cs.snapshot.State
	if state.CurrentPhase != sel.Phase || state.CurrentDay != sel.Day {
		return nil
	}
	if sel.Action == models.ActionModeratorVote {
		if self := cs.snapshot.CurrentPlayer(); self != nil && self.HasVotedModerator {
			sel.Status = models.SelectionConfirmed
		}
	}
	return &sel
}

func clonePlayers(players []models.PlayerInfo) []models.PlayerInfo {
	if players == nil {
		return nil
	}
	out := make([]models.PlayerInfo, len(players))
	copy(out, players)
	return out
}
