package services

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/qianlnk/mafiachain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStateSnapshotIsCopied(t *testing.T) {
	cs := NewClientState()
	_, ok := cs.Snapshot()
	assert.False(t, ok)

	players := []models.PlayerInfo{newPlayer("0xa", "a", true)}
	cs.Replace(models.Snapshot{GameID: "g", Players: players})
	players[0].Name = "changed"

	snap, ok := cs.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "a", snap.Players[0].Name)

	snap.Players[0].Name = "again"
	again, _ := cs.Snapshot()
	assert.Equal(t, "a", again.Players[0].Name)
}

func TestClientStateSelectionLifecycle(t *testing.T) {
	cs := NewClientState()
	cs.Replace(*snapshotOf(models.PhaseDay, 2, "0xa", newPlayer("0xa", "a", true), newPlayer("0xb", "b", true)))

	require.True(t, cs.TrySetSelection(models.Selection{Action: models.ActionVote, Candidate: "0xb", Phase: models.PhaseDay, Day: 2, Status: models.SelectionInFlight}))
	assert.False(t, cs.TrySetSelection(models.Selection{Action: models.ActionVote, Candidate: "0xa", Phase: models.PhaseDay, Day: 2}))
	sel := cs.ActiveSelection()
	require.NotNil(t, sel)
	assert.Equal(t, models.SelectionInFlight, sel.Status)

	cs.ConfirmSelection()
	assert.Equal(t, models.SelectionConfirmed, cs.ActiveSelection().Status)

	cs.Replace(*snapshotOf(models.PhaseNight, 2, "0xa", newPlayer("0xa", "a", true)))
	assert.Nil(t, cs.ActiveSelection())

	cs.Replace(*snapshotOf(models.PhaseDay, 3, "0xa", newPlayer("0xa", "a", true)))
	assert.Nil(t, cs.ActiveSelection())

	cs.ClearSelection()
	cs.Replace(*snapshotOf(models.PhaseDay, 2, "0xa", newPlayer("0xa", "a", true)))
	assert.Nil(t, cs.ActiveSelection())
}

func TestClientStateModeratorVoteConfirmedByRoster(t *testing.T) {
	cs := NewClientState()
	cs.Replace(*snapshotOf(models.PhaseModeratorVote, 0, "0xa", newPlayer("0xa", "a", true), newPlayer("0xb", "b", true)))
	require.True(t, cs.TrySetSelection(models.Selection{Action: models.ActionModeratorVote, Candidate: "0xb", Phase: models.PhaseModeratorVote, Status: models.SelectionInFlight}))
	assert.Equal(t, models.SelectionInFlight, cs.ActiveSelection().Status)

	voted := newPlayer("0xa", "a", true)
	voted.HasVotedModerator = true
	cs.Replace(*snapshotOf(models.PhaseModeratorVote, 0, "0xa", voted, newPlayer("0xb", "b", true)))
	assert.Equal(t, models.SelectionConfirmed, cs.ActiveSelection().Status)
}

func TestClientStateSelectionWithoutSnapshot(t *testing.T) {
	cs := NewClientState()
	require.True(t, cs.TrySetSelection(models.Selection{Action: models.ActionVote, Candidate: "0xb"}))
	assert.NotNil(t, cs.ActiveSelection())
}

func TestClientStateTrySetSelectionOnce(t *testing.T) {
	cs := NewClientState()
	cs.Replace(*snapshotOf(models.PhaseDay, 1, "0xa", newPlayer("0xa", "a", true), newPlayer("0xb", "b", true)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cs.TrySetSelection(models.Selection{Action: models.ActionVote, Candidate: "0xb", Phase: models.PhaseDay, Day: 1}) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	cs.Replace(*snapshotOf(models.PhaseDay, 2, "0xa", newPlayer("0xa", "a", true), newPlayer("0xb", "b", true)))
	assert.True(t, cs.TrySetSelection(models.Selection{Action: models.ActionVote, Candidate: "0xb", Phase: models.PhaseDay, Day: 2}))
}
