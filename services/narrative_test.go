package services

import (
	"math/big"
	"testing"

	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func shortString(t *testing.T, s string) *big.Int {
	t.Helper()
	x, err := ledger.EncodeShortString(s)
	require.NoError(t, err)
	return x
}

func texts(messages []models.NotificationMessage) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text
	}
	return out
}

func TestTranslateSequence(t *testing.T) {
	narrator := NewNarrator(zaptest.NewLogger(t))
	messages := narrator.Translate([]models.GameEvent{
		models.GameCreated{GameID: big.NewInt(1)},
		models.DayChanged{GameID: big.NewInt(1), NewDay: 2},
	})

	assert.Equal(t, []models.NotificationMessage{
		{Text: "✨ *A new game has been created!*", Type: "SystemMessage"},
		{Text: "🌅 *A new day begins:* Day _2_.", Type: "SystemMessage"},
	}, messages)
}

func TestTranslateTexts(t *testing.T) {
	id := big.NewInt(1)
	alice := shortString(t, "alice")
	bob := shortString(t, "bob")
	addr, _ := ledger.ParseFelt("0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")

	tests := []struct {
		name  string
		event models.GameEvent
		text  string
	}{
		{"started", models.GameStarted{GameID: id, PlayerCount: 5}, "🎮 *The game has started!* Players joined: _5_."},
		{"registered", models.PlayerRegistered{GameID: id, PlayerAddress: addr, PlayerName: alice},
			"👤 *Player registered:* _alice (0x49d3...4dc7)_ has joined the game."},
		{"moderator vote", models.ModeratorVoteCast{GameID: id, VoterName: alice, CandidateName: bob},
			"🗳️ *Vote cast:* _alice_ voted for _bob_ to be the moderator."},
		{"moderator chosen", models.ModeratorChosen{GameID: id, Name: bob, VoteCount: 3},
			"👑 *Moderator chosen:* _bob_ with _3 votes_."},
		{"commitment", models.RoleCommitmentSubmitted{GameID: id, PlayerName: alice},
			"🔒 *Role commitment submitted:* _alice_ has locked in their role."},
		{"vote", models.VoteSubmitted{GameID: id, VoterName: alice, CandidateName: bob, Day: 2, Phase: 5},
			"📮 *Vote submitted:* _alice_ voted for _bob_ on day 2, phase 5."},
		{"villager revealed", models.RoleRevealed{GameID: id, PlayerName: bob, Role: 0}, "🎭 *Role revealed:* _bob_ was a _Villager_."},
		{"mafia revealed", models.RoleRevealed{GameID: id, PlayerName: bob, Role: 1}, "🎭 *Role revealed:* _bob_ was a _Mafia_."},
		{"voted out", models.PlayerEliminated{GameID: id, PlayerName: bob, Reason: 0}, "💀 *Player eliminated:* _bob_ was voted out."},
		{"killed", models.PlayerEliminated{GameID: id, PlayerName: bob, Reason: 1}, "💀 *Player eliminated:* _bob_ was killed by Mafia."},
		{"night", models.PhaseChanged{GameID: id, NewPhase: 4}, "⏳ *Phase changed:* Now it's the _Night phase_."},
		{"day", models.PhaseChanged{GameID: id, NewPhase: 5}, "⏳ *Phase changed:* Now it's the _Day phase_."},
		{"unknown phase", models.PhaseChanged{GameID: id, NewPhase: 9}, "⏳ *Phase changed:* Now it's the _Unknown phase_."},
		{"mafia win", models.GameEnded{GameID: id, Winner: 0}, "🏆 *Game ended:* _Mafia_ win!"},
		{"villagers win", models.GameEnded{GameID: id, Winner: 1}, "🏆 *Game ended:* _Villagers_ win!"},
	}

	narrator := NewNarrator(zaptest.NewLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := narrator.Translate([]models.GameEvent{tt.event})
			require.Len(t, messages, 1)
			assert.Equal(t, tt.text, messages[0].Text)
			assert.Equal(t, models.SystemMessage, messages[0].Type)
		})
	}
}

func TestTranslateSkipsIncompleteEvents(t *testing.T) {
	narrator := NewNarrator(zaptest.NewLogger(t))
	messages := narrator.Translate([]models.GameEvent{
		models.DayChanged{NewDay: 1},
		models.PlayerRegistered{GameID: big.NewInt(1), PlayerAddress: big.NewInt(0xa1)},
		models.RoleRevealed{GameID: big.NewInt(1)},
		models.DayChanged{NewDay: 2},
	})

	assert.Equal(t, []string{
		"🌅 *A new day begins:* Day _1_.",
		"🌅 *A new day begins:* Day _2_.",
	}, texts(messages))
}

func TestTranslateNonASCIINames(t *testing.T) {
	zoe := new(big.Int).SetBytes([]byte("zoë"))
	wide := new(big.Int).Lsh(big.NewInt(1), 250)

	narrator := NewNarrator(zaptest.NewLogger(t))
	messages := narrator.Translate([]models.GameEvent{
		models.PlayerRegistered{GameID: big.NewInt(1), PlayerAddress: big.NewInt(0xa1), PlayerName: zoe},
		models.RoleRevealed{GameID: big.NewInt(1), PlayerName: zoe, Role: 1},
		models.PlayerEliminated{GameID: big.NewInt(1), PlayerName: big.NewInt(0xff), Reason: 0},
		models.RoleRevealed{GameID: big.NewInt(1), PlayerName: wide},
	})

	assert.Equal(t, []string{
		"👤 *Player registered:* _zoë (0xa1...0xa1)_ has joined the game.",
		"🎭 *Role revealed:* _zoë_ was a _Mafia_.",
		"💀 *Player eliminated:* _0xff_ was voted out.",
		"🎭 *Role revealed:* _" + ledger.FeltHex(wide) + "_ was a _Villager_.",
	}, texts(messages))
}

func TestTranslateEmpty(t *testing.T) {
	messages := NewNarrator(zaptest.NewLogger(t)).Translate(nil)
	assert.Empty(t, messages)
}
