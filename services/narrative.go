package services

import (
	"fmt"
	"math/big"

	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
	"go.uber.org/zap"
)

// narrativePhases 播报中使用的阶段名称
var narrativePhases = map[uint64]string{
	0: "Game not created",
	1: "Game setup",
	2: "Moderator vote",
	3: "Role assignment",
	4: "Night",
	5: "Day",
}

func phaseText(p uint64) string {
	if text, ok := narrativePhases[p]; ok {
		return text
	}
	return "Unknown"
}

func roleText(role uint64) string {
	if role == 0 {
		return "Villager"
	}
	return "Mafia"
}

func reasonText(reason uint64) string {
	if reason == 0 {
		return "voted out"
	}
	return "killed by Mafia"
}

// winnerText 0 为黑手党获胜，非零为村民获胜
func winnerText(winner uint64) string {
	if winner == 0 {
		return "Mafia"
	}
	return "Villagers"
}

// Narrator 将游戏事件翻译为聊天系统消息，不做任何I/O
type Narrator struct {
	logger *zap.Logger
}

// NewNarrator 创建播报器
func NewNarrator(logger *zap.Logger) *Narrator {
	return &Narrator{logger: logger.With(zap.String("module", "narrative"))}
}

// Translate 每个事件至多产生一条消息，顺序与事件一致。缺少必需字段的事件被跳过
func (n *Narrator) Translate(events []models.GameEvent) []models.NotificationMessage {
	messages := make([]models.NotificationMessage, 0, len(events))
	for i, event := range events {
		line := &narration{}
		if err := event.Accept(line); err != nil {
			n.logger.Warn("[事件播报] 跳过无法翻译的事件",
				zap.Int("index", i),
				zap.String("kind", string(event.Kind())),
				zap.Error(err))
			continue
		}
		messages = append(messages, models.NewSystemMessage(line.text))
	}
	return messages
}

// narration 单个事件的翻译结果
type narration struct {
	text string
}

func (l *narration) say(format string, args ...interface{}) error {
	l.text = fmt.Sprintf(format, args...)
	return nil
}

func name(field string, x *big.Int) (string, error) {
	if x == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return ledger.FeltText(x), nil
}

func shortAddress(field string, x *big.Int) (string, error) {
	if x == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return ledger.ShortenAddress(ledger.FeltHex(x)), nil
}

func (l *narration) VisitGameCreated(e models.GameCreated) error {
	return l.say("✨ *A new game has been created!*")
}

func (l *narration) VisitGameStarted(e models.GameStarted) error {
	return l.say("🎮 *The game has started!* Players joined: _%d_.", e.PlayerCount)
}

func (l *narration) VisitPlayerRegistered(e models.PlayerRegistered) error {
	player, err := name("player_name", e.PlayerName)
	if err != nil {
		return err
	}
	addr, err := shortAddress("player_address", e.PlayerAddress)
	if err != nil {
		return err
	}
	return l.say("👤 *Player registered:* _%s (%s)_ has joined the game.", player, addr)
}

func (l *narration) VisitModeratorVoteCast(e models.ModeratorVoteCast) error {
	voter, err := name("voter_name", e.VoterName)
	if err != nil {
		return err
	}
	candidate, err := name("candidate_name", e.CandidateName)
	if err != nil {
		return err
	}
	return l.say("🗳️ *Vote cast:* _%s_ voted for _%s_ to be the moderator.", voter, candidate)
}

func (l *narration) VisitModeratorChosen(e models.ModeratorChosen) error {
	moderator, err := name("name", e.Name)
	if err != nil {
		return err
	}
	return l.say("👑 *Moderator chosen:* _%s_ with _%d votes_.", moderator, e.VoteCount)
}

func (l *narration) VisitRoleCommitmentSubmitted(e models.RoleCommitmentSubmitted) error {
	player, err := name("player_name", e.PlayerName)
	if err != nil {
		return err
	}
	return l.say("🔒 *Role commitment submitted:* _%s_ has locked in their role.", player)
}

func (l *narration) VisitVoteSubmitted(e models.VoteSubmitted) error {
	voter, err := name("voter_name", e.VoterName)
	if err != nil {
		return err
	}
	candidate, err := name("candidate_name", e.CandidateName)
	if err != nil {
		return err
	}
	return l.say("📮 *Vote submitted:* _%s_ voted for _%s_ on day %d, phase %d.", voter, candidate, e.Day, e.Phase)
}

func (l *narration) VisitDayChanged(e models.DayChanged) error {
	return l.say("🌅 *A new day begins:* Day _%d_.", e.NewDay)
}

func (l *narration) VisitRoleRevealed(e models.RoleRevealed) error {
	player, err := name("player_name", e.PlayerName)
	if err != nil {
		return err
	}
	return l.say("🎭 *Role revealed:* _%s_ was a _%s_.", player, roleText(e.Role))
}

func (l *narration) VisitPlayerEliminated(e models.PlayerEliminated) error {
	player, err := name("player_name", e.PlayerName)
	if err != nil {
		return err
	}
	return l.say("💀 *Player eliminated:* _%s_ was %s.", player, reasonText(e.Reason))
}

func (l *narration) VisitPhaseChanged(e models.PhaseChanged) error {
	return l.say("⏳ *Phase changed:* Now it's the _%s phase_.", phaseText(e.NewPhase))
}

func (l *narration) VisitGameEnded(e models.GameEnded) error {
	return l.say("🏆 *Game ended:* _%s_ win!", winnerText(e.Winner))
}
