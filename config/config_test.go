package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Ledger.ReceiptPollInterval)
	assert.Equal(t, 2*time.Minute, cfg.Ledger.ReceiptTimeout)
	assert.Equal(t, 5*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 4, cfg.Sync.Quorum)
	assert.False(t, cfg.Sync.AllowSelfModeratorVote)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.ErrorIs(t, cfg.ValidateLedger(), ErrMissingRPCURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MAFIA_SYNC_QUORUM", "6")
	t.Setenv("MAFIA_SYNC_INTERVAL", "250ms")
	t.Setenv("MAFIA_LEDGER_RPC_URL", "http://node.test")
	t.Setenv("MAFIA_LEDGER_CONTRACT_ADDRESS", "0x123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Sync.Quorum)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.Interval)
	assert.NoError(t, cfg.ValidateLedger())
	assert.ErrorIs(t, cfg.ValidateServe(), ErrMissingChat)
	assert.ErrorIs(t, cfg.ValidateWallet(), ErrMissingSigner)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mafia.yaml")
	content := `
server:
  addr: ":9000"
ledger:
  rpc_url: "http://node.test"
  contract_address: "0xabc"
chat:
  app_id: "app"
  secret_key: "secret"
sync:
  quorum: 5
  allow_self_moderator_vote: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Sync.Quorum)
	assert.True(t, cfg.Sync.AllowSelfModeratorVote)
	assert.Equal(t, "Mafia game", cfg.Chat.SubjectPrefix)
	assert.NoError(t, cfg.ValidateServe())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadSync(t *testing.T) {
	cfg := &Config{Ledger: LedgerConfig{RPCURL: "x", ContractAddress: "y"}, Sync: SyncConfig{Interval: time.Second}}
	assert.ErrorIs(t, cfg.ValidateLedger(), ErrInvalidQuorum)

	cfg.Sync.Quorum = 4
	cfg.Sync.Interval = 0
	assert.ErrorIs(t, cfg.ValidateLedger(), ErrInvalidInterval)
}
