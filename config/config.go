// Package config 读取服务配置：配置文件、MAFIA_ 前缀的环境变量与默认值
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingRPCURL   = errors.New("未配置 ledger.rpc_url")
	ErrMissingContract = errors.New("未配置 ledger.contract_address")
	ErrMissingChat     = errors.New("未配置 chat.app_id 或 chat.secret_key")
	ErrMissingSigner   = errors.New("未配置 wallet.signer_url")
	ErrInvalidQuorum   = errors.New("sync.quorum 必须大于0")
	ErrInvalidInterval = errors.New("sync.interval 必须大于0")
)

// EnvPrefix 环境变量前缀，例如 MAFIA_LEDGER_RPC_URL
const EnvPrefix = "MAFIA"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Relay  RelayConfig  `mapstructure:"relay"`
	Wallet WalletConfig `mapstructure:"wallet"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

type LedgerConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	ContractAddress     string        `mapstructure:"contract_address"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	ReceiptTimeout      time.Duration `mapstructure:"receipt_timeout"`
	ABICacheTTL         time.Duration `mapstructure:"abi_cache_ttl"`
}

type ChatConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	AppID         string        `mapstructure:"app_id"`
	SecretKey     string        `mapstructure:"secret_key"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	Interval               time.Duration `mapstructure:"interval"`
	Quorum                 int           `mapstructure:"quorum"`
	AllowSelfModeratorVote bool          `mapstructure:"allow_self_moderator_vote"`
}

type RelayConfig struct {
	EventsURL string `mapstructure:"events_url"`
}

type WalletConfig struct {
	SignerURL string `mapstructure:"signer_url"`
	Address   string `mapstructure:"address"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Console    bool   `mapstructure:"console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origin", "*")

	v.SetDefault("ledger.rpc_url", "")
	v.SetDefault("ledger.contract_address", "")
	v.SetDefault("ledger.receipt_poll_interval", 2*time.Second)
	v.SetDefault("ledger.receipt_timeout", 2*time.Minute)
	v.SetDefault("ledger.abi_cache_ttl", 10*time.Minute)

	v.SetDefault("chat.base_url", "https://api.talkjs.com/v1")
	v.SetDefault("chat.app_id", "")
	v.SetDefault("chat.secret_key", "")
	v.SetDefault("chat.subject_prefix", "Mafia game")
	v.SetDefault("chat.timeout", 10*time.Second)

	v.SetDefault("sync.interval", 5*time.Second)
	v.SetDefault("sync.quorum", 4)
	v.SetDefault("sync.allow_self_moderator_vote", false)

	v.SetDefault("relay.events_url", "http://localhost:8080/events")

	v.SetDefault("wallet.signer_url", "")
	v.SetDefault("wallet.address", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.console", true)
}

// Load 读取配置。path 为空时只使用环境变量和默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &cfg, nil
}

// ValidateLedger 读取链上状态所需的配置
func (c *Config) ValidateLedger() error {
	if c.Ledger.RPCURL == "" {
		return ErrMissingRPCURL
	}
	if c.Ledger.ContractAddress == "" {
		return ErrMissingContract
	}
	if c.Sync.Quorum <= 0 {
		return ErrInvalidQuorum
	}
	if c.Sync.Interval <= 0 {
		return ErrInvalidInterval
	}
	return nil
}

// ValidateServe serve 命令所需的配置
func (c *Config) ValidateServe() error {
	if err := c.ValidateLedger(); err != nil {
		return err
	}
	if c.Chat.AppID == "" || c.Chat.SecretKey == "" {
		return ErrMissingChat
	}
	return nil
}

// ValidateWallet 提交交易所需的配置
func (c *Config) ValidateWallet() error {
	if err := c.ValidateLedger(); err != nil {
		return err
	}
	if c.Wallet.SignerURL == "" {
		return ErrMissingSigner
	}
	return nil
}
