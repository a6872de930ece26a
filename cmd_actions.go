package main

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/services"
	"github.com/spf13/cobra"
)

var (
	actionGameID      string
	actionName        string
	actionIdentityKey string
	actionCandidate   string
)

// actionEnv 提交动作所需的依赖
type actionEnv struct {
	contract  *ledger.Contract
	wallet    *ledger.SignerWallet
	syncer    *services.Synchronizer
	submitter *services.Submitter
}

func (e *actionEnv) Close() {
	e.wallet.Close()
	e.contract.Close()
}

// newActionEnv 连接节点与签名服务。gameID 非空时先同步一次该游戏的状态
func newActionEnv(ctx context.Context, gameID string) (*actionEnv, error) {
	if err := cfg.ValidateWallet(); err != nil {
		return nil, err
	}
	contract, err := openContract(ctx)
	if err != nil {
		return nil, err
	}
	signer, err := ledger.Dial(ctx, cfg.Wallet.SignerURL)
	if err != nil {
		contract.Close()
		return nil, err
	}
	wallet, err := ledger.ConnectSigner(ctx, signer, cfg.Wallet.Address)
	if err != nil {
		signer.Close()
		contract.Close()
		return nil, err
	}

	state := services.NewClientState()
	machine := services.NewStateMachine(phasePolicy())
	relay := services.NewHTTPRelay(cfg.Relay.EventsURL, cfg.Ledger.ReceiptTimeout+cfg.Chat.Timeout)
	env := &actionEnv{
		contract:  contract,
		wallet:    wallet,
		submitter: services.NewSubmitter(contract.Address(), wallet, contract, relay, state, machine, nil, log),
	}

	if gameID != "" {
		env.syncer = services.NewSynchronizer(contract, services.SyncOptions{
			GameID:   gameID,
			Address:  wallet.Address(),
			Interval: cfg.Sync.Interval,
		}, state, nil, nil, log)
		if _, err := env.syncer.Tick(ctx); err != nil {
			env.Close()
			return nil, err
		}
	}
	return env, nil
}

// runAction 创建依赖并执行一次动作，输出交易哈希
func runAction(cmd *cobra.Command, gameID string, action func(ctx context.Context, s *services.Submitter) (string, error)) error {
	ctx := cmd.Context()
	env, err := newActionEnv(ctx, gameID)
	if err != nil {
		return err
	}
	defer env.Close()

	spinner, _ := pterm.DefaultSpinner.Start("提交交易并等待事件转发...")
	hash, err := action(ctx, env.submitter)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		if hash != "" {
			pterm.Warning.Printfln("交易已提交: %s", hash)
		}
		return err
	}
	if spinner != nil {
		spinner.Success("交易已提交: " + hash)
	}
	return nil
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "创建新游戏并加入",
	RunE: func(cmd *cobra.Command, args []string) error {
		var gameID string
		err := runAction(cmd, "", func(ctx context.Context, s *services.Submitter) (string, error) {
			id, hash, err := s.CreateGame(ctx, actionName, actionIdentityKey)
			gameID = id
			return hash, err
		})
		if gameID != "" {
			pterm.Info.Printfln("游戏ID: %s", gameID)
		}
		return err
	},
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "加入游戏",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, actionGameID, func(ctx context.Context, s *services.Submitter) (string, error) {
			return s.JoinGame(ctx, actionGameID, actionName, actionIdentityKey)
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "开始游戏",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, actionGameID, func(ctx context.Context, s *services.Submitter) (string, error) {
			return s.StartGame(ctx, actionGameID)
		})
	},
}

var modVoteCmd = &cobra.Command{
	Use:   "modvote",
	Short: "投票选出主持人",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, actionGameID, func(ctx context.Context, s *services.Submitter) (string, error) {
			return s.CastModeratorVote(ctx, actionGameID, actionCandidate)
		})
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "放逐投票",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, actionGameID, func(ctx context.Context, s *services.Submitter) (string, error) {
			return s.CastVote(ctx, actionGameID, actionCandidate)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{createCmd, joinCmd} {
		cmd.Flags().StringVar(&actionName, "name", "", "玩家名称（最多31个ASCII字符）")
		cmd.Flags().StringVar(&actionIdentityKey, "key", "", "身份公钥（最多62个字符）")
	}
	for _, cmd := range []*cobra.Command{joinCmd, startCmd, modVoteCmd, voteCmd} {
		cmd.Flags().StringVar(&actionGameID, "game", "", "游戏ID")
		_ = cmd.MarkFlagRequired("game")
	}
	for _, cmd := range []*cobra.Command{modVoteCmd, voteCmd} {
		cmd.Flags().StringVar(&actionCandidate, "candidate", "", "候选人地址")
		_ = cmd.MarkFlagRequired("candidate")
	}
	rootCmd.AddCommand(createCmd, joinCmd, startCmd, modVoteCmd, voteCmd)
}
