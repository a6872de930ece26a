package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qianlnk/mafiachain/api"
	"github.com/qianlnk/mafiachain/chat"
	"github.com/qianlnk/mafiachain/config"
	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/logger"
	"github.com/qianlnk/mafiachain/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "mafiachain",
	Short:         "链上黑手党游戏的事件播报与状态同步服务",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务：事件转发、邀请、快照查询与 WebSocket 推送",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServe(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（yaml/toml/json）")
	rootCmd.AddCommand(serveCmd)
}

// openContract 连接节点并创建合约句柄
func openContract(ctx context.Context) (*ledger.Contract, error) {
	client, err := ledger.Dial(ctx, cfg.Ledger.RPCURL)
	if err != nil {
		return nil, err
	}
	contract, err := ledger.NewContract(client, ledger.ContractConfig{
		Address:             cfg.Ledger.ContractAddress,
		ReceiptPollInterval: cfg.Ledger.ReceiptPollInterval,
		ABICacheTTL:         cfg.Ledger.ABICacheTTL,
	}, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	return contract, nil
}

func phasePolicy() services.PhasePolicy {
	return services.PhasePolicy{
		Quorum:                 cfg.Sync.Quorum,
		AllowSelfModeratorVote: cfg.Sync.AllowSelfModeratorVote,
	}
}

func serve(ctx context.Context) error {
	contract, err := openContract(ctx)
	if err != nil {
		return err
	}
	defer contract.Close()

	metrics := services.NewMetrics()
	chatClient := chat.NewClient(chat.Config{
		BaseURL:       cfg.Chat.BaseURL,
		AppID:         cfg.Chat.AppID,
		SecretKey:     cfg.Chat.SecretKey,
		SubjectPrefix: cfg.Chat.SubjectPrefix,
		Timeout:       cfg.Chat.Timeout,
	}, log)
	dispatcher := services.NewDispatcher(chatClient, metrics, log)
	pipeline := services.NewPipeline(contract, services.NewNarrator(log), dispatcher, metrics, cfg.Ledger.ReceiptTimeout, log)

	bus := services.NewSnapshotBus()
	machine := services.NewStateMachine(phasePolicy())
	rooms := services.NewRoomManager(contract, bus, metrics, cfg.Sync.Interval, log)
	defer rooms.Close()
	webSocketMgr := services.NewWebSocketManager(rooms, bus, machine, metrics, log)
	defer webSocketMgr.CloseAll()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Deps{
		Pipeline:    pipeline,
		Snapshots:   rooms,
		Games:       contract,
		Machine:     machine,
		Connections: webSocketMgr,
		Registry:    metrics.Registry(),
		CORSOrigin:  cfg.Server.CORSOrigin,
	}, log)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("服务器启动", zap.String("addr", cfg.Server.Addr), zap.String("contract", contract.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("正在关闭服务器")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
