package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/qianlnk/mafiachain/ledger"
	"github.com/qianlnk/mafiachain/models"
	"github.com/qianlnk/mafiachain/services"
	"github.com/spf13/cobra"
)

var (
	watchGameID  string
	watchAddress string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "在终端中持续显示游戏状态",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateLedger(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		contract, err := openContract(ctx)
		if err != nil {
			return err
		}
		defer contract.Close()

		address := watchAddress
		if address == "" {
			address = cfg.Wallet.Address
		}

		bus := services.NewSnapshotBus()
		machine := services.NewStateMachine(phasePolicy())
		syncer := services.NewSynchronizer(contract, services.SyncOptions{
			GameID:   watchGameID,
			Address:  address,
			Interval: cfg.Sync.Interval,
		}, services.NewClientState(), bus, nil, log)

		area, err := pterm.DefaultArea.WithRemoveWhenDone(false).Start()
		if err != nil {
			return err
		}
		defer area.Stop()

		render := services.SnapshotHandler(func(snap models.Snapshot) {
			area.Update(renderSnapshot(snap, machine.AvailableActions(&snap, syncer.State().ActiveSelection())))
		})
		if err := bus.Subscribe(watchGameID, render); err != nil {
			return err
		}
		defer bus.Unsubscribe(watchGameID, render)

		syncer.Run(ctx)
		bus.Wait()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchGameID, "game", "", "游戏ID")
	watchCmd.Flags().StringVar(&watchAddress, "address", "", "以该钱包地址的视角显示（默认 wallet.address）")
	_ = watchCmd.MarkFlagRequired("game")
	rootCmd.AddCommand(watchCmd)
}

func yesNo(b bool) string {
	if b {
		return "✓"
	}
	return ""
}

func renderSnapshot(snap models.Snapshot, actions []services.AvailableAction) string {
	var b strings.Builder
	state := snap.State

	b.WriteString(pterm.DefaultSection.Sprintf("游戏 %s", snap.GameID))
	summary := pterm.TableData{
		{"阶段", state.CurrentPhase.String()},
		{"天数", fmt.Sprint(state.CurrentDay)},
		{"玩家", fmt.Sprint(len(snap.Players))},
		{"存活 黑手党/村民", fmt.Sprintf("%d / %d", state.ActiveMafiaCount, state.ActiveVillagerCount)},
		{"主持人", ledger.ShortenAddress(state.Moderator)},
		{"已结束", yesNo(state.Ended)},
	}
	if table, err := pterm.DefaultTable.WithData(summary).Srender(); err == nil {
		b.WriteString(table)
		b.WriteString("\n\n")
	}

	players := pterm.TableData{{"", "名称", "地址", "存活", "主持人", "已投主持人票"}}
	for _, p := range snap.Players {
		marker := ""
		if p.IsCurrentPlayer {
			marker = "▶"
		}
		players = append(players, []string{
			marker,
			p.Name,
			ledger.ShortenAddress(p.Address),
			yesNo(p.IsActive),
			yesNo(p.IsModerator),
			yesNo(p.HasVotedModerator),
		})
	}
	if table, err := pterm.DefaultTable.WithHasHeader().WithData(players).Srender(); err == nil {
		b.WriteString(table)
		b.WriteString("\n\n")
	}

	if len(actions) == 0 {
		b.WriteString(pterm.Gray("当前没有可用动作"))
	} else {
		for _, a := range actions {
			line := string(a.Type)
			if len(a.Targets) > 0 {
				short := make([]string, len(a.Targets))
				for i, t := range a.Targets {
					short[i] = ledger.ShortenAddress(t)
				}
				line += " → " + strings.Join(short, ", ")
			}
			b.WriteString(pterm.LightGreen(line))
			b.WriteString("\n")
		}
	}
	if !snap.SelfFound {
		b.WriteString("\n")
		b.WriteString(pterm.Yellow("本地钱包不在玩家名单中（旁观）"))
	}
	b.WriteString(pterm.Gray(fmt.Sprintf("\n版本 %d · 更新于 %s", snap.Version, snap.UpdatedAt.Format("15:04:05"))))
	return b.String()
}
