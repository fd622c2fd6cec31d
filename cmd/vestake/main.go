package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vestake/vestake/cmd/vestake/commands"
)

var rootCmd = &cobra.Command{
	Use:           "vestake",
	Short:         "Lock tokens for vote-escrowed staking positions",
	Long:          "Connect a keystore wallet, stake tokens into time-locked positions, and manage withdrawals and auto-renewal.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Path to config file (default: ~/.vestake/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&commands.LogLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&commands.OutputFormat, "output", "o", "", "Output format: \"\" (auto), \"json\", \"plain\"")
}

func main() {
	rootCmd.AddCommand(commands.NewStatusCmd())
	rootCmd.AddCommand(commands.NewBalanceCmd())
	rootCmd.AddCommand(commands.NewPositionsCmd())
	rootCmd.AddCommand(commands.NewStakeCmd())
	rootCmd.AddCommand(commands.NewWithdrawCmd())
	rootCmd.AddCommand(commands.NewToggleCmd())
	rootCmd.AddCommand(commands.NewMintCmd())
	rootCmd.AddCommand(commands.NewInteractiveCmd())
	rootCmd.AddCommand(commands.NewWalletCmd())
	rootCmd.AddCommand(commands.NewConfigCmd())
	rootCmd.AddCommand(commands.NewDoctorCmd())
	rootCmd.AddCommand(commands.NewVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
