package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "momentum",
	Short: "Streak and energy-ledger analytics",
	Long:  "Momentum tracks behavioral streaks and an energy ledger, and scores discipline, relapse risk and recovery from them. Single Go binary backed by SQLite.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $MOMENTUM_CONFIG or ~/.momentum/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(dailyEnergyCmd)
}
