package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/park285/chesswatch/internal/obslog"
)

var rootCmd = &cobra.Command{
	Use:           "chesswatch",
	Short:         "Lichess broadcast dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return obslog.InitFromEnv()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		obslog.Sync()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
