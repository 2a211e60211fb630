package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the global flags
type rootOptions struct {
	configFile string
	envFile    string
}

var globalOptions rootOptions

// rootCmd is the carbx root command
var rootCmd = &cobra.Command{
	Use:           "carbx",
	Short:         "CarbX tokenization dashboard",
	Long:          "Sign in to the CarbX backend with a Solana wallet, browse orders and vintage tokens, and redeem tokens by burning them.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalOptions.configFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalOptions.envFile, "env", "", "env file (default ./.env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(signInCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(redeemCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
