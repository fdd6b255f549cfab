package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/uppalcrm/crm/api/internal/logging"
)

var logFormat string

var rootCmd = &cobra.Command{
	Use:   "crmctl",
	Short: "Operational tooling for the Uppal CRM API",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Config{Format: logFormat, Level: os.Getenv("LOG_LEVEL"), Component: "crmctl"})
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console, json or auto")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(apikeyCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(entitlementCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
