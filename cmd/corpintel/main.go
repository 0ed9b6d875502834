package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/corpintel/internal/config"
)

var (
	rootCmd = &cobra.Command{
		Use:           "corpintel",
		Short:         "Evidence-backed IPO risk analysis over a local corpus and the web",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	envName     string
	cliLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", config.GetEnv(), "Configuration environment (loads config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&cliLogLevel, "log-level", "", "Log level for interactive commands (default warn)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(versionCmd)
}
