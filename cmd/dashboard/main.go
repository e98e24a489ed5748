package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "World Bank indicators and SEC financial summaries",
	Long: `dashboard serves charts of World Bank development indicators and
LLM-written summaries of a company's latest 10-K or 10-Q statements.

Available subcommands:
  serve     - Run the web dashboard and JSON API
  countries - List the countries known to the World Bank API
  summarize - Summarize a company's latest filing on the terminal`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to app.yaml (default: config/app.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(countriesCmd)
	rootCmd.AddCommand(summarizeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
