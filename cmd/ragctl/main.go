// ragctl is an operator CLI for the stock-rag service. It talks to a
// running instance over HTTP.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serviceURL string
	apiKey     string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Operate the stock-rag service",
	Long: `ragctl manages documents in a running stock-rag instance.

Example usage:
  ragctl ingest report.txt --id vnm-2025-q2 --source filings --symbol VNM
  ragctl ingest docs/ --source filings --rps 2
  ragctl delete vnm-2025-q2
  ragctl ask "What drove VNM margins last quarter?"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if serviceURL == "" {
			serviceURL = os.Getenv("RAG_SERVICE_URL")
		}
		if serviceURL == "" {
			serviceURL = "http://localhost:9020"
		}
		if apiKey == "" {
			apiKey = os.Getenv("INTERNAL_API_KEY")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serviceURL, "url", "", "service base URL (default $RAG_SERVICE_URL or http://localhost:9020)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "internal API key (default $INTERNAL_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-request timeout")
}

func newClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
