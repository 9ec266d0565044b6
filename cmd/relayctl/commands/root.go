// Package commands implements the relayctl command tree.
package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Environment defaults for the persistent flags.
const (
	URLEnv = "RELAY_URL"
	KeyEnv = "RELAY_API_KEY"
)

const defaultURL = "http://localhost:3000"

type options struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

// Execute runs relayctl with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "relayctl",
		Short:        "Operate a taxi request relay",
		SilenceUsage: true,
	}

	baseURL := os.Getenv(URLEnv)
	if baseURL == "" {
		baseURL = defaultURL
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "url", baseURL, "relay base URL (env "+URLEnv+")")
	root.PersistentFlags().StringVar(&opts.apiKey, "key", os.Getenv(KeyEnv), "API key sent with requests (env "+KeyEnv+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-call timeout")

	root.AddCommand(
		requestCmd(opts),
		blockCmd(opts),
		blockedCmd(opts),
		publishCmd(),
		statusCmd(opts),
	)
	return root
}
