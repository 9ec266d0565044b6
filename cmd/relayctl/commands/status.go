package commands

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/olahtaxi/taxirelay/internal/api/models"
)

// status: summarize /ops/status.
func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show relay and outbound endpoint health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := newClient(opts).do(cmd.Context(), http.MethodGet, "/ops/status", nil, nil)
			if err != nil {
				return err
			}
			var status models.SystemStatus
			if err := json.Unmarshal(data, &status); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "overall  %s\n", status.Status)
			for _, s := range status.Subsystems {
				fmt.Fprintf(out, "%-8s %s\n", s.Name, s.Status)
			}
			for _, p := range status.Providers {
				fmt.Fprintf(out, "%-8s %s circuit=%s\n", p.Provider, p.Status, p.CircuitState)
			}
			return nil
		},
	}
}
