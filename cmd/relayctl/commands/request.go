package commands

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/olahtaxi/taxirelay/internal/api/handler"
	"github.com/olahtaxi/taxirelay/internal/api/middleware"
	"github.com/olahtaxi/taxirelay/internal/api/models"
)

// request: send one taxi request as a device would.
func requestCmd(opts *options) *cobra.Command {
	var (
		body      models.TaxiRequest
		timestamp int64
	)

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Send a taxi request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.apiKey == "" {
				return fmt.Errorf("api key required (--key or %s)", KeyEnv)
			}
			ts := timestamp
			if ts == 0 {
				ts = time.Now().Unix()
			}

			header := http.Header{}
			header.Set(middleware.APIKeyHeader, opts.apiKey)
			header.Set(handler.TimestampHeader, strconv.FormatInt(ts, 10))

			data, err := newClient(opts).do(cmd.Context(), http.MethodPost, "/request", body, header)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&body.Serial, "serial", "", "device serial")
	cmd.Flags().StringVar(&body.Location, "location", "", "pickup location")
	cmd.Flags().StringVar(&body.Type, "type", "", "vehicle type")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "x-timestamp value in unix seconds (default now)")
	_ = cmd.MarkFlagRequired("serial")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
