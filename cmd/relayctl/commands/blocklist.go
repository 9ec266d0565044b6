package commands

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/olahtaxi/taxirelay/internal/api/models"
	"github.com/olahtaxi/taxirelay/internal/blocklist"
)

// block <id>...: replace the block list. No ids clears it.
func blockCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "block [device-id]...",
		Short: "Replace the block list with the given device ids",
		Long:  "Replace the block list with the given device ids. Run with no ids to clear the list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if ids == nil {
				ids = []string{}
			}
			data, err := newClient(opts).do(cmd.Context(), http.MethodPost, "/update-blocked", models.BlockList{List: ids}, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// blocked: print the current block list, one id per line.
func blockedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "blocked",
		Short: "Print the current block list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := newClient(opts).do(cmd.Context(), http.MethodGet, "/blocked", nil, nil)
			if err != nil {
				return err
			}
			var body models.BlockList
			if err := json.Unmarshal(data, &body); err != nil {
				return fmt.Errorf("decode block list: %w", err)
			}
			for _, id := range body.List {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// publish <id>...: push a replacement list to every relay through Pub/Sub.
func publishCmd() *cobra.Command {
	var project, topic string

	cmd := &cobra.Command{
		Use:   "publish [device-id]...",
		Short: "Publish a replacement block list to the sync topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pub, err := blocklist.NewPublisher(ctx, project, topic)
			if err != nil {
				return err
			}
			defer func() { _ = pub.Close() }()

			id, err := pub.Publish(ctx, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d ids as message %s\n", len(args), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Google Cloud project hosting the topic")
	cmd.Flags().StringVar(&topic, "topic", "", "block list topic")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
