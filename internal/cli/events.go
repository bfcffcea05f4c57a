package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/blogpost/blogpost/internal/cache"
	"github.com/blogpost/blogpost/internal/events"
)

func newEventsCmd(e *env) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the post event stream",
	}

	var count int64
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recent post events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !e.cfg.CacheEnabled() {
				return fmt.Errorf("REDIS_URL is not set; no event stream to read")
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			ctx := cmd.Context()
			client, err := cache.New(ctx, e.cfg.RedisURL, 0)
			if err != nil {
				return err
			}
			defer client.Close()

			entries, err := events.NewPublisher(client.Client(), e.logger, nil).Recent(ctx, count)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STREAM ID\tTYPE\tPOST\tAT")
			for _, entry := range entries {
				at := time.UnixMilli(entry.Event.At).UTC().Format(time.RFC3339)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", entry.StreamID, entry.Event.Type, entry.Event.PostID, at)
			}
			return tw.Flush()
		},
	}
	recentCmd.Flags().Int64VarP(&count, "count", "n", 20, "number of events to show")

	eventsCmd.AddCommand(recentCmd)
	return eventsCmd
}
