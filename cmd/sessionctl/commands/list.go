package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	var withTimes bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored session ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids, err := a.manager.Storage().List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range ids {
				if !withTimes {
					fmt.Fprintln(out, id)
					continue
				}
				ts, err := a.manager.LastModified(ctx, id)
				if err != nil {
					a.logger.Warn().Err(err).Str("session_id", id).Msg("mtime unavailable")
					fmt.Fprintf(out, "%s\t-\n", id)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", id, ts.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&withTimes, "long", "l", false, "print last modified time")
	return cmd
}
