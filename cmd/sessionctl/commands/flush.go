package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func flushCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Remove every stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to flush without --yes")
			}
			ctx := cmd.Context()
			ids, err := a.manager.Storage().List(ctx)
			if err != nil {
				return err
			}
			if err := a.manager.Storage().Flush(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flushed %d sessions\n", len(ids))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm removal of all sessions")
	return cmd
}
