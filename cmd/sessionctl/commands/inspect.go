package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/spf13/cobra"
)

// inspect never saves, so viewing a session does not age its flash values.
func inspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [id]",
		Short: "Print the contents of a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.manager.Resume(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id: %s\n", s.ID())
			fmt.Fprintf(out, "saved: %s\n", time.Unix(s.Timestamp(), 0).UTC().Format(time.RFC3339))
			writeTree(out, "bags", s.Bags(), 0)
			writeTree(out, "meta", s.Meta(), 0)
			// Stored flash values are the ones readable in this cycle.
			writeTree(out, "flash", s.Flash().Last(), 0)
			return nil
		},
	}
}

func writeTree(w io.Writer, name string, b *session.Bag, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s:\n", indent, name)
	for _, key := range b.Keys() {
		v := b.Get(key)
		fmt.Fprintf(w, "%s  %s = %s (%s)\n", indent, key, v, v.Kind())
	}
	for _, child := range b.BagNames() {
		writeTree(w, child, b.Bag(child), depth+1)
	}
}
