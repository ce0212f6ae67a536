package commands

import (
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/storage"
	"github.com/spf13/cobra"
)

func statCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Summarize the session store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := a.manager.Storage()

			ids, err := st.List(ctx)
			if err != nil {
				return err
			}

			var oldest, newest int64
			for _, id := range ids {
				ts, err := st.LastModified(ctx, id)
				if err != nil {
					a.logger.Warn().Err(err).Str("session_id", id).Msg("mtime unavailable")
					continue
				}
				if oldest == 0 || ts < oldest {
					oldest = ts
				}
				if ts > newest {
					newest = ts
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend: %s\n", a.cfg.Storage.Backend)
			fmt.Fprintf(out, "sealed: %t\n", a.cfg.Storage.SealSecret != "")
			fmt.Fprintf(out, "sessions: %d\n", len(ids))
			if len(ids) > 0 && newest > 0 {
				fmt.Fprintf(out, "oldest: %s\n", time.Unix(oldest, 0).UTC().Format(time.RFC3339))
				fmt.Fprintf(out, "newest: %s\n", time.Unix(newest, 0).UTC().Format(time.RFC3339))
			}

			if r := redisBackend(st); r != nil {
				rtt, err := r.Ping(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "redis rtt: %s\n", rtt.Round(time.Microsecond))
			}
			return nil
		},
	}
}

func redisBackend(st storage.Storage) *storage.Redis {
	if sealed, ok := st.(*storage.Sealed); ok {
		st = sealed.Inner()
	}
	r, _ := st.(*storage.Redis)
	return r
}
