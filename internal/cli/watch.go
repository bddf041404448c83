package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/git-tkc/self-assistant/internal/model"
	tasksync "github.com/git-tkc/self-assistant/internal/sync"
)

func newWatchCmd(rt *runtime) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh periodically until interrupted; SIGHUP forces a refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, cmd.ErrOrStderr())

			if interval <= 0 {
				interval = model.Timeout(rt.cfg.Refresh.IntervalSec, tasksync.DefaultInterval)
			}

			log := rt.log
			r := tasksync.New(a.Aggregator, interval, func(res model.AggregationResult) {
				log.Info("watch: refreshed", "tasks", res.TotalCount, "errors", len(res.Errors))
			})

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			ctx := cmd.Context()
			r.Start(ctx)
			defer r.Stop()
			log.Info("watch: started", "interval", interval)

			for {
				select {
				case <-ctx.Done():
					log.Info("watch: stopping")
					return nil
				case <-hup:
					if !r.Trigger() {
						log.Debug("watch: refresh already pending")
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (defaults to refresh.interval_sec)")
	return cmd
}
