package cli

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/git-tkc/self-assistant/internal/server"
)

func newServeCmd(rt *runtime) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregated tasks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, cmd.ErrOrStderr())

			if !strings.EqualFold(rt.cfg.Log.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}
			if addr == "" {
				addr = rt.cfg.Server.Addr
			}

			srv := server.New(server.Deps{
				Aggregator:  a.Aggregator,
				Journal:     a.Journal,
				Credentials: a.Credentials,
				Config:      rt.cfg,
				Logger:      rt.log,
			})
			return srv.Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}
