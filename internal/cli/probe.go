package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProbeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <source>",
		Short: "Check connectivity to one source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, cmd.ErrOrStderr())

			res, err := a.Aggregator.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !res.Connected {
				return fmt.Errorf("%s: %s", res.SourceName, res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.SourceName, res.Message)
			return nil
		},
	}
}
