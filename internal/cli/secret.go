package cli

import (
	"bufio"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-tkc/self-assistant/internal/credential"
)

var secretKeys = []string{
	credential.KeyGroupwarePassword,
	credential.KeyMailToken,
	credential.KeyIMAPPassword,
	credential.KeyTrackerToken,
}

func checkSecretKey(key string) error {
	if !slices.Contains(secretKeys, key) {
		return fmt.Errorf("unknown secret %q (want one of %s)", key, strings.Join(secretKeys, ", "))
	}
	return nil
}

func newSecretCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials kept in the OS keyring",
	}

	set := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Store a secret; the value is read from stdin when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := checkSecretKey(key); err != nil {
				return err
			}
			var value string
			if len(args) == 2 {
				value = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading secret from stdin: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			if value == "" {
				return fmt.Errorf("secret %q is empty", key)
			}

			store, err := rt.secretStore()
			if err != nil {
				return err
			}
			if err := store.Set(key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", key)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := checkSecretKey(key); err != nil {
				return err
			}
			store, err := rt.secretStore()
			if err != nil {
				return err
			}
			if err := store.Delete(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
