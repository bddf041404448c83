// Package cli implements the assistant command line.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/git-tkc/self-assistant/internal/app"
	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
)

// SecretStore is the read/write side of the secret store used by the
// secret subcommands.
type SecretStore interface {
	credential.Secrets
	Set(key, value string) error
	Delete(key string) error
}

// Option customizes the root command.
type Option func(*runtime)

// WithSecrets replaces the OS keyring.
func WithSecrets(s SecretStore) Option {
	return func(r *runtime) { r.secrets = s }
}

// runtime is the state shared by every subcommand of one invocation.
type runtime struct {
	configPath string
	logLevel   string
	jsonLogs   bool

	secrets SecretStore
	cfg     *model.AppConfig
	log     logger.Logger
}

// NewRootCmd builds the assistant command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	rt := &runtime{}
	for _, opt := range opts {
		opt(rt)
	}

	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Aggregate tasks from groupware, mail and the project tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rt.configPath, "config", model.DefaultConfigPath(), "path to the config file")
	flags.StringVar(&rt.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&rt.jsonLogs, "json-logs", false, "emit logs as JSON")

	root.AddCommand(
		newTasksCmd(rt),
		newProbeCmd(rt),
		newServeCmd(rt),
		newWatchCmd(rt),
		newSecretCmd(rt),
	)
	return root
}

func (rt *runtime) load(cmd *cobra.Command) error {
	cfg, err := model.LoadConfig(rt.configPath)
	if err != nil {
		return err
	}
	if rt.logLevel != "" {
		cfg.Log.Level = rt.logLevel
	}
	if rt.jsonLogs {
		cfg.Log.JSON = true
	}
	rt.cfg = cfg
	rt.log = logger.New(logger.Config{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
	logger.SetDefault(rt.log)
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), rt.log))
	return nil
}

// secretStore returns the injected store or opens the OS keyring.
func (rt *runtime) secretStore() (SecretStore, error) {
	if rt.secrets != nil {
		return rt.secrets, nil
	}
	ring, err := credential.OpenKeyring()
	if err != nil {
		return nil, err
	}
	rt.secrets = ring
	return ring, nil
}

// openApp assembles the application. An unavailable keyring only
// limits credentials to what the config holds.
func (rt *runtime) openApp(cmd *cobra.Command) (*app.App, error) {
	var secrets credential.Secrets
	if s, err := rt.secretStore(); err != nil {
		rt.log.Warn("keyring unavailable, using config credentials only", "error", err)
	} else {
		secrets = s
	}
	a, err := app.New(cmd.Context(), rt.cfg, app.Options{
		Secrets: secrets,
		Console: cmd.ErrOrStderr(),
		Logger:  rt.log,
	})
	if err != nil {
		return nil, fmt.Errorf("starting assistant: %w", err)
	}
	return a, nil
}

func closeApp(a *app.App, w io.Writer) {
	if err := a.Close(); err != nil {
		fmt.Fprintf(w, "closing: %v\n", err)
	}
}
