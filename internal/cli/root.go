// Package cli implements the console command line: the BFF server and a few
// session and user commands that share its stored credentials.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/adminkit/admin-console/internal/app"
	"github.com/adminkit/admin-console/internal/infrastructure/config"
	"github.com/adminkit/admin-console/pkg/logger"
)

// globalOptions are the persistent flags. Each one overrides its
// environment variable only when set on the command line.
type globalOptions struct {
	apiURL   string
	profile  string
	logLevel string
	output   string
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:           "console",
		Short:         "Admin console backend and CLI",
		Long:          "Drives the admin API: serves the console backend-for-frontend and manages the stored session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOutputFormat(opts.output)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", "", "Admin API base URL (overrides CONSOLE_API_URL)")
	flags.StringVarP(&opts.profile, "profile", "p", "", "Credential profile (overrides CONSOLE_PROFILE)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides LOG_LEVEL)")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(newServeCmd(&opts))
	rootCmd.AddCommand(newLoginCmd(&opts))
	rootCmd.AddCommand(newRegisterCmd(&opts))
	rootCmd.AddCommand(newLogoutCmd(&opts))
	rootCmd.AddCommand(newWhoamiCmd(&opts))
	rootCmd.AddCommand(newUsersCmd(&opts))
	return rootCmd
}

// loadConfig reads the environment, then applies the flags the user set.
func (o *globalOptions) loadConfig(ctx context.Context, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if flags.Changed("api-url") {
		cfg.API.BaseURL = o.apiURL
	}
	if flags.Changed("profile") {
		cfg.Store.Profile = o.profile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open builds the console services for the command. Callers must Close the
// returned App.
func (o *globalOptions) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig(cmd.Context(), cmd.Flags())
	if err != nil {
		return nil, err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Output:  cmd.ErrOrStderr(),
		Profile: cfg.Store.Profile,
	})
	return app.New(cmd.Context(), cfg, log)
}

func validateOutputFormat(output string) error {
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}
