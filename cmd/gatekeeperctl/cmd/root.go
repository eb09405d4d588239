package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/edudao/gatekeeper/internal/app"
	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/directory"
	"github.com/edudao/gatekeeper/pkg/logger"
)

type rootOptions struct {
	configPath string
	fixture    bool
	logLevel   string
}

// NewRootCmd builds the gatekeeperctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "gatekeeperctl",
		Short: "gatekeeper CLI - inspect EduDAO roles and permissions",
		Long: `gatekeeperctl resolves roles and permissions against the gatekeeper
directory, issues subject tokens for the HTTP API and prepares the database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel == "" {
				return nil
			}
			return logger.InitWithOptions(logger.Options{Level: opts.logLevel, Encoding: "console"})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration directory or file")
	flags.BoolVar(&opts.fixture, "fixture", false, "Resolve against the built-in demo catalogue instead of the database")
	flags.StringVar(&opts.logLevel, "log-level", "", "Enable logging at the given level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newCheckCmd(opts),
		newRolesCmd(opts),
		newPermissionsCmd(opts),
		newTokenCmd(opts),
		newMigrateCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		if !errors.Is(err, errPermissionDenied) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func (o *rootOptions) config() (*app.Config, error) {
	return app.LoadConfigPath(o.configPath)
}

// resolver opens the directory selected by the global flags. The returned
// close func is never nil.
func (o *rootOptions) resolver() (*authz.Resolver, func() error, error) {
	noop := func() error { return nil }

	if o.fixture {
		resolver, err := authz.NewResolver(directory.NewDemoStatic())
		return resolver, noop, err
	}

	cfg, err := o.config()
	if err != nil {
		return nil, noop, err
	}
	db, err := app.OpenDatabase(cfg)
	if err != nil {
		return nil, noop, err
	}
	closeDB := func() error { return app.CloseDatabase(db) }

	dir, err := directory.NewGormDirectory(db)
	if err != nil {
		return nil, noop, multierr.Append(err, closeDB())
	}
	resolver, err := authz.NewResolver(directory.NewInstrumented(dir))
	if err != nil {
		return nil, noop, multierr.Append(err, closeDB())
	}
	return resolver, closeDB, nil
}
