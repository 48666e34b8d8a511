// Package app provides the vaultsync demo CLI's dependency injection: an
// fx graph that builds the logger, transport client, session store, and
// session manager, then populates the cobra root command for Execute to
// run.
package app

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/config"
	"github.com/mapleapps-ca/vaultsync/internal/localstore"
	"github.com/mapleapps-ca/vaultsync/internal/transport"
	"github.com/mapleapps-ca/vaultsync/internal/transport/httptransport"

	"github.com/mapleapps-ca/vaultsync/cmd/vaultsync/cmd"
	"github.com/mapleapps-ca/vaultsync/cmd/vaultsync/internal/session"
)

// App wraps the cobra root command built by the fx graph.
type App struct {
	rootCmd *cobra.Command
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vaultsync")
	}
	if u, err := user.Current(); err == nil {
		return filepath.Join(u.HomeDir, ".vaultsync")
	}
	return ".vaultsync"
}

// NewApp wires the CLI's dependency graph: logger -> config -> transport
// client -> session store -> session manager -> root command, then starts
// the fx app so every constructor runs before Execute.
func NewApp(serverURL string) *App {
	var a App

	fxApp := fx.New(
		fx.Provide(func() *zap.Logger {
			logger, _ := zap.NewDevelopment()
			return logger
		}),
		fx.Provide(func() *config.Config {
			return config.New(
				config.WithServerURL(serverURL),
				config.WithSessionDir(defaultSessionDir()),
			)
		}),
		fx.Provide(func(logger *zap.Logger, cfg *config.Config) transport.Backend {
			return httptransport.New(logger.Named("transport"), cfg.HTTPTimeout)
		}),
		fx.Provide(func(logger *zap.Logger, cfg *config.Config) (localstore.Store, error) {
			return localstore.Open(logger, cfg.SessionDir)
		}),
		fx.Provide(func(logger *zap.Logger, backend transport.Backend, store localstore.Store) *session.Manager {
			return session.New(logger, backend, store)
		}),
		fx.Provide(func(logger *zap.Logger, sessions *session.Manager, backend transport.Backend, cfg *config.Config) cmd.Deps {
			return cmd.Deps{Logger: logger, Sessions: sessions, Backend: backend, ServerURL: cfg.ServerURL}
		}),
		fx.Provide(cmd.NewRootCmd),
		fx.Populate(&a.rootCmd),
		fx.NopLogger,
	)

	ctx := context.Background()
	if err := fxApp.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start vaultsync: %v\n", err)
		os.Exit(1)
	}
	return &a
}

// Execute runs the CLI.
func (a *App) Execute() {
	if err := a.rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
