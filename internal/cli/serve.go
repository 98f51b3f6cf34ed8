package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/signflow/internal/server"
	"github.com/roach88/signflow/internal/store"
)

// shutdownTimeout bounds how long serve waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string

	// ready, when set, receives the bound address once listening (for testing).
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the persistence service",
		Long: `Run the agreement persistence service over HTTP.

The service stores agreements, signers and field placements in SQLite,
creating the database if it doesn't exist. Flags override the config file,
which is overridden by SIGNFLOW_* environment variables.

Example:
  signflow serve --db ./signflow.db
  signflow serve --addr 127.0.0.1:9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}

	logger := opts.logger(cmd.ErrOrStderr())

	logger.Info("opening database", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := server.New(st,
		server.WithLogger(logger),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)
	if err := srv.Start(ctx, cfg.Server.Addr); err != nil {
		return WrapExitError(ExitCommandError, "failed to start server", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", srv.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.ready != nil {
		opts.ready <- srv.Addr()
	}

	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown error", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
