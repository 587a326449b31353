package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/isdelr/microblog-be/internal/app"
	"github.com/isdelr/microblog-be/internal/config"
	"github.com/isdelr/microblog-be/internal/database"
	"github.com/isdelr/microblog-be/internal/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the command that runs the HTTP server.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// openDatabase loads the config, sets up logging and opens a migrated database.
func openDatabase(ctx context.Context, opts *RootOptions) (*config.Config, *database.DB, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.Logging.Level, !cfg.IsProduction())

	db, err := database.New(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		return nil, nil, multierr.Append(fmt.Errorf("failed to apply database migrations: %w", err), db.Close())
	}
	return cfg, db, nil
}

func runServe(ctx context.Context, opts *RootOptions) (err error) {
	cfg, db, err := openDatabase(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, db.Close())
	}()

	a := app.New(cfg, db)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return a.Pruner.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Int("port", cfg.ServerPort).Str("driver", db.Driver).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe(): %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exiting")
	return nil
}
