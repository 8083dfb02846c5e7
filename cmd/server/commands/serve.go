package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/warp/compliance-engine/api"
	"github.com/warp/compliance-engine/config"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.IntP("port", "p", 8080, "HTTP server port")
	flags.Bool("sweep", true, "run the background overdue and reminder sweep")
	flags.Duration("sweep-interval", time.Hour, "time between sweeps")

	bindFlag(config.KeyPort, flags.Lookup("port"))
	bindFlag(config.KeySweepEnabled, flags.Lookup("sweep"))
	bindFlag(config.KeySweepInterval, flags.Lookup("sweep-interval"))
}

func serve(ctx context.Context, cfg config.Config) error {
	store, err := sqlite.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, generic.SystemClock{})
	configureSweeper(handler.Sweeper, cfg)
	handler.Sweeper.Start()
	defer handler.Sweeper.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("db", cfg.DB).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func configureSweeper(s *api.SweepScheduler, cfg config.Config) {
	s.Enabled = cfg.SweepEnabled
	s.CheckInterval = cfg.SweepInterval
	s.ReminderInterval = cfg.ReminderInterval
	s.MaxReminders = cfg.MaxReminders
}
