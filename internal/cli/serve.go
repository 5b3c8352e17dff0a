package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowbit/nl2sql/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the HTTP service exposing POST /query, GET /health, GET / and GET /metrics.

Requires DATABASE_URL and LLM_API_KEY. Startup fails if the database is unreachable.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("version", Version).
		Str("env", cfg.Environment).
		Msg("starting nl2sql")

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil {
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
