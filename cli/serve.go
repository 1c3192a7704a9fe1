package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hannes/pellucid-sanitizer/server"
	"github.com/hannes/pellucid-sanitizer/store"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP sanitization service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen address, e.g. :8080 (overrides SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.ServerPort
	if servePort != "" {
		addr = servePort
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defaults, err := defaultOptions(cfg)
	if err != nil {
		return err
	}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithStore(st),
		server.WithDefaults(defaults),
		server.WithMaxBatchSize(cfg.Sanitizer.MaxBatchSize),
	}
	if comps.client != nil {
		opts = append(opts, server.WithRemoteInfo(comps.client))
		log.Info().Str("base_url", comps.client.BaseURL()).Msg("remote anonymizer enabled")
	}
	srv := server.NewServer(comps.service, comps.local, opts...)
	defer func() {
		if err := srv.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close submission store")
		}
	}()

	if cfg.Database.CleanupHours > 0 {
		stopRetention := store.StartRetentionLoop(ctx, st, time.Duration(cfg.Database.CleanupHours)*time.Hour, time.Hour)
		defer stopRetention()
	}

	return srv.Run(ctx, addr)
}
