package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/internal/metrics"
	"github.com/aretw0/weave/pkg/adapters/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Start the HTTP I/O relay",
	Long:  `Starts the session relay that detached runs (channel kind "http") write output to and read input from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Relay.Addr = addr
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.LogFormat == "json")

		var opts []relay.Option
		opts = append(opts, relay.WithLogger(logger))
		if cfg.Relay.MaxQueue > 0 {
			opts = append(opts, relay.WithMaxQueue(cfg.Relay.MaxQueue))
		}

		router := metrics.Router(prometheus.DefaultGatherer)
		router.Mount("/", relay.NewHandler(relay.NewServer(opts...)))

		srv := &http.Server{
			Addr:              cfg.Relay.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("relay listening", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("relay error: %w", err)

		case sig := <-shutdown:
			logger.Info("relay shutting down", "signal", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().String("addr", "", "Listen address (overrides relay.addr)")
}
