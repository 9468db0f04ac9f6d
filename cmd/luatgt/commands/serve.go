package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/luatgt/luatgt-go/internal/answer"
	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/logging"
	"github.com/luatgt/luatgt-go/internal/server"
)

// NewServeCmd constructs the `luatgt serve` command, which starts the HTTP
// retrieval API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the luatgt HTTP API",
		Long: `Start the retrieval API server on localhost.

Endpoints:
  POST /api/search     Semantic search with citations
  POST /api/ask        Retrieval plus generated answer
  GET  /api/documents  Indexed document catalog
  GET  /healthz        Liveness probe
  GET  /metrics        Prometheus metrics

Examples:
  luatgt serve
  luatgt serve --port 9090
  ANSWER_PROVIDER=openai luatgt serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)
			cfg := config.FromEnv()

			svc, closeStore, err := buildSearchService(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeStore()

			// Answer generation is optional; without it /api/ask returns 503.
			gen, err := answer.NewGenerator(ctx, cfg.Answer)
			if err != nil {
				log.Warn("answer model unavailable, /api/ask disabled", slog.Any("error", err))
				gen = nil
			}

			cat, closeCat := openCatalog(cfg, log)
			defer closeCat()

			if host == "" {
				host = cfg.Server.Host
			}
			if port == 0 {
				port = cfg.Server.Port
			}

			srvCfg := &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
			}
			var srv *server.Server
			if gen != nil {
				srv, err = server.New(svc, gen, cat, srvCfg, prometheus.NewRegistry())
			} else {
				srv, err = server.New(svc, nil, cat, srvCfg, prometheus.NewRegistry())
			}
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default from config)")

	return cmd
}
