// Command validator runs the market-data validator: it drains one ingress
// transport (NATS subject or shared-memory slot), applies every event to
// its instrument's book, and republishes the book-top whenever the change
// filter accepts it. Flag/env handling follows the pack's cobra
// convention (_examples/VictorVVedtion-perp-dex/x/*/client/cli).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"net/http"

	"ironbook/internal/ingress"
	"ironbook/internal/metrics"
	"ironbook/internal/transport"
)

type config struct {
	transportKind string // "pubsub" or "shm"
	natsURL       string
	ingressSubj   string
	egressSubj    string
	exchange      string
	metricsAddr   string
	busy          bool
	shardByInstr  bool
}

func main() {
	cfg := &config{}

	root := &cobra.Command{
		Use:   "validator",
		Short: "Validate and republish market-data book-top updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	root.Flags().StringVar(&cfg.transportKind, "transport", "pubsub", "ingress/egress transport: pubsub or shm")
	root.Flags().StringVar(&cfg.natsURL, "nats-url", nats.DefaultURL, "NATS broker URL (pubsub transport)")
	root.Flags().StringVar(&cfg.ingressSubj, "ingress-subject", "market_data", "NATS subject to consume orders from")
	root.Flags().StringVar(&cfg.egressSubj, "egress-subject", "book_updates", "NATS subject to publish book-top updates on")
	root.Flags().StringVar(&cfg.exchange, "exchange", "XNAS", "exchange code for the shm slot path (spec §6.3)")
	root.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", ":9101", "address to serve /metrics on")
	root.Flags().BoolVar(&cfg.busy, "busy", busyModeFromEnv(), "poll in busy-spin mode instead of cooperative sleep (default from BUSY_MODE env)")
	root.Flags().BoolVar(&cfg.shardByInstr, "shard-by-instrument", false, "run one ingress loop per instrument, each on its own goroutine")

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("validator exited with error")
	}
}

// busyModeFromEnv mirrors spec §4.6's BUSY_MODE toggle: any non-empty,
// non-"0"/"false" value selects busy-spin polling.
func busyModeFromEnv() bool {
	v := os.Getenv("BUSY_MODE")
	return v != "" && v != "0" && v != "false"
}

func run(cfg *config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)
	serveMetrics(cfg.metricsAddr, reg)

	source, sink, closeFn, err := buildTransport(cfg)
	if err != nil {
		return fmt.Errorf("building transport: %w", err)
	}
	defer closeFn()

	mode := ingress.Cooperative
	if cfg.busy {
		mode = ingress.Busy
	}

	log.Info().Str("transport", cfg.transportKind).Bool("busy", cfg.busy).
		Bool("shardByInstrument", cfg.shardByInstr).Msg("validator starting")

	if cfg.shardByInstr {
		sharder := ingress.NewSharder(source, sink, mode, m, nowUnixNanos)
		return sharder.Run(ctx)
	}

	loop := ingress.New(source, sink, mode, m, nowUnixNanos)
	return loop.Run(ctx)
}

func buildTransport(cfg *config) (transport.Source, transport.Sink, func(), error) {
	switch cfg.transportKind {
	case "shm":
		date := time.Now()
		path := transport.SlotPath(date, cfg.exchange)
		slot, err := transport.OpenSlot(path, false)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening ingress slot %q: %w", path, err)
		}
		egressPath := transport.SlotPath(date, cfg.exchange+"_OUT")
		egress, err := transport.OpenSlot(egressPath, true)
		if err != nil {
			slot.Close()
			return nil, nil, nil, fmt.Errorf("opening egress slot %q: %w", egressPath, err)
		}
		return slot, egress, func() { slot.Close(); egress.Close() }, nil
	default:
		conn, err := nats.Connect(cfg.natsURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("dialing NATS at %q: %w", cfg.natsURL, err)
		}
		source, err := transport.NewPubSub(conn, cfg.ingressSubj, 4096)
		if err != nil {
			conn.Close()
			return nil, nil, nil, err
		}
		sink := transport.NewPubSubSink(conn, cfg.egressSubj)
		return source, sink, func() { source.Close(); sink.Close(); conn.Close() }, nil
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

func nowUnixNanos() uint64 {
	return uint64(time.Now().UnixNano())
}
