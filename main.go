package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/danielhkuo/movie-night/auth"
	"github.com/danielhkuo/movie-night/broadcast"
	"github.com/danielhkuo/movie-night/cliparse"
	"github.com/danielhkuo/movie-night/metrics"
	"github.com/danielhkuo/movie-night/middleware"
	"github.com/danielhkuo/movie-night/router"
	"github.com/danielhkuo/movie-night/store/backends"
	"github.com/danielhkuo/movie-night/voting"
)

func main() {
	var err error

	// .env never overrides the real environment
	if err := cliparse.LoadEnv(".env"); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogFormat)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		handler http.Handler
		port    int
		closers []io.Closer
	)

	switch cfg.Mode {
	case cliparse.ModeHub:
		hub := broadcast.NewHub(m)
		defer hub.Close()

		relay, err := startRelay(ctx, cfg, hub)
		if err != nil {
			slog.Error("relay setup failed", "error", err)
			os.Exit(1)
		}
		if relay != nil {
			closers = append(closers, relay)
		}

		handler = router.NewHubRouter(hub, reg)
		port = cfg.HubPort

	default:
		st, err := backends.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database setup failed", "type", cfg.DatabaseType, "error", err)
			os.Exit(1)
		}
		defer st.Close()
		slog.Info("Database schema ready", "type", cfg.DatabaseType)

		var hub *broadcast.Hub
		if cfg.Mode == cliparse.ModeAll {
			hub = broadcast.NewHub(m)
			defer hub.Close()
		}

		publisher, err := newPublisher(cfg, hub)
		if err != nil {
			slog.Error("broadcast setup failed", "transport", cfg.BroadcastTransport, "error", err)
			os.Exit(1)
		}
		closers = append(closers, publisher)

		// Events published to a broker come back through the relay
		if hub != nil && cfg.BroadcastTransport != cliparse.TransportLocal {
			relay, err := startRelay(ctx, cfg, hub)
			if err != nil {
				slog.Error("relay setup failed", "error", err)
				os.Exit(1)
			}
			if relay != nil {
				closers = append(closers, relay)
			}
		}

		deps := voting.Deps{Store: st, Publisher: publisher, Metrics: m}
		handler = router.NewRouter(router.Deps{
			Registry: voting.NewRegistry(deps),
			Sessions: voting.NewSessions(deps),
			Ledger:   voting.NewLedger(deps),
			Hub:      hub,
			Gatherer: reg,
		}, cfg)
		port = cfg.Port
	}

	// Create server
	server := http.Server{
		Handler: middleware.CORS(handler),
		Addr:    ":" + strconv.Itoa(port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", port, "mode", cfg.Mode, "broadcast", cfg.BroadcastTransport)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			slog.Warn("shutdown close failed", "error", err)
		}
	}
}

func setupLogging(format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// newPublisher picks where the voting components send their events
func newPublisher(cfg cliparse.Config, hub *broadcast.Hub) (broadcast.Publisher, error) {
	switch cfg.BroadcastTransport {
	case cliparse.TransportLocal:
		return broadcast.NewHubPublisher(hub), nil
	case cliparse.TransportHTTP:
		url := cfg.BroadcastURL
		if url == "" {
			url = "http://localhost:" + strconv.Itoa(cfg.Port)
		}
		return broadcast.NewHTTPPublisher(url), nil
	case cliparse.TransportNATS:
		return broadcast.NewNATSPublisher(cfg.NATSURL, broadcast.DefaultSubject)
	case cliparse.TransportKafka:
		return broadcast.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case cliparse.TransportNone:
		return broadcast.NoopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown broadcast transport %q", cfg.BroadcastTransport)
	}
}

// startRelay feeds a broker's events into hub. Transports without a
// broker have no relay and return nil.
func startRelay(ctx context.Context, cfg cliparse.Config, hub *broadcast.Hub) (io.Closer, error) {
	switch cfg.BroadcastTransport {
	case cliparse.TransportNATS:
		relay, err := broadcast.NewNATSRelay(cfg.NATSURL, broadcast.DefaultSubject, hub)
		if err != nil {
			return nil, err
		}
		slog.Info("relaying events from NATS", "url", cfg.NATSURL)
		return relay, nil

	case cliparse.TransportKafka:
		// Every hub needs its own group to see every event
		group, err := auth.GenerateID("movie-night-hub-")
		if err != nil {
			return nil, err
		}
		relay, err := broadcast.NewKafkaRelay(cfg.KafkaBrokers, cfg.KafkaTopic, group, hub)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := relay.Run(ctx); err != nil {
				slog.Error("kafka relay stopped", "error", err)
			}
		}()
		slog.Info("relaying events from Kafka", "topic", cfg.KafkaTopic, "group", group)
		return relay, nil
	}
	return nil, nil
}
