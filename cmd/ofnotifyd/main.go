package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/GentleMercenary/ofnotify/internal/daemon"
	"github.com/GentleMercenary/ofnotify/internal/logging"
	"github.com/GentleMercenary/ofnotify/internal/observability"
	"github.com/GentleMercenary/ofnotify/internal/ofapi"
	"github.com/GentleMercenary/ofnotify/internal/protocol"
	"github.com/GentleMercenary/ofnotify/internal/rules"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ofnotifyd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "ofnotifyd.toml", "path to the service config")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		return err
	}

	providerOpts := []rules.ProviderOption{}
	if cfg.RulesSnapshot != "" {
		providerOpts = append(providerOpts, rules.WithSnapshot(cfg.RulesSnapshot))
	}
	provider, err := rules.NewProvider(cfg.RulesURL, providerOpts...)
	if err != nil {
		return err
	}
	cache := rules.NewCache(provider, rules.WithTTL(cfg.RulesTTL))

	clientOpts := []ofapi.Option{}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, ofapi.WithBaseURL(cfg.BaseURL))
	}
	client, err := ofapi.NewClient(cache, cfg.Auth, clientOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsListen != "" {
		observability.RegisterMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info().Str("listen", cfg.MetricsListen).Msg("metrics endpoint up")
			if err := http.ListenAndServe(cfg.MetricsListen, mux); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	d := daemon.New(client, cfg.Daemon).
		OnMessage(logMessage).
		OnDisconnect(func(err error) {
			if err != nil {
				log.Error().Err(err).Msg("session lost")
			} else {
				log.Info().Msg("session closed")
			}
		})

	log.Info().Str("config", *configPath).Msg("ofnotifyd starting")
	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("ofnotifyd stopped")
	return nil
}

func logMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.AppMessage:
		log.Info().Str("tag", m.Tag).RawJSON("payload", m.Payload).Msg("message received")
	case protocol.Connected:
		log.Info().Str("version", m.Version).Msg("connection acknowledged")
	default:
		log.Info().Type("shape", msg).Msg("message received")
	}
}
