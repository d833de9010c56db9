package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/GentleMercenary/ofnotify/internal/daemon"
	"github.com/GentleMercenary/ofnotify/internal/ofapi"
)

const defaultRulesURL = "https://git.ofdl.tools/sim0n00ps/dynamic-rules/raw/branch/main/rules.json"

type fileConfig struct {
	RulesURL      string `toml:"rules_url"`
	RulesSnapshot string `toml:"rules_snapshot"`
	RulesTTL      string `toml:"rules_ttl"`
	BaseURL       string `toml:"base_url"`
	MetricsListen string `toml:"metrics_listen"`

	Reconnect          *bool  `toml:"reconnect"`
	MaxConnectAttempts int    `toml:"max_connect_attempts"`
	ActivityInterval   string `toml:"activity_interval"`

	Auth struct {
		Cookie    string `toml:"cookie"`
		XBC       string `toml:"x_bc"`
		UserAgent string `toml:"user_agent"`
	} `toml:"auth"`

	Session struct {
		ConnectTimeout    string `toml:"connect_timeout"`
		HandshakeTimeout  string `toml:"handshake_timeout"`
		HeartbeatInterval string `toml:"heartbeat_interval"`
		AckTimeout        string `toml:"ack_timeout"`
	} `toml:"session"`
}

type serviceConfig struct {
	RulesURL      string
	RulesSnapshot string
	RulesTTL      time.Duration
	BaseURL       string
	MetricsListen string
	Auth          ofapi.AuthContext
	Daemon        daemon.Config
}

func loadServiceConfig(path string) (serviceConfig, error) {
	var raw fileConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return serviceConfig{}, fmt.Errorf("load config: %w", err)
	}

	cfg := serviceConfig{
		RulesURL:      strings.TrimSpace(raw.RulesURL),
		RulesSnapshot: strings.TrimSpace(raw.RulesSnapshot),
		BaseURL:       strings.TrimSpace(raw.BaseURL),
		MetricsListen: strings.TrimSpace(raw.MetricsListen),
		Daemon:        daemon.DefaultConfig(),
	}
	if cfg.RulesURL == "" {
		cfg.RulesURL = defaultRulesURL
	}
	if raw.Reconnect != nil {
		cfg.Daemon.Reconnect = *raw.Reconnect
	}
	cfg.Daemon.MaxConnectAttempts = raw.MaxConnectAttempts

	var err error
	if cfg.RulesTTL, err = parseDuration(raw.RulesTTL, time.Hour); err != nil {
		return serviceConfig{}, fmt.Errorf("rules_ttl: %w", err)
	}
	if cfg.Daemon.ActivityMean, err = parseDuration(raw.ActivityInterval, cfg.Daemon.ActivityMean); err != nil {
		return serviceConfig{}, fmt.Errorf("activity_interval: %w", err)
	}
	if cfg.Daemon.Socket.ConnectTimeout, err = parseDuration(raw.Session.ConnectTimeout, cfg.Daemon.Socket.ConnectTimeout); err != nil {
		return serviceConfig{}, fmt.Errorf("session.connect_timeout: %w", err)
	}
	if cfg.Daemon.Socket.HandshakeTimeout, err = parseDuration(raw.Session.HandshakeTimeout, cfg.Daemon.Socket.HandshakeTimeout); err != nil {
		return serviceConfig{}, fmt.Errorf("session.handshake_timeout: %w", err)
	}
	if cfg.Daemon.Socket.HeartbeatInterval, err = parseDuration(raw.Session.HeartbeatInterval, cfg.Daemon.Socket.HeartbeatInterval); err != nil {
		return serviceConfig{}, fmt.Errorf("session.heartbeat_interval: %w", err)
	}
	if cfg.Daemon.Socket.AckTimeout, err = parseDuration(raw.Session.AckTimeout, cfg.Daemon.Socket.AckTimeout); err != nil {
		return serviceConfig{}, fmt.Errorf("session.ack_timeout: %w", err)
	}

	cfg.Auth = ofapi.AuthContext{
		Cookie:    strings.TrimSpace(raw.Auth.Cookie),
		XBC:       strings.TrimSpace(raw.Auth.XBC),
		UserAgent: strings.TrimSpace(raw.Auth.UserAgent),
	}
	if err := validateServiceConfig(cfg); err != nil {
		return serviceConfig{}, err
	}
	return cfg, nil
}

func validateServiceConfig(cfg serviceConfig) error {
	if cfg.Auth.Cookie == "" {
		return fmt.Errorf("config missing auth.cookie")
	}
	if cfg.Auth.XBC == "" {
		return fmt.Errorf("config missing auth.x_bc")
	}
	if cfg.Auth.UserAgent == "" {
		return fmt.Errorf("config missing auth.user_agent")
	}
	if cfg.Daemon.Socket.AckTimeout >= cfg.Daemon.Socket.HeartbeatInterval {
		return fmt.Errorf("session.ack_timeout must be shorter than session.heartbeat_interval")
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", raw)
	}
	return d, nil
}
