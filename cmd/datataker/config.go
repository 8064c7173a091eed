package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pico-collectors/datacollect/internal/collector"
	"github.com/pico-collectors/datacollect/internal/protocols/lines"
)

type fileConfig struct {
	ProducerAddress string `toml:"producer_address"`

	Cooldown           string  `toml:"cooldown"`
	CooldownMultiplier float64 `toml:"cooldown_multiplier"`
	CooldownMax        string  `toml:"cooldown_max"`
	CooldownJitter     bool    `toml:"cooldown_jitter"`

	ConnectTimeout string `toml:"connect_timeout"`
	IdleTimeout    string `toml:"idle_timeout"`
	MaxFrameDelay  string `toml:"max_frame_delay"`
	WriteTimeout   string `toml:"write_timeout"`

	Delimiter      string `toml:"delimiter"`
	MaxRecordBytes int    `toml:"max_record_bytes"`

	MetricsAddr string `toml:"metrics_addr"`

	TLSEnabled    bool   `toml:"tls_enabled"`
	TLSServerName string `toml:"tls_server_name"`
	TLSCAFile     string `toml:"tls_ca_file"`
	TLSInsecure   bool   `toml:"tls_insecure_skip_verify"`
}

type runnerConfig struct {
	Collector   collector.Config
	Lines       lines.Config
	MetricsAddr string
}

func loadRunnerConfig(path string) (runnerConfig, error) {
	cfg := runnerConfig{Collector: collector.DefaultConfig()}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runnerConfig{}, fmt.Errorf("load collector config: %w", err)
	}

	cfg.Collector.Address = strings.TrimSpace(raw.ProducerAddress)
	if cfg.Collector.Address == "" {
		return runnerConfig{}, fmt.Errorf("collector config missing producer_address")
	}

	if meta.IsDefined("cooldown") {
		d, err := parseConfigDuration(raw.Cooldown, "cooldown")
		if err != nil {
			return runnerConfig{}, err
		}
		cfg.Collector.Cooldown.InitialDelay = d
	}
	if meta.IsDefined("cooldown_multiplier") {
		cfg.Collector.Cooldown.Multiplier = raw.CooldownMultiplier
	}
	if meta.IsDefined("cooldown_max") {
		d, err := parseConfigDuration(raw.CooldownMax, "cooldown_max")
		if err != nil {
			return runnerConfig{}, err
		}
		cfg.Collector.Cooldown.MaxDelay = d
	}
	if meta.IsDefined("cooldown_jitter") {
		cfg.Collector.Cooldown.Jitter = raw.CooldownJitter
	}

	if meta.IsDefined("connect_timeout") {
		d, err := parseConfigDuration(raw.ConnectTimeout, "connect_timeout")
		if err != nil {
			return runnerConfig{}, err
		}
		cfg.Collector.Conn.ConnectTimeout = d
	}
	if meta.IsDefined("idle_timeout") {
		d, err := parseConfigDuration(raw.IdleTimeout, "idle_timeout")
		if err != nil {
			return runnerConfig{}, err
		}
		cfg.Collector.Conn.IdleTimeout = d
	}
	if meta.IsDefined("max_frame_delay") {
		d, err := parseConfigDuration(raw.MaxFrameDelay, "max_frame_delay")
		if err != nil {
			return runnerConfig{}, err
		}
		cfg.Collector.Conn.MaxFrameDelay = d
	}
	if meta.IsDefined("write_timeout") {
		d, err := parseConfigDuration(raw.WriteTimeout, "write_timeout")
		if err != nil {
			return runnerConfig{}, err
		}
		cfg.Collector.Conn.WriteTimeout = d
	}

	if meta.IsDefined("delimiter") {
		cfg.Lines.Delimiter = raw.Delimiter
	}
	if meta.IsDefined("max_record_bytes") {
		cfg.Lines.MaxRecordBytes = raw.MaxRecordBytes
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("tls_enabled") {
		cfg.Collector.Conn.TLS.Enabled = raw.TLSEnabled
	}
	if meta.IsDefined("tls_server_name") {
		cfg.Collector.Conn.TLS.ServerName = strings.TrimSpace(raw.TLSServerName)
	}
	if meta.IsDefined("tls_ca_file") {
		cfg.Collector.Conn.TLS.CAFile = strings.TrimSpace(raw.TLSCAFile)
	}
	if meta.IsDefined("tls_insecure_skip_verify") {
		cfg.Collector.Conn.TLS.InsecureSkipVerify = raw.TLSInsecure
	}

	return cfg, nil
}

func parseConfigDuration(raw, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
