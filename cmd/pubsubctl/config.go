// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"mellium.im/xmpp/jid"
)

const (
	defaultConfigFile = "pubsubctl.yaml"
	defaultService    = "pubsub.localhost"
	defaultStore      = "pubsub.db"
	defaultLogLevel   = "info"
	defaultTimeout    = 30 * time.Second
)

// config is the contents of the configuration file.
type config struct {
	Service    string        `yaml:"service,omitempty"`
	Store      string        `yaml:"store,omitempty"`
	LogLevel   string        `yaml:"logLevel,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	LogTraffic bool          `yaml:"logTraffic,omitempty"`
}

func defaultConfig() *config {
	return &config{
		Service:  defaultService,
		Store:    defaultStore,
		LogLevel: defaultLogLevel,
		Timeout:  defaultTimeout,
	}
}

// loadConfig reads the config file at path on top of the defaults.
// A missing or empty file is not an error.
func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	if _, err := jid.Parse(c.Service); err != nil {
		return fmt.Errorf("invalid service address %q: %w", c.Service, err)
	}
	if c.Store == "" {
		return errors.New("no store path configured")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", c.Timeout)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

func (c *config) serviceJID() jid.JID {
	return jid.MustParse(c.Service)
}

// logger builds a production logger writing to stderr at the configured
// level.
func (c *config) logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	if level == zapcore.DebugLevel {
		cfg.Development = true
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return cfg.Build()
}
