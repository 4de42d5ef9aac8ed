// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"mellium.im/xmppext/pubsub/boltstore"
)

// rootOptions holds the global flags and the resolved configuration.
type rootOptions struct {
	configPath string
	flags      config

	cfg    *config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pubsubctl",
		Short:         "Operate a local publish-subscribe service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				/* #nosec */
				opts.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", defaultConfigFile, "path to the YAML config file")
	flags.StringVar(&opts.flags.Service, "service", defaultService, "address of the pubsub service")
	flags.StringVar(&opts.flags.Store, "store", defaultStore, "path to the bolt database")
	flags.StringVar(&opts.flags.LogLevel, "log-level", defaultLogLevel, "log level (debug|info|warn|error)")
	flags.DurationVar(&opts.flags.Timeout, "timeout", defaultTimeout, "request timeout")
	flags.BoolVar(&opts.flags.LogTraffic, "log-traffic", false, "log every stanza at debug level")

	cmd.AddCommand(newDecodeCommand(opts))
	cmd.AddCommand(newReplayCommand(opts))
	cmd.AddCommand(newNodesCommand(opts))
	cmd.AddCommand(newItemsCommand(opts))
	cmd.AddCommand(newPendingCommand(opts))
	cmd.AddCommand(newApproveCommand(opts))

	return cmd
}

// resolve loads the config file and applies any flags that were set
// explicitly.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("service") {
		cfg.Service = o.flags.Service
	}
	if flags.Changed("store") {
		cfg.Store = o.flags.Store
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.flags.LogLevel
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.flags.Timeout
	}
	if flags.Changed("log-traffic") {
		cfg.LogTraffic = o.flags.LogTraffic
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	logger, err := cfg.logger()
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func (o *rootOptions) openStore() (*boltstore.Store, error) {
	return boltstore.Open(o.cfg.Store,
		boltstore.Logger(o.logger.Named("store")),
		boltstore.Timeout(o.cfg.Timeout),
	)
}

func writeYAML(cmd *cobra.Command, v interface{}) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
