// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/disco"
	"mellium.im/xmppext/lifecycle"
	"mellium.im/xmppext/pubsub"
	"mellium.im/xmppext/wire"
)

// script is a list of stanzas to deliver to the service in order.
type script struct {
	Steps []step `yaml:"steps"`
}

type step struct {
	// From overrides the sender of the stanza.
	From   string `yaml:"from,omitempty"`
	Stanza string `yaml:"stanza"`
}

type stepResult struct {
	Step int      `yaml:"step"`
	In   string   `yaml:"in"`
	Out  []string `yaml:"out,omitempty"`
}

type replayResult struct {
	Steps    []stepResult      `yaml:"steps"`
	Requests map[string]uint64 `yaml:"requests,omitempty"`
}

func loadScript(path string) (*script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s := &script{}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("unmarshal script: %w", err)
	}
	return s, nil
}

func newReplayCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay script.yaml",
		Short: "Replay stanzas through the service",
		Long: `Replay delivers each stanza of a script to a pubsub service backed by the
configured store and prints the stanzas the service sent in response,
including event notifications.

Example script:

  steps:
  - from: owner@example.org/desk
    stanza: |
      <iq type="set" id="create1">
        <pubsub xmlns="http://jabber.org/protocol/pubsub">
          <create node="blog"/>
        </pubsub>
      </iq>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScript(args[0])
			if err != nil {
				return err
			}
			result, err := replay(root, s)
			if err != nil {
				return err
			}
			return writeYAML(cmd, result)
		},
	}
}

func replay(root *rootOptions, s *script) (*replayResult, error) {
	store, err := root.openStore()
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	metrics, err := pubsub.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	svc := pubsub.NewService(store,
		pubsub.Logger(root.logger.Named("pubsub")),
		pubsub.WithMetrics(metrics),
	)
	store.SetNotifier(svc)

	service := root.cfg.serviceJID()
	mgr := lifecycle.New(
		lifecycle.Logger(root.logger.Named("lifecycle")),
		lifecycle.LogTraffic(root.cfg.LogTraffic),
		lifecycle.Timeout(root.cfg.Timeout),
	)
	mgr.AddHandler(svc)
	mgr.AddHandler(disco.NewResponder(svc))
	conn := newLoopback(service)
	mgr.Connected(conn)
	mgr.Authenticated()
	defer mgr.Disconnected(nil)

	result := &replayResult{}
	for i, st := range s.Steps {
		env, err := wire.ParseEnvelope(st.Stanza)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if st.From != "" {
			env.From, err = jid.Parse(st.From)
			if err != nil {
				return nil, fmt.Errorf("step %d: bad sender: %w", i, err)
			}
		}
		if env.To.String() == "" {
			env.To = service
		}
		root.logger.Debug("replaying stanza", zap.Int("step", i), zap.String("id", env.ID))
		conn.deliver(env)

		res := stepResult{Step: i, In: env.String()}
		for _, out := range conn.take() {
			res.Out = append(res.Out, out.String())
		}
		result.Steps = append(result.Steps, res)
	}

	result.Requests, err = requestCounts(reg)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// requestCounts sums the request counter by verb and outcome.
func requestCounts(g prometheus.Gatherer) (map[string]uint64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]uint64)
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "_requests_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var verb, outcome string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "verb":
					verb = l.GetValue()
				case "outcome":
					outcome = l.GetValue()
				}
			}
			counts[verb+"/"+outcome] += uint64(m.GetCounter().GetValue())
		}
	}
	return counts, nil
}
