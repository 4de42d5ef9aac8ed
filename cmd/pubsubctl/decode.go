// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/pubsub"
	"mellium.im/xmppext/wire"
)

// requestView is the printed form of a decoded request.
type requestView struct {
	Verb          string              `yaml:"verb,omitempty"`
	Feature       string              `yaml:"feature,omitempty"`
	ID            string              `yaml:"id,omitempty"`
	From          string              `yaml:"from,omitempty"`
	To            string              `yaml:"to,omitempty"`
	Node          string              `yaml:"node,omitempty"`
	Subscriber    string              `yaml:"subscriber,omitempty"`
	SubID         string              `yaml:"subid,omitempty"`
	NodeType      string              `yaml:"nodeType,omitempty"`
	MaxItems      *uint64             `yaml:"maxItems,omitempty"`
	Items         []itemView          `yaml:"items,omitempty"`
	ItemIDs       []string            `yaml:"itemIDs,omitempty"`
	Options       map[string][]string `yaml:"options,omitempty"`
	Affiliations  map[string]string   `yaml:"affiliations,omitempty"`
	Subscriptions map[string]string   `yaml:"subscriptions,omitempty"`
	Error         string              `yaml:"error,omitempty"`
}

type itemView struct {
	ID      string `yaml:"id,omitempty"`
	Payload string `yaml:"payload,omitempty"`
}

func viewRequest(req *pubsub.Request) requestView {
	v := requestView{
		Verb:     req.Verb.String(),
		Feature:  req.Feature(),
		ID:       req.ID,
		From:     req.Sender.String(),
		To:       req.Recipient.String(),
		Node:     req.Node,
		SubID:    req.SubID,
		NodeType: req.NodeType,
		MaxItems: req.MaxItems,
		ItemIDs:  req.ItemIDs,
		Options:  formValues(req.Options),
	}
	if req.Subscriber.String() != "" {
		v.Subscriber = req.Subscriber.String()
	}
	for _, item := range req.Items {
		iv := itemView{ID: item.ID}
		if item.Payload != nil {
			iv.Payload = item.Payload.String()
		}
		v.Items = append(v.Items, iv)
	}
	if len(req.Affiliations) > 0 {
		v.Affiliations = make(map[string]string, len(req.Affiliations))
		for _, a := range req.Affiliations {
			v.Affiliations[a.JID.String()] = a.Affiliation
		}
	}
	if len(req.Subscriptions) > 0 {
		v.Subscriptions = make(map[string]string, len(req.Subscriptions))
		for _, s := range req.Subscriptions {
			v.Subscriptions[s.Subscriber.String()] = string(s.State)
		}
	}
	return v
}

func formValues(f *form.Data) map[string][]string {
	if f == nil {
		return nil
	}
	return f.Values()
}

// readStanzas decodes every top level stanza in r.
func readStanzas(r io.Reader) ([]*wire.Envelope, error) {
	d := xml.NewDecoder(r)
	var envs []*wire.Envelope
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return envs, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		el, err := wire.Decode(d, start)
		if err != nil {
			return nil, err
		}
		env, err := wire.FromElement(el)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
}

func newDecodeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode pubsub requests",
		Long: `Decode reads stanzas from a file, or standard input if no file is given,
and prints the pubsub request each one carries.

Stanzas that are not pubsub requests are reported with an error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			envs, err := readStanzas(in)
			if err != nil {
				return fmt.Errorf("reading stanzas: %w", err)
			}
			views := make([]requestView, 0, len(envs))
			for _, env := range envs {
				req, err := pubsub.Decode(env)
				if err != nil {
					root.logger.Debug("stanza is not a pubsub request", zap.String("id", env.ID), zap.Error(err))
					views = append(views, requestView{ID: env.ID, Error: err.Error()})
					continue
				}
				views = append(views, viewRequest(req))
			}
			return writeYAML(cmd, views)
		},
	}
}
