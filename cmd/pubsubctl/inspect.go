// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/paging"
	"mellium.im/xmppext/pubsub"
)

type nodeView struct {
	Node   string              `yaml:"node"`
	Config map[string][]string `yaml:"config"`
}

func newNodesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List the nodes in the store and their configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			nodes, err := store.Nodes()
			if err != nil {
				return err
			}
			views := make([]nodeView, 0, len(nodes))
			for _, node := range nodes {
				config, err := store.NodeConfig(node)
				if err != nil {
					return err
				}
				views = append(views, nodeView{Node: node, Config: config})
			}
			return writeYAML(cmd, views)
		},
	}
}

type itemsOptions struct {
	as    string
	max   uint64
	after string
}

type itemsView struct {
	Items []itemView `yaml:"items"`
	First string     `yaml:"first,omitempty"`
	Last  string     `yaml:"last,omitempty"`
	Count *uint64    `yaml:"count,omitempty"`
}

func newItemsCommand(root *rootOptions) *cobra.Command {
	opts := &itemsOptions{}
	cmd := &cobra.Command{
		Use:   "items node",
		Short: "Print the items published to a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &pubsub.Request{
				Verb:      pubsub.VerbItems,
				Recipient: root.cfg.serviceJID(),
				Sender:    root.cfg.serviceJID(),
				Node:      args[0],
			}
			if opts.as != "" {
				j, err := jid.Parse(opts.as)
				if err != nil {
					return fmt.Errorf("bad requester address: %w", err)
				}
				req.Sender = j
			}
			if opts.max > 0 || opts.after != "" {
				req.Paging = &paging.Request{After: opts.after}
				if opts.max > 0 {
					req.Paging.Max = paging.Uint64(opts.max)
				}
			}

			store, err := root.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), root.cfg.Timeout)
			defer cancel()
			items, set, err := store.Items(ctx, req)
			if err != nil {
				return err
			}
			view := itemsView{Items: make([]itemView, 0, len(items))}
			for _, item := range items {
				iv := itemView{ID: item.ID}
				if item.Payload != nil {
					iv.Payload = item.Payload.String()
				}
				view.Items = append(view.Items, iv)
			}
			if set != nil {
				view.First, view.Last, view.Count = set.First, set.Last, set.Count
			}
			return writeYAML(cmd, view)
		},
	}
	cmd.Flags().StringVar(&opts.as, "as", "", "address to request the items as")
	cmd.Flags().Uint64Var(&opts.max, "max", 0, "maximum number of items per page")
	cmd.Flags().StringVar(&opts.after, "after", "", "return items after this id")
	return cmd
}

type subscriptionView struct {
	Subscriber string `yaml:"subscriber"`
	SubID      string `yaml:"subid,omitempty"`
	State      string `yaml:"state"`
}

func newPendingCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending node",
		Short: "List subscriptions awaiting approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := root.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			subs, err := store.Pending(args[0])
			if err != nil {
				return err
			}
			views := make([]subscriptionView, 0, len(subs))
			for _, sub := range subs {
				views = append(views, subscriptionView{
					Subscriber: sub.Subscriber.String(),
					SubID:      sub.SubID,
					State:      string(sub.State),
				})
			}
			return writeYAML(cmd, views)
		},
	}
}

func newApproveCommand(root *rootOptions) *cobra.Command {
	var (
		subID string
		deny  bool
	)
	cmd := &cobra.Command{
		Use:   "approve node jid",
		Short: "Approve or deny a pending subscription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subscriber, err := jid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("bad subscriber address: %w", err)
			}
			store, err := root.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sub := pubsub.Subscription{Node: args[0], Subscriber: subscriber, SubID: subID}
			if deny {
				return store.Deny(args[0], sub)
			}
			return store.Approve(args[0], sub)
		},
	}
	cmd.Flags().StringVar(&subID, "subid", "", "approve only the subscription with this id")
	cmd.Flags().BoolVar(&deny, "deny", false, "deny the subscription instead")
	return cmd
}
