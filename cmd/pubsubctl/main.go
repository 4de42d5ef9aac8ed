// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The pubsubctl command operates a publish-subscribe service backed by a local
// bolt database.
//
// It can decode pubsub requests, replay scripted stanzas through the service
// and inspect or moderate the stored nodes.
//
// Configuration is read from a YAML file (pubsubctl.yaml by default) and may
// be overridden with flags:
//
//	service: pubsub.example.org
//	store: pubsub.db
//	logLevel: info
//	timeout: 30s
//	logTraffic: false
package main // import "mellium.im/xmppext/cmd/pubsubctl"

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pubsubctl: %v\n", err)
		os.Exit(1)
	}
}
