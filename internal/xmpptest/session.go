// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest

import (
	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/lifecycle"
)

// Default addresses used by NewClientServer.
var (
	ClientJID = jid.MustParse("test@example.net/test")
	ServerJID = jid.MustParse("pubsub.example.net")
)

// Option is a type for configuring a ClientServer.
type Option func(*ClientServer)

// ClientHandler adds a handler to the client side of a ClientServer.
func ClientHandler(h lifecycle.Handler) Option {
	return func(cs *ClientServer) {
		cs.clientHandlers = append(cs.clientHandlers, h)
	}
}

// ServerHandler adds a handler to the server side of a ClientServer.
func ServerHandler(h lifecycle.Handler) Option {
	return func(cs *ClientServer) {
		cs.serverHandlers = append(cs.serverHandlers, h)
	}
}

// ClientOptions configures the client Manager.
func ClientOptions(opts ...lifecycle.Option) Option {
	return func(cs *ClientServer) {
		cs.clientOpts = append(cs.clientOpts, opts...)
	}
}

// ServerOptions configures the server Manager.
func ServerOptions(opts ...lifecycle.Option) Option {
	return func(cs *ClientServer) {
		cs.serverOpts = append(cs.serverOpts, opts...)
	}
}

// ClientServer is two coupled managers that can respond to one another in
// tests.
type ClientServer struct {
	Client     *lifecycle.Manager
	Server     *lifecycle.Manager
	ClientConn *Conn
	ServerConn *Conn

	clientHandlers []lifecycle.Handler
	serverHandlers []lifecycle.Handler
	clientOpts     []lifecycle.Option
	serverOpts     []lifecycle.Option
}

// NewClientServer returns a ClientServer with both managers connected and
// authenticated.
// Stanzas sent by one side are delivered synchronously to the other.
func NewClientServer(opts ...Option) *ClientServer {
	cs := &ClientServer{}
	for _, opt := range opts {
		opt(cs)
	}
	cs.ClientConn, cs.ServerConn = Pipe(ClientJID, ServerJID)
	cs.Client = lifecycle.New(cs.clientOpts...)
	cs.Server = lifecycle.New(cs.serverOpts...)
	for _, h := range cs.serverHandlers {
		cs.Server.AddHandler(h)
	}
	for _, h := range cs.clientHandlers {
		cs.Client.AddHandler(h)
	}
	cs.Server.Connected(cs.ServerConn)
	cs.Server.Authenticated()
	cs.Client.Connected(cs.ClientConn)
	cs.Client.Authenticated()
	return cs
}

// Close disconnects both managers.
func (cs *ClientServer) Close() error {
	cs.Client.Disconnected(nil)
	cs.Server.Disconnected(nil)
	err := cs.ClientConn.Close()
	if err != nil {
		return err
	}
	return cs.ServerConn.Close()
}
