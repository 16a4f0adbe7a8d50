// Package irc implements the client-side core of an IRC session: wire
// codec, ISUPPORT-driven case mapping, capability/SASL negotiation, state
// tracking of users and channels, an async request/response matcher for
// numerics like WHOIS and NAMES, and a reader/writer dispatcher with flood
// protection.
//
// The package does not open sockets itself. Callers provide any
// io.ReadWriteCloser (plain TCP, TLS, a test pipe, ...) to NewClient, and
// receive a stream of Events describing everything the core observed and
// mutated in response.
package irc
