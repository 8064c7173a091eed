// Package collector owns the reconnect supervisor.
//
// Ownership boundary:
// - connect/receive/dispatch run loop
// - transient-failure cooldown policy
// - stop signalling
//
// The collector never decodes payloads; that belongs to the Protocol
// wired into it.
package collector
