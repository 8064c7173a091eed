// Package conn owns the framed transport adapter.
//
// Ownership boundary:
// - producer dialing and address classification
// - delimiter framing with cross-call residual buffering
// - idle/frame-delay timeout policy
// - optional TLS towards the producer
package conn
