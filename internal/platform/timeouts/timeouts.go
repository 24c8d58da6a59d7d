// Package timeouts defines shared timeout constants used across the board
// service. Centralizing these values prevents drift between layers and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Dispatch caps a single background write to the record store.
const Dispatch = 10 * time.Second
