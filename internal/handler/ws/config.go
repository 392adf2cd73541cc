package ws

import "time"

// Config holds per-connection tuning for realtime sockets
type Config struct {
	// PingInterval is how often the server pings an idle peer
	PingInterval time.Duration

	// PongWait is how long the server waits for any frame (pong included)
	// before dropping the connection. Must exceed PingInterval.
	PongWait time.Duration

	// WriteWait bounds a single frame write
	WriteWait time.Duration

	// SendBuffer is the number of events queued per connection. A peer that
	// falls this far behind gets delivery failures, not a blocked hub.
	SendBuffer int

	// EventsPerSecond throttles inbound typing frames per connection
	EventsPerSecond float64

	// MaxFrameBytes caps inbound frames; clients only send tiny signals
	MaxFrameBytes int64
}

// DefaultConfig returns the default socket configuration
func DefaultConfig() *Config {
	return &Config{
		PingInterval:    25 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		SendBuffer:      32,
		EventsPerSecond: 5,
		MaxFrameBytes:   4 << 10,
	}
}
