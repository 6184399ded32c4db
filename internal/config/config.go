// Package config centralizes every tunable constant as an overridable
// struct field rather than scattered package consts.
package config

import "time"

// Config holds every implementer-visible tunable.
type Config struct {
	// Framer/Codec
	MaxFrameSize int
	IdleTimeout  time.Duration

	// Persistence
	DataDir             string
	ProcessedRetention   time.Duration

	// In-memory auxiliary state
	DedupCacheSize       int
	ReorderBufferSize    int
	TimestampSkewWindow  time.Duration

	// Rate limiting
	OriginRatePerInterval int
	OriginRateInterval    time.Duration
	OriginBurst           int
	SenderRatePerInterval int
	SenderRateInterval    time.Duration
	SenderBurst           int

	// Reputation
	ReputationBlockThreshold int

	// Message lifecycle
	DefaultTTL time.Duration

	// Transport Adapter
	DialTimeout  time.Duration
	SendTimeout  time.Duration
	CloseTimeout time.Duration
	ReconnectAttempts int

	// Retry scheduler
	RetryTickInterval time.Duration
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	EscalateAfterAttempts int

	// Relay escalation
	RelayCandidateCount int
	BootstrapPeers      []string

	// Session registry
	SessionExpiry time.Duration

	// Control plane
	ControlPlanePort     int
	ControlPlaneMaxPortTries int
}

// Default returns a Config populated with sensible literal defaults.
func Default() Config {
	return Config{
		MaxFrameSize: 1 << 20,
		IdleTimeout:  30 * time.Second,

		DataDir:           "./data",
		ProcessedRetention: 7 * 24 * time.Hour,

		DedupCacheSize:      10000,
		ReorderBufferSize:   512,
		TimestampSkewWindow: 5 * time.Minute,

		OriginRatePerInterval: 60,
		OriginRateInterval:    time.Second,
		OriginBurst:           120,
		SenderRatePerInterval: 30,
		SenderRateInterval:    time.Second,
		SenderBurst:           60,

		ReputationBlockThreshold: -40,

		DefaultTTL: 24 * time.Hour,

		DialTimeout:       5 * time.Second,
		SendTimeout:       5 * time.Second,
		CloseTimeout:      2 * time.Second,
		ReconnectAttempts: 1,

		RetryTickInterval:     5 * time.Second,
		MaxAttempts:           8,
		BackoffBase:           time.Second,
		BackoffCap:            60 * time.Second,
		EscalateAfterAttempts: 3,

		RelayCandidateCount: 2,
		BootstrapPeers:      nil,

		SessionExpiry: time.Hour,

		ControlPlanePort:         3000,
		ControlPlaneMaxPortTries: 5,
	}
}
