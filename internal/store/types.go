package store

import "time"

// PendingMessage is a durable outbound-queue row.
type PendingMessage struct {
	MessageID     string
	TargetPeerID  string
	Serialized    []byte
	Status        string
	Attempts      int
	NextRetryAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeadlineAt    time.Time
	LastError     string
}

// Pending message statuses.
const (
	StatusPending   = "pending"
	StatusInflight  = "inflight"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// ReplicaAssignment is one relay's custody record for a replicated
// message.
type ReplicaAssignment struct {
	MessageID    string
	RelayPeerID  string
	Status       string
	AssignedAt   time.Time
	UpdatedAt    time.Time
}

// Replica assignment statuses.
const (
	ReplicaAssigned  = "assigned"
	ReplicaStored    = "stored"
	ReplicaDelivered = "delivered"
	ReplicaFailed    = "failed"
)

// Contact is a Last-Writer-Wins contact book entry.
type Contact struct {
	PeerID    string
	Alias     string
	LastSeen  time.Time
	Metadata  string
	IsTrusted bool
}

// RoutingEntry is a cached address hint for a peer.
type RoutingEntry struct {
	PeerID      string
	Addresses   []string
	IsAvailable bool
	LastSeen    time.Time
	TTL         time.Duration
}

// ProcessedEntry is a durable record of one accepted inbound message,
// retained until Cleanup reaps it.
type ProcessedEntry struct {
	MessageID     string
	SenderID      string
	DestinationID string
	Serialized    []byte
	ProcessedAt   time.Time
}

// SessionRecord is a persisted session-registry row.
type SessionRecord struct {
	SessionID             string
	RemotePeerID          string
	LocalEphemeralPrivate []byte
	LocalEphemeralPublic  []byte
	EncryptionKey         []byte
	DecryptionKey         []byte
	CreatedAt             time.Time
	ExpiresAt             time.Time
	LastUsed              time.Time
	Active                bool
}
