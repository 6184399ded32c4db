// Package router implements the Router Core: the send, receive, and
// retry pipeline that ties together the Persistence Store, Crypto
// Primitives, Session Registry, and Transport Adapter behind a single
// struct wiring every collaborator, mutating its own in-memory state
// (the dedup LRU, reorder buffers, rate limiters, reputation table)
// under one set of locks, while treating the store as the durable
// source of truth and memory as a cache only.
package router

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/config"
	"github.com/yapyap/node/internal/cryptoprim"
	"github.com/yapyap/node/internal/events"
	"github.com/yapyap/node/internal/lru"
	"github.com/yapyap/node/internal/ratelimit"
	"github.com/yapyap/node/internal/reorder"
	"github.com/yapyap/node/internal/reputation"
	"github.com/yapyap/node/internal/session"
	"github.com/yapyap/node/internal/store"
	"github.com/yapyap/node/internal/transport"
	"github.com/yapyap/node/internal/wire"
)

// AddressResolver maps a peer id to a dialable network address. The
// default implementation consults the routing cache; tests and the
// in-process control plane may substitute a static map.
type AddressResolver func(peerID string) (string, bool)

// OriginKeyFunc maps an inbound message to the key its rate is gated
// on, defaulting to the sender id.
type OriginKeyFunc func(m wire.Message) string

// Callback is invoked once per accepted data message, in sequence
// order per sender.
type Callback func(wire.Message)

// Router is the Message Router: it owns every in-memory auxiliary
// state table and delegates durable state to Store.
type Router struct {
	cfg       config.Config
	store     *store.Store
	sessions  *session.Registry
	transport *transport.Adapter
	identity  cryptoprim.IdentityKeyPair
	staticKey cryptoprim.StaticKeyPair
	directory *Directory
	events    events.Sink
	log       *logrus.Entry

	resolveAddress AddressResolver
	originKeyOf    OriginKeyFunc
	onMessage      Callback

	dedup          *lru.Cache
	originBuckets  *ratelimit.Limiter
	senderBuckets  *ratelimit.Limiter
	reputation     *reputation.Table
	peers          *peerBook
	schedule       *retrySchedule

	mu             sync.Mutex
	reorderBuffers map[string]*reorder.Buffer
}

// Deps bundles every collaborator a Router needs, avoiding mutual
// back-references: each is injected, not constructed internally.
type Deps struct {
	Config         config.Config
	Store          *store.Store
	Sessions       *session.Registry
	Transport      *transport.Adapter
	Identity       cryptoprim.IdentityKeyPair
	StaticKey      cryptoprim.StaticKeyPair
	Directory      *Directory
	Events         events.Sink
	Log            *logrus.Logger
	ResolveAddress AddressResolver
	OriginKeyOf    OriginKeyFunc
	OnMessage      Callback
}

// New constructs a Router and seeds its retry-schedule index from the
// durable queue. The dedup cache, reorder buffers, rate limiters and
// reputation table start empty; no other persistent state is loaded.
func New(d Deps) *Router {
	if d.Events == nil {
		d.Events = events.Discard
	}
	if d.Log == nil {
		d.Log = logrus.New()
	}
	if d.Directory == nil {
		d.Directory = NewDirectory()
	}
	if d.OriginKeyOf == nil {
		d.OriginKeyOf = func(m wire.Message) string { return m.From }
	}
	if d.OnMessage == nil {
		d.OnMessage = func(wire.Message) {}
	}

	r := &Router{
		cfg:            d.Config,
		store:          d.Store,
		sessions:       d.Sessions,
		transport:      d.Transport,
		identity:       d.Identity,
		staticKey:      d.StaticKey,
		directory:      d.Directory,
		events:         d.Events,
		log:            d.Log.WithField("component", "router"),
		resolveAddress: d.ResolveAddress,
		originKeyOf:    d.OriginKeyOf,
		onMessage:      d.OnMessage,
		dedup:          lru.New(d.Config.DedupCacheSize),
		originBuckets:  ratelimit.New(d.Config.OriginRatePerInterval, d.Config.OriginRateInterval, d.Config.OriginBurst),
		senderBuckets:  ratelimit.New(d.Config.SenderRatePerInterval, d.Config.SenderRateInterval, d.Config.SenderBurst),
		reputation:     reputation.NewTable(),
		peers:          newPeerBook(),
		schedule:       newRetrySchedule(),
		reorderBuffers: make(map[string]*reorder.Buffer),
	}
	if r.resolveAddress == nil {
		r.resolveAddress = r.defaultResolveAddress
	}
	r.rehydrateSchedule()
	return r
}

// SelfID returns this node's peer id.
func (r *Router) SelfID() string { return r.identity.PeerID() }

// Shutdown releases background resources (rate-limiter GC goroutines).
func (r *Router) Shutdown() {
	r.originBuckets.Close()
	r.senderBuckets.Close()
}

func (r *Router) reorderBufferFor(peer string) *reorder.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.reorderBuffers[peer]
	if !ok {
		buf = reorder.New(r.cfg.ReorderBufferSize)
		r.reorderBuffers[peer] = buf
	}
	return buf
}

// backoff computes the i-th retry delay: base * 2^attempts, capped.
func backoff(attempts int, base, cap time.Duration) time.Duration {
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		d = cap
	}
	return d
}

func newMessageID() string { return uuid.NewString() }

func nowMillis() int64 { return time.Now().UnixMilli() }

func canonicalHash(m wire.Message) ([]byte, error) {
	b, err := codec.Encode(m.ToValue())
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

func (r *Router) peerSigningKey(peerID string) (ed25519.PublicKey, bool) {
	keys, ok := r.directory.Lookup(peerID)
	if !ok {
		return nil, false
	}
	return keys.SigningPublicKey, true
}

func (r *Router) peerStaticKey(peerID string) ([32]byte, bool) {
	keys, ok := r.directory.Lookup(peerID)
	if !ok {
		return [32]byte{}, false
	}
	return keys.StaticPublicKey, true
}

// dialAndSend opens a connection to peer, writes one framed value, and
// always closes the connection before returning.
func (r *Router) dialAndSend(ctx context.Context, peer string, v codec.Value) error {
	addr, ok := r.resolveAddress(peer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRoute, peer)
	}
	conn, err := r.transport.DialProtocol(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Send(v)
}

