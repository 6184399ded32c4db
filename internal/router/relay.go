package router

import (
	"context"
	"sort"
	"time"

	"github.com/yapyap/node/internal/cryptoprim"
	"github.com/yapyap/node/internal/events"
	"github.com/yapyap/node/internal/kademlia"
	"github.com/yapyap/node/internal/store"
	"github.com/yapyap/node/internal/wire"
)

// escalateToRelays implements relay escalation: select up to
// RelayCandidateCount relays excluding target and self and any at or
// below the reputation block threshold, ordered by reputation descending
// then Kademlia XOR distance to the target ascending, pad from the
// bootstrap set if short, and for each build and transmit a relay
// envelope. Returns true if at least one relay accepted.
func (r *Router) escalateToRelays(ctx context.Context, m wire.Message) bool {
	candidates := r.existingRelays(m.ID)
	if len(candidates) == 0 {
		candidates = r.selectRelayCandidates(m.To)
	}
	if len(candidates) == 0 {
		return false
	}

	hash, err := canonicalHash(m)
	if err != nil {
		return false
	}

	any := false
	for _, relay := range candidates {
		payload := wire.RelayEnvelopePayload{
			Target:        m.To,
			Original:      m,
			IntegrityHash: hash,
		}
		signingBytes, err := payload.SigningPayload()
		if err != nil {
			continue
		}
		payload.SignerPublicKey = r.identity.PublicKey
		payload.Signature = r.identity.Sign(signingBytes)

		envelopeMsg := wire.Message{
			ID:        newMessageID(),
			Type:      wire.KindRelayEnvelope,
			From:      r.SelfID(),
			To:        relay,
			Payload:   payload.ToValue(),
			Timestamp: nowMillis(),
		}

		deadline := time.Now().Add(time.Hour)
		if m.TTLMillis != nil {
			deadline = time.UnixMilli(m.Timestamp).Add(time.Duration(*m.TTLMillis) * time.Millisecond)
		}
		if err := r.store.AssignReplica(m.ID, m.To, r.SelfID(), relay, deadline); err != nil {
			continue
		}

		if err := r.transmit(ctx, envelopeMsg); err != nil {
			_ = r.store.UpdateReplicaStatus(m.ID, relay, store.ReplicaFailed)
			r.reputation.Adjust(relay, -4)
			continue
		}
		_ = r.store.UpdateReplicaStatus(m.ID, relay, store.ReplicaStored)
		r.reputation.Adjust(relay, 2)
		r.events.Emit(events.Event{Type: events.Sent, MessageID: m.ID, Peer: relay, Reason: "relay"})
		any = true
	}
	return any
}

// existingRelays returns relay peer ids already assigned to message
// and not in a failed state, so a second escalation attempt reuses
// custody instead of reassigning.
func (r *Router) existingRelays(messageID string) []string {
	replicas, err := r.store.GetMessageReplicas(messageID)
	if err != nil {
		return nil
	}
	var out []string
	for _, rep := range replicas {
		if rep.Status != store.ReplicaFailed {
			out = append(out, rep.RelayPeerID)
		}
	}
	return out
}

func (r *Router) selectRelayCandidates(target string) []string {
	entries, err := r.store.ListRoutingEntries()
	if err != nil {
		entries = nil
	}
	selfID := r.SelfID()

	type candidate struct {
		peer string
		rep  int
	}
	var pool []candidate
	for _, e := range entries {
		if e.PeerID == target || e.PeerID == selfID {
			continue
		}
		rep := r.reputation.Score(e.PeerID)
		if rep <= r.cfg.ReputationBlockThreshold {
			continue
		}
		pool = append(pool, candidate{peer: e.PeerID, rep: rep})
	}

	targetBytes := idBytes(target)
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].rep != pool[j].rep {
			return pool[i].rep > pool[j].rep
		}
		return kademlia.CompareByDistance(targetBytes, idBytes(pool[i].peer), idBytes(pool[j].peer)) < 0
	})

	var out []string
	for _, c := range pool {
		out = append(out, c.peer)
		if len(out) >= r.cfg.RelayCandidateCount {
			return out
		}
	}
	for _, boot := range r.cfg.BootstrapPeers {
		if len(out) >= r.cfg.RelayCandidateCount {
			break
		}
		if boot == target || boot == selfID || contains(out, boot) {
			continue
		}
		out = append(out, boot)
	}
	return out
}

func idBytes(peerID string) []byte {
	if pub, err := cryptoprim.PublicKeyFromPeerID(peerID); err == nil {
		return pub
	}
	return []byte(peerID)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
