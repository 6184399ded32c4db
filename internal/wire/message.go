// Package wire defines the protocol identifiers and message envelope
// shapes exchanged over framed streams.
package wire

import (
	"github.com/yapyap/node/internal/codec"
)

// Protocol identifiers segregate streams by purpose.
const (
	ProtocolMessage   = "/yapyap/message/1.0.0"
	ProtocolHandshake = "/yapyap/handshake/1.0.0"
	ProtocolRoute     = "/yapyap/route/1.0.0"
	ProtocolSync      = "/yapyap/sync/1.0.0"
)

// Kind enumerates the message types carried on ProtocolMessage.
type Kind string

const (
	KindData          Kind = "data"
	KindAck           Kind = "ack"
	KindNak           Kind = "nak"
	KindRelayEnvelope Kind = "relay-envelope"
)

// Message is the immutable envelope from : unique id, kind,
// sender/recipient, opaque payload, timestamp, optional sequence number,
// optional vector clock, optional TTL.
type Message struct {
	ID             string
	Type           Kind
	From           string
	To             string
	Payload        codec.Value
	Timestamp      int64 // milliseconds since epoch
	SequenceNumber *int64
	TTLMillis      *int64
	VectorClock    map[string]int64
	Signature      []byte
	// NakReason carries the reason string for a nak message; zero value
	// elsewhere.
	NakReason string
}

// ToValue serializes a Message to the wire's structured value shape.
func (m Message) ToValue() codec.Value {
	fields := map[string]codec.Value{
		"id":        codec.String(m.ID),
		"type":      codec.String(string(m.Type)),
		"from":      codec.String(m.From),
		"to":        codec.String(m.To),
		"payload":   m.Payload,
		"timestamp": codec.Int(m.Timestamp),
	}
	if m.SequenceNumber != nil {
		fields["sequenceNumber"] = codec.Int(*m.SequenceNumber)
	}
	if m.TTLMillis != nil {
		fields["ttl"] = codec.Int(*m.TTLMillis)
	}
	if len(m.VectorClock) > 0 {
		vc := make(map[string]codec.Value, len(m.VectorClock))
		for peer, counter := range m.VectorClock {
			vc[peer] = codec.Int(counter)
		}
		fields["vectorClock"] = codec.Map(vc)
	}
	if len(m.Signature) > 0 {
		fields["signature"] = codec.Bytes(m.Signature)
	}
	if m.NakReason != "" {
		fields["reason"] = codec.String(m.NakReason)
	}
	return codec.Map(fields)
}

// MessageFromValue parses a Message out of its wire representation.
func MessageFromValue(v codec.Value) (Message, bool) {
	if v.Kind != codec.KindMap {
		return Message{}, false
	}
	m := Message{}
	var ok bool
	if m.ID, ok = v.GetString("id"); !ok {
		return Message{}, false
	}
	kindStr, _ := v.GetString("type")
	m.Type = Kind(kindStr)
	m.From, _ = v.GetString("from")
	m.To, _ = v.GetString("to")
	m.Payload, _ = v.Get("payload")
	if ts, ok := v.Get("timestamp"); ok && ts.Kind == codec.KindInt {
		m.Timestamp = ts.Int
	}
	if seq, ok := v.Get("sequenceNumber"); ok && seq.Kind == codec.KindInt {
		n := seq.Int
		m.SequenceNumber = &n
	}
	if ttl, ok := v.Get("ttl"); ok && ttl.Kind == codec.KindInt {
		n := ttl.Int
		m.TTLMillis = &n
	}
	if vc, ok := v.Get("vectorClock"); ok && vc.Kind == codec.KindMap {
		m.VectorClock = make(map[string]int64, len(vc.Map))
		for peer, counter := range vc.Map {
			if counter.Kind == codec.KindInt {
				m.VectorClock[peer] = counter.Int
			}
		}
	}
	if sig, ok := v.GetBytes("signature"); ok {
		m.Signature = sig
	}
	m.NakReason, _ = v.GetString("reason")
	return m, true
}

// RelayEnvelopePayload is the structured payload of a KindRelayEnvelope
// message: the target, the original message, an
// integrity hash over its canonical serialization, the relaying signer's
// public key, and a signature over the tuple.
type RelayEnvelopePayload struct {
	Target              string
	Original            Message
	IntegrityHash       []byte
	SignerPublicKey     []byte
	Signature           []byte
	RecoveryReason      string
	LastTransportError  string
}

// ToValue serializes a RelayEnvelopePayload.
func (r RelayEnvelopePayload) ToValue() codec.Value {
	fields := map[string]codec.Value{
		"target":          codec.String(r.Target),
		"originalMessage": r.Original.ToValue(),
		"integrityHash":   codec.Bytes(r.IntegrityHash),
		"signerPublicKey": codec.Bytes(r.SignerPublicKey),
		"signature":       codec.Bytes(r.Signature),
	}
	if r.RecoveryReason != "" {
		fields["recoveryReason"] = codec.String(r.RecoveryReason)
	}
	if r.LastTransportError != "" {
		fields["lastTransportError"] = codec.String(r.LastTransportError)
	}
	return codec.Map(fields)
}

// RelayEnvelopePayloadFromValue parses a RelayEnvelopePayload.
func RelayEnvelopePayloadFromValue(v codec.Value) (RelayEnvelopePayload, bool) {
	if v.Kind != codec.KindMap {
		return RelayEnvelopePayload{}, false
	}
	var r RelayEnvelopePayload
	var ok bool
	if r.Target, ok = v.GetString("target"); !ok {
		return RelayEnvelopePayload{}, false
	}
	origVal, ok := v.Get("originalMessage")
	if !ok {
		return RelayEnvelopePayload{}, false
	}
	r.Original, ok = MessageFromValue(origVal)
	if !ok {
		return RelayEnvelopePayload{}, false
	}
	r.IntegrityHash, _ = v.GetBytes("integrityHash")
	r.SignerPublicKey, _ = v.GetBytes("signerPublicKey")
	r.Signature, _ = v.GetBytes("signature")
	r.RecoveryReason, _ = v.GetString("recoveryReason")
	r.LastTransportError, _ = v.GetString("lastTransportError")
	return r, true
}

// SigningPayload returns the canonical bytes signed by the relay
// signature: {target, originalMessage, recoveryReason?, lastTransportError?, integrityHash}.
func (r RelayEnvelopePayload) SigningPayload() ([]byte, error) {
	fields := map[string]codec.Value{
		"target":          codec.String(r.Target),
		"originalMessage": r.Original.ToValue(),
		"integrityHash":   codec.Bytes(r.IntegrityHash),
	}
	if r.RecoveryReason != "" {
		fields["recoveryReason"] = codec.String(r.RecoveryReason)
	}
	if r.LastTransportError != "" {
		fields["lastTransportError"] = codec.String(r.LastTransportError)
	}
	return codec.Encode(codec.Map(fields))
}
