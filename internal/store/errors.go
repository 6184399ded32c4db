package store

import "errors"

var (
	// ErrNotFound is returned by lookups that find no matching row.
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyProcessed is returned by PersistIncomingAtomically when
	// the message id is already present in processed_messages (spec
	// 's atomicity requirement: dedup-check and insert happen in
	// one transaction so no duplicate can slip through between them).
	ErrAlreadyProcessed = errors.New("store: message already processed")
)
