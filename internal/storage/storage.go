// Package storage persists small pieces of client state between runs:
// the serialized session, per-user last-seen chat marks, and transient
// multi-step flow flags.
package storage

import "errors"

var ErrKeyNotFound = errors.New("storage: key not found")

// Well-known keys. Per-user keys are built with LastSeenKey.
const (
	KeyAuth = "auth"

	// Transient flow flags, only meaningful within one run.
	KeyPaymentProofPending = "payment_proof_pending"
	KeyIdentitySubmitted   = "identity_submitted"
	KeyPendingUpload       = "pending_upload" // base64 payload awaiting a later wizard step
)

// LastSeenKey returns the per-user key holding the last time the chat
// panel was opened.
func LastSeenKey(userID string) string {
	return "admin_chat_last_seen_" + userID
}

// Store is a durable string-keyed byte store.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
