package types

import "time"

// AuditLogEntry records a user-initiated mutation. Entries are
// append-only and never updated or deleted.
type AuditLogEntry struct {
	// ID is the entry's document key.
	ID string `json:"id" firestore:"id"`

	// Action names the mutation, e.g. "user.register" or
	// "iot.set_blower".
	Action string `json:"action" firestore:"action"`

	// ActorUID is the account that performed the mutation. Empty for
	// machine-originated actions.
	ActorUID string `json:"userId,omitempty" firestore:"userId,omitempty"`

	// NewValue carries the mutation payload.
	NewValue map[string]interface{} `json:"newValue,omitempty" firestore:"newValue,omitempty"`

	// Timestamp is when the mutation happened.
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// AuditLogView is an AuditLogEntry enriched at read time with the
// actor's current account data. The join is computed per request, not
// stored.
type AuditLogView struct {
	AuditLogEntry
	User AuditActor `json:"user"`
}

// AuditActor is the joined actor summary on an audit log view.
type AuditActor struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	Username string `json:"username,omitempty"`
}

// SystemLogEntry records a system-level event such as an aggregation
// run or an upstream failure. Append-only.
type SystemLogEntry struct {
	ID        string                 `json:"id" firestore:"id"`
	Action    string                 `json:"action" firestore:"action"`
	Payload   map[string]interface{} `json:"payload,omitempty" firestore:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp" firestore:"timestamp"`
}
