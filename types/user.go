package types

import "time"

// Roles recognized by the platform. Every account carries exactly one.
const (
	RoleAdmin  = "admin"
	RoleFarmer = "farmer"
)

// Account represents a user account in the system.
// It mirrors the identity provider's record and adds platform metadata.
type Account struct {
	// UID is the unique identifier of the account, issued by the
	// identity provider. It doubles as the document key in the
	// record store.
	UID string `json:"uid" firestore:"uid"`

	// Email is the account's email address, used for sign-in.
	Email string `json:"email" firestore:"email"`

	// Name is the account holder's display or full name.
	Name string `json:"name" firestore:"name"`

	// Username is the unique handle chosen for the account. Uniqueness
	// spans live and archived accounts and is enforced by a pre-write
	// query, not a store-level constraint.
	Username string `json:"username" firestore:"username"`

	// Phone is an optional contact phone number.
	Phone string `json:"phone" firestore:"phone"`

	// Role indicates the account's authorization level
	// (RoleAdmin or RoleFarmer).
	Role string `json:"role" firestore:"role"`

	// IsDeleted marks the account as soft-deleted. Soft-deleted
	// accounts keep their live document but are rejected by the
	// authorization pipeline.
	IsDeleted bool `json:"isDeleted" firestore:"isDeleted"`

	// DeletedAt is the timestamp of the soft delete, zero otherwise.
	DeletedAt time.Time `json:"deletedAt,omitempty" firestore:"deletedAt,omitempty"`

	// CreatedAt is the timestamp at which the account was created.
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// AuthContext is the request-scoped identity attached by the
// authorization pipeline after a bearer token has been verified.
// It is derived per request and discarded when the request completes.
type AuthContext struct {
	// UID is the verified token subject.
	UID string `json:"uid"`

	// Role is the effective role. The persisted account record wins
	// over the token claim when both are present, since record edits
	// take effect without re-issuing tokens.
	Role string `json:"role"`

	// Claims carries the raw verified token claims.
	Claims map[string]interface{} `json:"-"`
}
