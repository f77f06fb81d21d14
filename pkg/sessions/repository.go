package sessions

import (
	"context"
	"time"
)

// Repository defines the interface for ticket session data access
type Repository interface {
	// Record persists one login resolution. Recording the same ticket
	// again refreshes the existing row instead of duplicating it.
	Record(ctx context.Context, req RecordSessionRequest) (*TicketSession, error)

	// Get a session record by its ticket ID
	GetByTicketID(ctx context.Context, ticketID string) (*TicketSession, error)

	// List active (unrevoked) session records for an SSO identity
	ListActiveBySSOID(ctx context.Context, ssoID string) ([]TicketSession, error)

	// Count active session records for an SSO identity
	CountActiveBySSOID(ctx context.Context, ssoID string) (int, error)

	// Update the last-seen timestamp for a ticket
	Touch(ctx context.Context, ticketID string) error

	// Update the classified user type after an entitlement refresh
	UpdateUserType(ctx context.Context, ticketID, userType string) error

	// Revoke a session record by ticket ID
	Revoke(ctx context.Context, ticketID string) error

	// Revoke every session record for an SSO identity
	RevokeAllBySSOID(ctx context.Context, ssoID string) error

	// Check if a ticket's record is revoked
	IsRevoked(ctx context.Context, ticketID string) (bool, error)

	// Cleanup revoked records older than the cutoff (for maintenance)
	DeleteOldRevoked(ctx context.Context, olderThan time.Time) error
}
