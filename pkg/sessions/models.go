package sessions

import (
	"time"

	"github.com/google/uuid"
)

// TicketSession is the persistent record of one resolved SSO ticket. It is
// what admin and institution dashboards read; the live in-process state
// never leaves the portal.
type TicketSession struct {
	ID         uuid.UUID  `json:"id"`
	TicketID   string     `json:"ticket_id"`
	SSOID      string     `json:"sso_id"`
	Email      string     `json:"email,omitempty"`
	UserType   string     `json:"user_type"`
	Merchant   string     `json:"merchant"`
	Platform   string     `json:"platform"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	IssuedAt   time.Time  `json:"issued_at"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RecordSessionRequest captures one login resolution for persistence.
type RecordSessionRequest struct {
	TicketID  string `json:"ticket_id"`
	SSOID     string `json:"sso_id"`
	Email     string `json:"email,omitempty"`
	UserType  string `json:"user_type"`
	Merchant  string `json:"merchant"`
	Platform  string `json:"platform"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// SessionSummary is a simplified record view for listing
type SessionSummary struct {
	ID         uuid.UUID  `json:"id"`
	TicketID   string     `json:"ticket_id"`
	UserType   string     `json:"user_type"`
	IPAddress  string     `json:"ip_address"`
	IssuedAt   time.Time  `json:"issued_at"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// SessionListResponse represents the response for listing a user's sessions
type SessionListResponse struct {
	Sessions    []SessionSummary `json:"sessions"`
	Total       int              `json:"total"`
	ActiveCount int              `json:"active_count"`
}
