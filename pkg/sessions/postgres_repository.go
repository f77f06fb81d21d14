package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL ticket session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const sessionColumns = `
	id, ticket_id, sso_id, email, user_type, merchant, platform,
	ip_address, user_agent, issued_at, last_seen_at, revoked_at,
	created_at, updated_at
`

func scanSession(row interface{ Scan(dest ...any) error }) (*TicketSession, error) {
	session := &TicketSession{}
	var revokedAt sql.NullTime

	err := row.Scan(
		&session.ID,
		&session.TicketID,
		&session.SSOID,
		&session.Email,
		&session.UserType,
		&session.Merchant,
		&session.Platform,
		&session.IPAddress,
		&session.UserAgent,
		&session.IssuedAt,
		&session.LastSeenAt,
		&revokedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}
	return session, nil
}

// Record persists one login resolution, refreshing the existing row when the
// same ticket is resolved again.
func (r *PostgresRepository) Record(ctx context.Context, req RecordSessionRequest) (*TicketSession, error) {
	query := `
		INSERT INTO ticket_sessions (
			ticket_id, sso_id, email, user_type, merchant, platform,
			ip_address, user_agent, issued_at, last_seen_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
		ON CONFLICT (ticket_id) DO UPDATE SET
			user_type = EXCLUDED.user_type,
			last_seen_at = NOW(),
			updated_at = NOW()
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query,
		req.TicketID,
		req.SSOID,
		req.Email,
		req.UserType,
		req.Merchant,
		req.Platform,
		req.IPAddress,
		req.UserAgent,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}
	return session, nil
}

// GetByTicketID retrieves a session record by its ticket ID
func (r *PostgresRepository) GetByTicketID(ctx context.Context, ticketID string) (*TicketSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM ticket_sessions WHERE ticket_id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, ticketID))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListActiveBySSOID lists unrevoked session records for an SSO identity
func (r *PostgresRepository) ListActiveBySSOID(ctx context.Context, ssoID string) ([]TicketSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM ticket_sessions
		WHERE sso_id = $1 AND revoked_at IS NULL
		ORDER BY last_seen_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ssoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []TicketSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// CountActiveBySSOID counts unrevoked session records for an SSO identity
func (r *PostgresRepository) CountActiveBySSOID(ctx context.Context, ssoID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ticket_sessions WHERE sso_id = $1 AND revoked_at IS NULL`,
		ssoID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// Touch updates the last-seen timestamp for a ticket
func (r *PostgresRepository) Touch(ctx context.Context, ticketID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ticket_sessions SET last_seen_at = NOW(), updated_at = NOW() WHERE ticket_id = $1`,
		ticketID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not found for ticket %s", ticketID)
	}
	return nil
}

// UpdateUserType updates the classified user type after an entitlement refresh
func (r *PostgresRepository) UpdateUserType(ctx context.Context, ticketID, userType string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ticket_sessions SET user_type = $2, updated_at = NOW() WHERE ticket_id = $1`,
		ticketID, userType,
	)
	if err != nil {
		return fmt.Errorf("failed to update user type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not found for ticket %s", ticketID)
	}
	return nil
}

// Revoke revokes a session record by ticket ID
func (r *PostgresRepository) Revoke(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ticket_sessions SET revoked_at = NOW(), updated_at = NOW()
		 WHERE ticket_id = $1 AND revoked_at IS NULL`,
		ticketID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAllBySSOID revokes every session record for an SSO identity
func (r *PostgresRepository) RevokeAllBySSOID(ctx context.Context, ssoID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ticket_sessions SET revoked_at = NOW(), updated_at = NOW()
		 WHERE sso_id = $1 AND revoked_at IS NULL`,
		ssoID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// IsRevoked checks if a ticket's record is revoked
func (r *PostgresRepository) IsRevoked(ctx context.Context, ticketID string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT revoked_at IS NOT NULL FROM ticket_sessions WHERE ticket_id = $1`,
		ticketID,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// DeleteOldRevoked removes revoked records older than the cutoff
func (r *PostgresRepository) DeleteOldRevoked(ctx context.Context, olderThan time.Time) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM ticket_sessions WHERE revoked_at IS NOT NULL AND revoked_at < $1`,
		olderThan,
	)
	if err != nil {
		return fmt.Errorf("failed to delete old revoked sessions: %w", err)
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
