package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
)

// Service provides ticket session record business logic
type Service struct {
	repo Repository
}

// NewService creates a new session record service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// RecordLogin persists one login resolution
func (s *Service) RecordLogin(ctx context.Context, req RecordSessionRequest) (*TicketSession, error) {
	if req.TicketID == "" {
		return nil, fmt.Errorf("ticket_id is required")
	}
	if req.SSOID == "" {
		return nil, fmt.Errorf("sso_id is required")
	}
	if req.UserType == "" {
		req.UserType = "New"
	}
	return s.repo.Record(ctx, req)
}

// GetSession retrieves a session record by ticket ID
func (s *Service) GetSession(ctx context.Context, ticketID string) (*TicketSession, error) {
	return s.repo.GetByTicketID(ctx, ticketID)
}

// ListActiveSessions lists unrevoked records for an SSO identity
func (s *Service) ListActiveSessions(ctx context.Context, ssoID string) ([]TicketSession, error) {
	return s.repo.ListActiveBySSOID(ctx, ssoID)
}

// ListActiveSessionSummaries returns a simplified view of the active records
func (s *Service) ListActiveSessionSummaries(ctx context.Context, ssoID string) (*SessionListResponse, error) {
	sessions, err := s.repo.ListActiveBySSOID(ctx, ssoID)
	if err != nil {
		return nil, err
	}

	activeCount, err := s.repo.CountActiveBySSOID(ctx, ssoID)
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, session := range sessions {
		if err := copier.Copy(&summaries[i], &session); err != nil {
			return nil, fmt.Errorf("failed to map session summary: %w", err)
		}
	}

	return &SessionListResponse{
		Sessions:    summaries,
		Total:       len(summaries),
		ActiveCount: activeCount,
	}, nil
}

// TouchSession updates the last-seen timestamp for a ticket
func (s *Service) TouchSession(ctx context.Context, ticketID string) error {
	return s.repo.Touch(ctx, ticketID)
}

// UpdateUserType records a reclassification after an entitlement refresh
func (s *Service) UpdateUserType(ctx context.Context, ticketID, userType string) error {
	if userType == "" {
		return fmt.Errorf("user_type is required")
	}
	return s.repo.UpdateUserType(ctx, ticketID, userType)
}

// RevokeSession revokes a record by ticket ID, used on logout
func (s *Service) RevokeSession(ctx context.Context, ticketID string) error {
	return s.repo.Revoke(ctx, ticketID)
}

// RevokeAllSessions revokes every record for an SSO identity
func (s *Service) RevokeAllSessions(ctx context.Context, ssoID string) error {
	return s.repo.RevokeAllBySSOID(ctx, ssoID)
}

// IsSessionRevoked checks if a ticket's record is revoked
func (s *Service) IsSessionRevoked(ctx context.Context, ticketID string) (bool, error) {
	return s.repo.IsRevoked(ctx, ticketID)
}

// CleanupRevoked removes revoked records older than retention
func (s *Service) CleanupRevoked(ctx context.Context, retention time.Duration) error {
	return s.repo.DeleteOldRevoked(ctx, time.Now().Add(-retention))
}
