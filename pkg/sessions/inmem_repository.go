package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemRepository implements Repository with an in-process map, for tests
// and dev setups.
type InMemRepository struct {
	mu       sync.RWMutex
	byTicket map[string]*TicketSession
}

// NewInMemRepository creates an empty InMemRepository.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		byTicket: make(map[string]*TicketSession),
	}
}

func (r *InMemRepository) Record(_ context.Context, req RecordSessionRequest) (*TicketSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if existing, ok := r.byTicket[req.TicketID]; ok {
		existing.LastSeenAt = now
		existing.UpdatedAt = now
		existing.UserType = req.UserType
		out := *existing
		return &out, nil
	}
	session := &TicketSession{
		ID:         uuid.New(),
		TicketID:   req.TicketID,
		SSOID:      req.SSOID,
		Email:      req.Email,
		UserType:   req.UserType,
		Merchant:   req.Merchant,
		Platform:   req.Platform,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		IssuedAt:   now,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.byTicket[req.TicketID] = session
	out := *session
	return &out, nil
}

func (r *InMemRepository) GetByTicketID(_ context.Context, ticketID string) (*TicketSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byTicket[ticketID]
	if !ok {
		return nil, fmt.Errorf("session not found for ticket %s", ticketID)
	}
	out := *session
	return &out, nil
}

func (r *InMemRepository) ListActiveBySSOID(_ context.Context, ssoID string) ([]TicketSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []TicketSession
	for _, session := range r.byTicket {
		if session.SSOID == ssoID && session.RevokedAt == nil {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (r *InMemRepository) CountActiveBySSOID(ctx context.Context, ssoID string) (int, error) {
	list, err := r.ListActiveBySSOID(ctx, ssoID)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (r *InMemRepository) Touch(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byTicket[ticketID]
	if !ok {
		return fmt.Errorf("session not found for ticket %s", ticketID)
	}
	now := time.Now()
	session.LastSeenAt = now
	session.UpdatedAt = now
	return nil
}

func (r *InMemRepository) UpdateUserType(_ context.Context, ticketID, userType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byTicket[ticketID]
	if !ok {
		return fmt.Errorf("session not found for ticket %s", ticketID)
	}
	session.UserType = userType
	session.UpdatedAt = time.Now()
	return nil
}

func (r *InMemRepository) Revoke(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byTicket[ticketID]
	if !ok {
		return fmt.Errorf("session not found for ticket %s", ticketID)
	}
	if session.RevokedAt == nil {
		now := time.Now()
		session.RevokedAt = &now
		session.UpdatedAt = now
	}
	return nil
}

func (r *InMemRepository) RevokeAllBySSOID(_ context.Context, ssoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, session := range r.byTicket {
		if session.SSOID == ssoID && session.RevokedAt == nil {
			t := now
			session.RevokedAt = &t
			session.UpdatedAt = now
		}
	}
	return nil
}

func (r *InMemRepository) IsRevoked(_ context.Context, ticketID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byTicket[ticketID]
	if !ok {
		return false, fmt.Errorf("session not found for ticket %s", ticketID)
	}
	return session.RevokedAt != nil, nil
}

func (r *InMemRepository) DeleteOldRevoked(_ context.Context, olderThan time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ticketID, session := range r.byTicket {
		if session.RevokedAt != nil && session.RevokedAt.Before(olderThan) {
			delete(r.byTicket, ticketID)
		}
	}
	return nil
}

var _ Repository = (*InMemRepository)(nil)
