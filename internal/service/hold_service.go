package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/repository"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// HoldService tracks the spans during which a ticket's SLA clock is
// stopped. The partial unique index on open intervals makes double
// entry impossible even under concurrent writers.
type HoldService struct {
	holds repository.HoldRepository
}

// HoldDependencies bundles repositories for hold service.
type HoldDependencies struct {
	HoldRepo repository.HoldRepository
}

// NewHoldService creates a hold service.
func NewHoldService(deps HoldDependencies) *HoldService {
	return &HoldService{holds: deps.HoldRepo}
}

// EnterHold opens an interval at the given instant. Entering a ticket
// that already has an open interval is a no-op.
func (s *HoldService) EnterHold(ctx context.Context, ticketCode string, at time.Time) error {
	if _, err := s.holds.FindOpen(ctx, ticketCode); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	if _, err := s.holds.Open(ctx, ticketCode, at); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ExitHold closes the open interval and returns its duration. A ticket
// with no open interval returns zero; hold exits must stay idempotent
// because status updates can race.
func (s *HoldService) ExitHold(ctx context.Context, ticketCode string, at time.Time) (time.Duration, error) {
	open, err := s.holds.FindOpen(ctx, ticketCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, apperrors.MapError(err)
	}
	duration := at.Sub(open.HoldStart)
	if duration < 0 {
		duration = 0
	}
	if err := s.holds.Close(ctx, open.ID, at, duration); err != nil {
		return 0, apperrors.MapError(err)
	}
	return duration, nil
}

// History lists all intervals recorded for a ticket.
func (s *HoldService) History(ctx context.Context, ticketCode string) ([]domain.HoldInterval, error) {
	intervals, err := s.holds.ListByTicket(ctx, ticketCode)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return intervals, nil
}
