package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/quilldesk/helpdesk/internal/repository"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// ThreadService maps inbound mail threading headers back to tickets.
// Communications are checked first because their message ids are exact;
// the ticket's stored thread id is the fallback for replies that only
// reference the opening message.
type ThreadService struct {
	tickets repository.TicketRepository
	comms   repository.CommunicationRepository
}

// ThreadDependencies bundles repositories for thread service.
type ThreadDependencies struct {
	TicketRepo        repository.TicketRepository
	CommunicationRepo repository.CommunicationRepository
}

// NewThreadService creates a thread service.
func NewThreadService(deps ThreadDependencies) *ThreadService {
	return &ThreadService{tickets: deps.TicketRepo, comms: deps.CommunicationRepo}
}

// Resolve returns the ticket code a reply belongs to, or found=false
// when no candidate id matches and the message starts a new thread.
func (s *ThreadService) Resolve(ctx context.Context, inReplyTo string, references []string) (string, bool, error) {
	candidates := collectCandidates(inReplyTo, references)
	if len(candidates) == 0 {
		return "", false, nil
	}

	code, err := s.comms.FindTicketByMessageIDs(ctx, candidates)
	if err == nil {
		return code, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, apperrors.MapError(err)
	}

	ticket, err := s.tickets.FindByExternalThreadIDs(ctx, candidates)
	if err == nil {
		return ticket.Code, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, apperrors.MapError(err)
	}
	return "", false, nil
}

// collectCandidates merges in-reply-to and references into a deduplicated
// candidate list, preserving order.
func collectCandidates(inReplyTo string, references []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(inReplyTo)
	for _, ref := range references {
		add(ref)
	}
	return out
}
