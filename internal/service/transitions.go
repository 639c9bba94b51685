package service

import (
	"context"
	"time"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// applyStatusChange performs the side effects of a status transition on
// the in-memory ticket: the persist happens once in Update.
//
// Entering On Hold opens a hold interval and pauses the agreement.
// Leaving it closes the interval, adds the pause to total hold time,
// shifts the still-pending deadlines forward, and recomputes the
// agreement. Entering a terminal state stamps resolution and settles
// the agreement for good; leaving one clears the resolution stamps.
func (s *TicketService) applyStatusChange(ctx context.Context, ticket *domain.Ticket, status domain.TicketStatus, now time.Time, actor Actor) error {
	previous := ticket.Status

	if previous == domain.TicketStatusOnHold && status != domain.TicketStatusOnHold {
		paused, err := s.hold.ExitHold(ctx, ticket.Code, now)
		if err != nil {
			return err
		}
		ticket.TotalHoldTime += paused
		shiftDeadlines(ticket, paused)
		recomputeAgreement(ticket, now)
	}

	switch {
	case status == domain.TicketStatusOnHold:
		if err := s.hold.EnterHold(ctx, ticket.Code, now); err != nil {
			return err
		}
		if ticket.AgreementStatus != nil {
			paused := domain.AgreementPaused
			ticket.AgreementStatus = &paused
		}
	case status.Terminal() && !previous.Terminal():
		stampResolution(ticket, now, actor)
		settleResolutionAgreement(ticket, now)
	case !status.Terminal() && previous.Terminal():
		clearResolution(ticket)
		recomputeAgreement(ticket, now)
	}

	ticket.Status = status
	return nil
}

// shiftDeadlines moves deadlines that are still live forward by the
// paused span. The response deadline moves only while no first response
// exists; a met deadline stays where it was met.
func shiftDeadlines(ticket *domain.Ticket, paused time.Duration) {
	if paused <= 0 {
		return
	}
	if ticket.ResponseBy != nil && ticket.FirstRespondedOn == nil {
		t := ticket.ResponseBy.Add(paused)
		ticket.ResponseBy = &t
	}
	if ticket.ResolutionBy != nil {
		t := ticket.ResolutionBy.Add(paused)
		ticket.ResolutionBy = &t
	}
}

// recomputeAgreement derives the agreement status from the current
// deadlines for a live ticket. Terminal tickets are settled elsewhere
// and never rewritten here.
func recomputeAgreement(ticket *domain.Ticket, now time.Time) {
	if ticket.Status.Terminal() {
		return
	}
	if ticket.ResponseBy == nil && ticket.ResolutionBy == nil {
		ticket.AgreementStatus = nil
		return
	}
	var status domain.AgreementStatus
	switch {
	case ticket.ResolutionBy != nil && now.After(*ticket.ResolutionBy):
		status = domain.AgreementFailed
	case ticket.FirstRespondedOn == nil && ticket.ResponseBy != nil && now.After(*ticket.ResponseBy):
		status = domain.AgreementFailed
	case ticket.FirstRespondedOn == nil && ticket.ResponseBy != nil:
		status = domain.AgreementFirstResponseDue
	case ticket.ResolutionBy != nil:
		status = domain.AgreementResolutionDue
	default:
		status = domain.AgreementFulfilled
	}
	ticket.AgreementStatus = &status
}

func stampResolution(ticket *domain.Ticket, now time.Time, actor Actor) {
	t := now
	ticket.ResolutionDate = &t
	ticket.ResolvedBy = actor.ID
	ticket.ResolvedByBot = actor.ID == nil
}

func clearResolution(ticket *domain.Ticket) {
	ticket.ResolutionDate = nil
	ticket.ResolvedBy = nil
	ticket.ResolvedByBot = false
}

// settleResolutionAgreement fixes the final agreement status when the
// ticket resolves: met deadlines fulfill it, a missed one fails it. An
// agreement that already failed stays failed.
func settleResolutionAgreement(ticket *domain.Ticket, now time.Time) {
	if ticket.AgreementStatus == nil || *ticket.AgreementStatus == domain.AgreementFailed {
		return
	}
	status := domain.AgreementFulfilled
	if ticket.ResolutionBy != nil && now.After(*ticket.ResolutionBy) {
		status = domain.AgreementFailed
	}
	if ticket.ResponseBy != nil && ticket.FirstRespondedOn == nil && ticket.BotFirstRespondedOn == nil {
		status = domain.AgreementFailed
	}
	ticket.AgreementStatus = &status
}

// settleFirstResponseAgreement advances the agreement when the first
// outbound answer lands: late answers fail it, on-time ones move it to
// the resolution phase or fulfill it outright.
func settleFirstResponseAgreement(ticket *domain.Ticket, now time.Time) {
	if ticket.AgreementStatus == nil {
		return
	}
	var status domain.AgreementStatus
	switch {
	case ticket.ResponseBy != nil && now.After(*ticket.ResponseBy):
		status = domain.AgreementFailed
	case ticket.ResolutionBy != nil:
		status = domain.AgreementResolutionDue
	default:
		status = domain.AgreementFulfilled
	}
	ticket.AgreementStatus = &status
}

// applySLAResult rewrites deadlines after a priority change and
// re-derives the agreement unless already settled by a failure.
func applySLAResult(ticket *domain.Ticket, result SLAResult, now time.Time) {
	ticket.ResponseBy = result.ResponseBy
	ticket.ResolutionBy = result.ResolutionBy
	if ticket.AgreementStatus != nil && *ticket.AgreementStatus == domain.AgreementPaused {
		return
	}
	recomputeAgreement(ticket, now)
}
