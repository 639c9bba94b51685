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

// SLAResult carries the deadlines and agreement status derived from a
// priority's SLA. All fields are nil when no SLA covers the priority.
type SLAResult struct {
	ResponseBy      *time.Time
	ResolutionBy    *time.Time
	AgreementStatus *domain.AgreementStatus
}

// SLAService derives deadlines from the SLA catalog. Deadlines are
// anchored at a reference instant (ticket creation) and shifted forward
// by accumulated hold time so pauses never count against the agreement.
type SLAService struct {
	slas repository.SLARepository
}

// SLADependencies bundles repositories for SLA service.
type SLADependencies struct {
	SLARepo repository.SLARepository
}

// NewSLAService creates an SLA service.
func NewSLAService(deps SLADependencies) *SLAService {
	return &SLAService{slas: deps.SLARepo}
}

// Resolve computes deadlines for a priority. A priority without an SLA
// yields an empty result and no error; the ticket simply carries no
// deadlines.
func (s *SLAService) Resolve(ctx context.Context, priority string, ref time.Time, holdTime time.Duration) (SLAResult, error) {
	sla, err := s.slas.GetByPriority(ctx, priority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SLAResult{}, nil
		}
		return SLAResult{}, apperrors.MapError(err)
	}

	var result SLAResult
	if sla.FirstResponseTime != nil {
		t := ref.Add(*sla.FirstResponseTime + holdTime)
		result.ResponseBy = &t
	}
	if sla.ResolutionTime != nil {
		t := ref.Add(*sla.ResolutionTime + holdTime)
		result.ResolutionBy = &t
	}
	if result.ResponseBy != nil || result.ResolutionBy != nil {
		status := domain.AgreementFirstResponseDue
		if result.ResponseBy == nil {
			status = domain.AgreementResolutionDue
		}
		result.AgreementStatus = &status
	}
	return result, nil
}
