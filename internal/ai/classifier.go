// Package ai defines the classifier collaborator: an external model that
// reads ticket context and proposes routing or resolution decisions.
package ai

import (
	"context"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// TeamOption describes one routable team for the classifier prompt.
type TeamOption struct {
	Name        string
	Description string
}

// ResolvedExample pairs a past ticket subject with its final outbound
// resolution, used as few-shot context.
type ResolvedExample struct {
	Subject    string
	Resolution string
}

// HistoryEntry is one conversation turn.
type HistoryEntry struct {
	Direction domain.Direction
	Body      string
}

// AnalyzeRequest carries the full context for a classification call.
type AnalyzeRequest struct {
	Subject         string
	Description     string
	Teams           []TeamOption
	Priorities      []string
	KBArticles      []domain.KBArticle
	ResolvedTickets []ResolvedExample
	History         []HistoryEntry
}

// Classifier analyzes a ticket and returns a routing decision. A
// malformed model response must surface as an error so the caller can
// fail closed.
type Classifier interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*domain.TicketAnalysis, error)
}
