package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/quilldesk/helpdesk/internal/ai"
	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/events"
	"github.com/quilldesk/helpdesk/internal/observability"
	"github.com/quilldesk/helpdesk/internal/repository"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

const (
	autoResolutionPrefix = "AI AUTO-RESOLUTION:\n\n"
	resolvedExampleLimit = 10
)

// OrchestratorService runs the classification pass over a ticket:
// gather context, ask the classifier, then either auto-resolve, ask a
// clarifying question, or confirm the routing. Replies go out before
// the routing update so the customer-visible answer is never blocked by
// a failed reassignment.
type OrchestratorService struct {
	tickets    repository.TicketRepository
	comms      repository.CommunicationRepository
	teams      repository.TeamRepository
	priorities repository.PriorityRepository
	kb         repository.KBRepository
	slas       repository.SLARepository
	ticketSvc  *TicketService
	classifier ai.Classifier
	progress   events.ProgressObserver
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	botName    string
	marker     string
}

// OrchestratorDependencies bundles collaborators for the orchestrator.
type OrchestratorDependencies struct {
	TicketRepo         repository.TicketRepository
	CommunicationRepo  repository.CommunicationRepository
	TeamRepo           repository.TeamRepository
	PriorityRepo       repository.PriorityRepository
	KBRepo             repository.KBRepository
	SLARepo            repository.SLARepository
	TicketService      *TicketService
	Classifier         ai.Classifier
	Progress           events.ProgressObserver
	Dispatcher         events.Dispatcher
	Metrics            *observability.Metrics
	Logger             *zap.Logger
	BotName            string
	ConfirmationMarker string
}

// NewOrchestratorService creates an orchestrator.
func NewOrchestratorService(deps OrchestratorDependencies) *OrchestratorService {
	return &OrchestratorService{
		tickets:    deps.TicketRepo,
		comms:      deps.CommunicationRepo,
		teams:      deps.TeamRepo,
		priorities: deps.PriorityRepo,
		kb:         deps.KBRepo,
		slas:       deps.SLARepo,
		ticketSvc:  deps.TicketService,
		classifier: deps.Classifier,
		progress:   deps.Progress,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		botName:    deps.BotName,
		marker:     deps.ConfirmationMarker,
	}
}

// Register subscribes the orchestrator to processing requests.
func (s *OrchestratorService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventAIProcessRequested, func(ctx context.Context, event events.Event) error {
		direction := domain.DirectionInbound
		if payload, ok := event.Payload.(events.TicketRepliedPayload); ok {
			direction = payload.Direction
		}
		return s.Process(ctx, event.TicketCode, direction)
	})
}

// Process runs one orchestration pass. Skips are silent successes: a
// pass triggered by our own outbound reply, a thread whose last word is
// already ours, or a thread the bot has already confirmed routing on
// all end without a classifier call.
func (s *OrchestratorService) Process(ctx context.Context, code string, trigger domain.Direction) error {
	if s.classifier == nil {
		s.logger.Warn("orchestration skipped, no classifier configured", zap.String("ticket", code))
		s.metrics.RecordOrchestration("skipped")
		return apperrors.NewConfigurationError("classifier is not configured")
	}
	if trigger == domain.DirectionOutbound {
		return nil
	}

	ticket, err := s.ticketSvc.Get(ctx, code)
	if err != nil {
		return err
	}
	if ticket.Status.Terminal() {
		return nil
	}

	s.emit(ctx, code, events.StageStarted, "AI processing started")

	conversation, err := s.comms.ListByTicket(ctx, code)
	if err != nil {
		return s.fail(ctx, code, err)
	}
	if skip, reason := s.shouldSkip(conversation); skip {
		s.logger.Debug("orchestration skipped", zap.String("ticket", code), zap.String("reason", reason))
		s.emit(ctx, code, events.StageCompleted, "skipped: "+reason)
		s.metrics.RecordOrchestration("skipped")
		return nil
	}

	s.emit(ctx, code, events.StageFetchingContext, "Gathering routing context")
	req, err := s.buildRequest(ctx, ticket, conversation)
	if err != nil {
		return s.fail(ctx, code, err)
	}

	s.emit(ctx, code, events.StageAnalyzing, "Analyzing ticket")
	analysis, err := s.classifier.Analyze(ctx, req)
	if err != nil {
		return s.fail(ctx, code, err)
	}
	s.emit(ctx, code, events.StageAnalysisComplete,
		fmt.Sprintf("Routing to %s with %s priority", analysis.Team, analysis.Priority))

	outcome, err := s.apply(ctx, ticket, conversation, analysis)
	if err != nil {
		return s.fail(ctx, code, err)
	}

	s.metrics.RecordOrchestration(outcome)
	s.emit(ctx, code, events.StageCompleted, "AI processing completed")
	s.publishProcessed(ctx, code, analysis, outcome)
	return nil
}

// shouldSkip inspects the conversation for reasons to leave the thread
// alone. A thread already ending in an outbound reply needs no answer;
// a thread where the bot has confirmed routing is handed to humans.
func (s *OrchestratorService) shouldSkip(conversation []domain.Communication) (bool, string) {
	var last *domain.Communication
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Direction == domain.DirectionInbound || conversation[i].Direction == domain.DirectionOutbound {
			last = &conversation[i]
			break
		}
	}
	if last != nil && last.Direction == domain.DirectionOutbound {
		return true, "last message is outbound"
	}
	for i := range conversation {
		c := &conversation[i]
		if c.Direction == domain.DirectionOutbound && c.RaisedBy == s.botName && strings.Contains(c.Body, s.marker) {
			return true, "routing already confirmed"
		}
	}
	return false, ""
}

func (s *OrchestratorService) buildRequest(ctx context.Context, ticket *domain.Ticket, conversation []domain.Communication) (ai.AnalyzeRequest, error) {
	req := ai.AnalyzeRequest{Subject: ticket.Subject, Description: ticket.Description}

	teams, err := s.teams.List(ctx)
	if err != nil {
		return req, err
	}
	for _, team := range teams {
		req.Teams = append(req.Teams, ai.TeamOption{Name: team.Name, Description: team.Description})
	}

	priorities, err := s.priorities.List(ctx)
	if err != nil {
		return req, err
	}
	for _, p := range priorities {
		req.Priorities = append(req.Priorities, p.Name)
	}

	articles, err := s.kb.List(ctx)
	if err != nil {
		return req, err
	}
	req.KBArticles = articles

	resolved, err := s.tickets.ListRecentResolved(ctx, resolvedExampleLimit)
	if err != nil {
		return req, err
	}
	for _, rt := range resolved {
		answer, err := s.comms.LatestOutbound(ctx, rt.Code)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return req, err
		}
		req.ResolvedTickets = append(req.ResolvedTickets, ai.ResolvedExample{
			Subject:    rt.Subject,
			Resolution: answer.Body,
		})
	}

	for _, c := range conversation {
		if c.Direction == domain.DirectionInbound || c.Direction == domain.DirectionOutbound {
			req.History = append(req.History, ai.HistoryEntry{Direction: c.Direction, Body: c.Body})
		}
	}
	return req, nil
}

// apply executes the decision: one of auto-resolve, clarify, or confirm
// routing. Customer replies are sent first; the routing update follows.
func (s *OrchestratorService) apply(ctx context.Context, ticket *domain.Ticket, conversation []domain.Communication, analysis *domain.TicketAnalysis) (string, error) {
	bot := Actor{Name: s.botName}

	switch {
	case analysis.CanResolve && analysis.SuggestedResolution != nil:
		body := autoResolutionPrefix + *analysis.SuggestedResolution
		if err := s.reply(ctx, ticket.Code, body); err != nil {
			return "", err
		}
		resolved := domain.TicketStatusResolved
		if _, err := s.ticketSvc.Update(ctx, ticket.Code, TicketUpdateInput{
			Status:   &resolved,
			Team:     &analysis.Team,
			Priority: &analysis.Priority,
		}, bot); err != nil {
			return "", err
		}
		return "auto_resolved", nil

	case analysis.NeedsMoreInfo && analysis.ClarifyingQuestion != nil:
		if err := s.reply(ctx, ticket.Code, *analysis.ClarifyingQuestion); err != nil {
			return "", err
		}
		if _, err := s.ticketSvc.Update(ctx, ticket.Code, TicketUpdateInput{
			Team:     &analysis.Team,
			Priority: &analysis.Priority,
		}, bot); err != nil {
			return "", err
		}
		return "clarification", nil

	default:
		updated, err := s.ticketSvc.Update(ctx, ticket.Code, TicketUpdateInput{
			Team:     &analysis.Team,
			Priority: &analysis.Priority,
		}, bot)
		if err != nil {
			return "", err
		}
		// confirm only when the customer spoke last and is waiting
		if n := len(conversation); n > 0 && conversation[n-1].Direction == domain.DirectionInbound {
			if err := s.reply(ctx, updated.Code, s.confirmationBody(ctx, updated, analysis)); err != nil {
				return "", err
			}
		}
		return "routed", nil
	}
}

func (s *OrchestratorService) reply(ctx context.Context, code, body string) error {
	_, err := s.ticketSvc.Reply(ctx, code, ReplyInput{
		Body:      body,
		Direction: domain.DirectionOutbound,
		RaisedBy:  s.botName,
		IsBot:     true,
	})
	return err
}

func (s *OrchestratorService) confirmationBody(ctx context.Context, ticket *domain.Ticket, analysis *domain.TicketAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. Your ticket %s has been routed to our %s team with %s priority.",
		s.marker, ticket.Code, analysis.Team, analysis.Priority)
	if sla, err := s.slas.GetByPriority(ctx, analysis.Priority); err == nil && sla.ResolutionTime != nil {
		fmt.Fprintf(&b, " You can expect a resolution within %s.", humanizeDuration(*sla.ResolutionTime))
	}
	return b.String()
}

func (s *OrchestratorService) fail(ctx context.Context, code string, err error) error {
	s.metrics.RecordOrchestration("failed")
	s.emit(ctx, code, events.StageCompleted, "AI processing failed: "+err.Error())
	s.logger.Error("orchestration failed", zap.String("ticket", code), zap.Error(err))
	return err
}

func (s *OrchestratorService) emit(ctx context.Context, code string, stage events.ProgressStage, message string) {
	if s.progress != nil {
		s.progress.Emit(ctx, code, stage, message)
	}
}

func (s *OrchestratorService) publishProcessed(ctx context.Context, code string, analysis *domain.TicketAnalysis, outcome string) {
	event := events.Event{
		Type:       events.EventTicketProcessed,
		TicketCode: code,
		Timestamp:  time.Now().UTC(),
		Payload: events.TicketProcessedPayload{
			Team:          analysis.Team,
			Priority:      analysis.Priority,
			AutoResolved:  outcome == "auto_resolved",
			AskedQuestion: outcome == "clarification",
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish processed event", zap.String("ticket", code), zap.Error(err))
	}
}

// humanizeDuration renders a duration in plain words for customer
// facing text: "2 days 4 hours", "30 minutes".
func humanizeDuration(d time.Duration) string {
	if d <= 0 {
		return "0 minutes"
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 && days == 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 {
		parts = append(parts, "1 minute")
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %s%s", n, unit, "s")
}
