package worker

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/events"
	"github.com/quilldesk/helpdesk/internal/mail"
	"github.com/quilldesk/helpdesk/internal/service"
)

// MailWorker polls the mailbox and turns messages into tickets or
// replies. Thread resolution decides which: a message whose In-Reply-To
// or References match a known ticket thread appends to it, anything
// else opens a new ticket. Every inbound intake requests an AI
// orchestration pass.
type MailWorker struct {
	mailer     mail.Mailer
	threads    *service.ThreadService
	tickets    *service.TicketService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	batch      int
}

// MailWorkerDependencies bundles collaborators for the worker.
type MailWorkerDependencies struct {
	Mailer       mail.Mailer
	Threads      *service.ThreadService
	Tickets      *service.TicketService
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	PollInterval time.Duration
	MaxPerPull   int
}

// NewMailWorker creates a mail worker.
func NewMailWorker(deps MailWorkerDependencies) *MailWorker {
	interval := deps.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	batch := deps.MaxPerPull
	if batch <= 0 {
		batch = 100
	}
	return &MailWorker{
		mailer:     deps.Mailer,
		threads:    deps.Threads,
		tickets:    deps.Tickets,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		interval:   interval,
		batch:      batch,
	}
}

// Run polls until the context is cancelled. A nil mailer disables the
// worker.
func (w *MailWorker) Run(ctx context.Context) {
	if w.mailer == nil {
		w.logger.Info("mail worker disabled, no mailer configured")
		return
	}
	w.logger.Info("mail worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("mail worker stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *MailWorker) poll(ctx context.Context) {
	emails, err := w.mailer.Pull(ctx, w.batch)
	if err != nil {
		w.logger.Error("mail pull failed", zap.Error(err))
		return
	}
	for i := range emails {
		code, raisedBy, err := w.Intake(ctx, emails[i])
		if err != nil {
			w.logger.Error("mail intake failed",
				zap.String("message_id", emails[i].MessageID),
				zap.Error(err))
			continue
		}
		w.requestProcessing(ctx, code, raisedBy)
	}
}

// Intake routes one message: appends to its resolved ticket thread, or
// opens a new ticket when no thread matches. It returns the ticket code
// the message landed on.
func (w *MailWorker) Intake(ctx context.Context, email mail.InboundEmail) (string, string, error) {
	raisedBy := strings.TrimSpace(email.SenderName)
	if raisedBy == "" {
		raisedBy = email.SenderEmail
	}
	messageID := optional(email.MessageID)
	body := email.BodyText
	if strings.TrimSpace(body) == "" {
		body = email.FullBodyText
	}

	code, found, err := w.threads.Resolve(ctx, email.InReplyTo, email.References)
	if err != nil {
		return "", raisedBy, err
	}
	if found {
		_, err := w.tickets.Reply(ctx, code, service.ReplyInput{
			Body:        body,
			Direction:   domain.DirectionInbound,
			RaisedBy:    raisedBy,
			MessageID:   messageID,
			RawHeaders:  email.RawHeaders,
			Attachments: attachmentMap(email.Attachments),
		})
		return code, raisedBy, err
	}

	ticket, err := w.tickets.Create(ctx, service.TicketCreateInput{
		Subject:          email.Subject,
		Description:      body,
		RaisedBy:         raisedBy,
		Channel:          "Email",
		SenderHandle:     email.SenderEmail,
		SenderFullName:   email.SenderName,
		ExternalThreadID: messageID,
		MessageID:        messageID,
		RawHeaders:       email.RawHeaders,
		Attachments:      attachmentMap(email.Attachments),
	})
	if err != nil {
		return "", raisedBy, err
	}
	return ticket.Code, raisedBy, nil
}

func (w *MailWorker) requestProcessing(ctx context.Context, code, raisedBy string) {
	err := w.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventAIProcessRequested,
		TicketCode: code,
		Timestamp:  time.Now().UTC(),
		Payload: events.TicketRepliedPayload{
			Direction: domain.DirectionInbound,
			RaisedBy:  raisedBy,
		},
	})
	if err != nil {
		w.logger.Warn("ai process request failed", zap.String("ticket", code), zap.Error(err))
	}
}

func attachmentMap(attachments []mail.Attachment) map[string]string {
	if len(attachments) == 0 {
		return nil
	}
	out := make(map[string]string, len(attachments))
	for _, a := range attachments {
		out[a.Filename] = a.Data
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
