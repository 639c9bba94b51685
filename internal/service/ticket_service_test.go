package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/events"
	"github.com/quilldesk/helpdesk/internal/observability"
)

type ticketFixture struct {
	svc         *TicketService
	tickets     *fakeTicketRepo
	comms       *fakeCommRepo
	customers   *fakeCustomerRepo
	handles     *fakeHandleRepo
	settings    *fakeSettingsRepo
	teams       *fakeTeamRepo
	memberships *fakeMembershipRepo
	slas        *fakeSLARepo
	holds       *fakeHoldRepo
	agents      *fakeAgentRepo
	dispatcher  events.Dispatcher
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	logger := zap.NewNop()
	f := &ticketFixture{
		tickets:     newFakeTicketRepo(),
		comms:       newFakeCommRepo(),
		customers:   newFakeCustomerRepo(),
		handles:     newFakeHandleRepo(),
		settings:    newFakeSettingsRepo(),
		teams:       newFakeTeamRepo(domain.Team{Name: "Support"}, domain.Team{Name: "Billing"}),
		memberships: newFakeMembershipRepo(),
		slas: newFakeSLARepo(domain.SLA{
			Priority:          "High",
			FirstResponseTime: durationPtr(4 * time.Hour),
			ResolutionTime:    durationPtr(48 * time.Hour),
		}, domain.SLA{
			Priority:       "Low",
			ResolutionTime: durationPtr(7 * 24 * time.Hour),
		}),
		holds:      newFakeHoldRepo(),
		agents:     newFakeAgentRepo(),
		dispatcher: events.NewInMemoryDispatcher(logger),
	}

	rotation := NewRotationService(RotationDependencies{TeamRepo: f.teams, MembershipRepo: f.memberships})
	sla := NewSLAService(SLADependencies{SLARepo: f.slas})
	hold := NewHoldService(HoldDependencies{HoldRepo: f.holds})
	audit := NewAuditService(AuditDependencies{
		CommunicationRepo: f.comms,
		AgentRepo:         f.agents,
		Logger:            logger,
		BotName:           "AI Orchestrator",
	})
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:        f.tickets,
		CommunicationRepo: f.comms,
		CustomerRepo:      f.customers,
		HandleRepo:        f.handles,
		SettingsRepo:      f.settings,
		TeamRepo:          f.teams,
		PriorityRepo:      newFakePriorityRepo("Low", "Medium", "High"),
		Rotation:          rotation,
		SLA:               sla,
		Hold:              hold,
		Audit:             audit,
		Dispatcher:        f.dispatcher,
		Metrics:           observability.NewMetrics(),
		Logger:            logger,
		BotName:           "AI Orchestrator",
		DefaultChannel:    "Email",
	})
	return f
}

func (f *ticketFixture) create(t *testing.T, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	return ticket
}

func basicInput() TicketCreateInput {
	return TicketCreateInput{
		Subject:      "Printer on fire",
		Description:  "It is very much on fire.",
		RaisedBy:     "Sam Doe",
		Channel:      "Email",
		SenderHandle: "sam@example.com",
	}
}

func TestCreateMintsSequentialCodes(t *testing.T) {
	f := newTicketFixture(t)
	first := f.create(t, basicInput())
	second := f.create(t, basicInput())

	datePart := time.Now().UTC().Format("060102")
	assert.Equal(t, fmt.Sprintf("HD-%s-00001", datePart), first.Code)
	assert.Equal(t, fmt.Sprintf("HD-%s-00002", datePart), second.Code)
	assert.Equal(t, domain.TicketStatusOpen, first.Status)
}

func TestCreateConcurrentMintsDistinctCodes(t *testing.T) {
	f := newTicketFixture(t)
	const workers = 20

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[string]bool)
	)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := f.svc.Create(context.Background(), basicInput())
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			codes[ticket.Code] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// every worker got its own code and the sequence has no gaps
	require.Len(t, codes, workers)
	datePart := time.Now().UTC().Format("060102")
	for seq := 1; seq <= workers; seq++ {
		assert.Contains(t, codes, fmt.Sprintf("HD-%s-%05d", datePart, seq))
	}
}

func TestCreateRegistersNewCustomer(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.SenderFullName = "Sam Doe"
	ticket := f.create(t, input)

	require.NotNil(t, ticket.Customer)
	assert.Equal(t, "CUST-000001", *ticket.Customer)

	customer, err := f.customers.GetByName(context.Background(), *ticket.Customer)
	require.NoError(t, err)
	require.NotNil(t, customer.Email)
	assert.Equal(t, "sam@example.com", *customer.Email)

	handle, err := f.handles.FindByChannelHandle(context.Background(), "Email", "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, customer.Name, handle.Customer)
}

func TestCreateReusesCustomerByHandle(t *testing.T) {
	f := newTicketFixture(t)
	first := f.create(t, basicInput())
	second := f.create(t, basicInput())
	require.NotNil(t, first.Customer)
	require.NotNil(t, second.Customer)
	assert.Equal(t, *first.Customer, *second.Customer)
}

func TestCreateAssignsAgentByRotation(t *testing.T) {
	f := newTicketFixture(t)
	ids := rosterOf(t, f.memberships, "Support", 2)

	input := basicInput()
	input.Team = strPtr("Support")
	first := f.create(t, input)
	second := f.create(t, input)

	require.NotNil(t, first.Agent)
	require.NotNil(t, second.Agent)
	assert.Equal(t, ids[0], *first.Agent)
	assert.Equal(t, ids[1], *second.Agent)
}

func TestCreateDerivesSLADeadlines(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("High")
	ticket := f.create(t, input)

	require.NotNil(t, ticket.ResponseBy)
	require.NotNil(t, ticket.ResolutionBy)
	assert.WithinDuration(t, ticket.CreatedAt.Add(4*time.Hour), *ticket.ResponseBy, time.Second)
	assert.WithinDuration(t, ticket.CreatedAt.Add(48*time.Hour), *ticket.ResolutionBy, time.Second)
	require.NotNil(t, ticket.AgreementStatus)
	assert.Equal(t, domain.AgreementFirstResponseDue, *ticket.AgreementStatus)
}

func TestCreateRecordsOpeningCommunication(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	msgID := "<first@mail.example>"
	input.MessageID = &msgID
	ticket := f.create(t, input)

	conversation, err := f.comms.ListByTicket(context.Background(), ticket.Code)
	require.NoError(t, err)
	require.Len(t, conversation, 1)
	assert.Equal(t, domain.DirectionInbound, conversation[0].Direction)
	assert.Equal(t, input.Description, conversation[0].Body)
	require.NotNil(t, conversation[0].MessageID)
	assert.Equal(t, msgID, *conversation[0].MessageID)
}

func TestCreateRejectsEmptySubject(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Subject = "   "
	_, err := f.svc.Create(context.Background(), input)
	assert.Error(t, err)
}

func TestUpdateHoldPausesAndShiftsDeadlines(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("High")
	ticket := f.create(t, input)
	originalResolutionBy := *ticket.ResolutionBy

	onHold := domain.TicketStatusOnHold
	held, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Status: &onHold}, Actor{Name: "Lee"})
	require.NoError(t, err)
	require.NotNil(t, held.AgreementStatus)
	assert.Equal(t, domain.AgreementPaused, *held.AgreementStatus)

	// simulate time passing while on hold
	open, err := f.holds.FindOpen(context.Background(), ticket.Code)
	require.NoError(t, err)
	f.holds.mu.Lock()
	for i := range f.holds.holds {
		if f.holds.holds[i].ID == open.ID {
			f.holds.holds[i].HoldStart = f.holds.holds[i].HoldStart.Add(-3 * time.Hour)
		}
	}
	f.holds.mu.Unlock()

	reopened := domain.TicketStatusOpen
	resumed, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Status: &reopened}, Actor{Name: "Lee"})
	require.NoError(t, err)

	assert.InDelta(t, float64(3*time.Hour), float64(resumed.TotalHoldTime), float64(time.Second))
	require.NotNil(t, resumed.ResolutionBy)
	shift := resumed.ResolutionBy.Sub(originalResolutionBy)
	assert.InDelta(t, float64(3*time.Hour), float64(shift), float64(time.Second))
	require.NotNil(t, resumed.AgreementStatus)
	assert.Equal(t, domain.AgreementFirstResponseDue, *resumed.AgreementStatus)
}

func TestUpdateResolveOnTimeFulfillsAgreement(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("High")
	ticket := f.create(t, input)

	agent := uuid.New()
	_, err := f.svc.Reply(context.Background(), ticket.Code, ReplyInput{
		Body:      "We are on it.",
		Direction: domain.DirectionOutbound,
		RaisedBy:  "Lee",
		Sender:    &agent,
	})
	require.NoError(t, err)

	resolved := domain.TicketStatusResolved
	done, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Status: &resolved}, Actor{ID: &agent, Name: "Lee"})
	require.NoError(t, err)

	require.NotNil(t, done.AgreementStatus)
	assert.Equal(t, domain.AgreementFulfilled, *done.AgreementStatus)
	require.NotNil(t, done.ResolutionDate)
	require.NotNil(t, done.ResolvedBy)
	assert.Equal(t, agent, *done.ResolvedBy)
	assert.False(t, done.ResolvedByBot)
}

func TestUpdateResolvePastDeadlineFailsAgreement(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("High")
	ticket := f.create(t, input)

	// push the resolution deadline into the past
	stored, err := f.tickets.GetByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Hour)
	stored.ResolutionBy = &past
	stored.FirstRespondedOn = &past
	require.NoError(t, f.tickets.Update(context.Background(), stored))

	resolved := domain.TicketStatusResolved
	done, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Status: &resolved}, Actor{Name: "Lee"})
	require.NoError(t, err)
	require.NotNil(t, done.AgreementStatus)
	assert.Equal(t, domain.AgreementFailed, *done.AgreementStatus)
}

func TestUpdateResolveKeepsFailedAgreementAfterLateResponse(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("High")
	ticket := f.create(t, input)

	// response deadline already missed, resolution deadline still open
	stored, err := f.tickets.GetByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Hour)
	stored.ResponseBy = &past
	require.NoError(t, f.tickets.Update(context.Background(), stored))

	agent := uuid.New()
	_, err = f.svc.Reply(context.Background(), ticket.Code, ReplyInput{
		Body:      "Sorry for the delay.",
		Direction: domain.DirectionOutbound,
		RaisedBy:  "Lee",
		Sender:    &agent,
	})
	require.NoError(t, err)

	replied, err := f.tickets.GetByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	require.NotNil(t, replied.AgreementStatus)
	require.Equal(t, domain.AgreementFailed, *replied.AgreementStatus)

	// resolving before the resolution deadline does not undo the failure
	resolved := domain.TicketStatusResolved
	done, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Status: &resolved}, Actor{ID: &agent, Name: "Lee"})
	require.NoError(t, err)
	require.NotNil(t, done.AgreementStatus)
	assert.Equal(t, domain.AgreementFailed, *done.AgreementStatus)
}

func TestUpdatePriorityChangeRecomputesDeadlines(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("Low")
	ticket := f.create(t, input)
	assert.Nil(t, ticket.ResponseBy)

	updated, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Priority: strPtr("High")}, Actor{Name: "Lee"})
	require.NoError(t, err)
	require.NotNil(t, updated.ResponseBy)
	assert.WithinDuration(t, ticket.CreatedAt.Add(4*time.Hour), *updated.ResponseBy, time.Second)
	assert.WithinDuration(t, ticket.CreatedAt.Add(48*time.Hour), *updated.ResolutionBy, time.Second)
}

func TestUpdateTeamChangeWithExplicitAgentSkipsRotation(t *testing.T) {
	f := newTicketFixture(t)
	ids := rosterOf(t, f.memberships, "Billing", 2)

	ticket := f.create(t, basicInput())
	explicit := ids[1]

	casBefore := f.teams.compareAndSetCount()
	billing := "Billing"
	updated, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Team: &billing, Agent: &explicit}, Actor{Name: "Lee"})
	require.NoError(t, err)

	require.NotNil(t, updated.Agent)
	assert.Equal(t, explicit, *updated.Agent)

	// only the pointer sync touches the rotation state, not a draw
	assert.Equal(t, casBefore+1, f.teams.compareAndSetCount())

	team, err := f.teams.GetByName(context.Background(), "Billing")
	require.NoError(t, err)
	require.NotNil(t, team.LastAgent)
	assert.Equal(t, explicit, *team.LastAgent)
}

func TestUpdateEscalationIncrementsAndAudits(t *testing.T) {
	f := newTicketFixture(t)
	tier2 := "Tier 2"
	require.NoError(t, f.teams.Create(context.Background(), &domain.Team{Name: tier2}))
	require.NoError(t, f.teams.Create(context.Background(), &domain.Team{Name: "Frontline", EscalationTeam: &tier2}))

	input := basicInput()
	input.Team = strPtr("Frontline")
	ticket := f.create(t, input)

	updated, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Team: &tier2}, Actor{Name: "Lee"})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.EscalationCount)
	require.NotNil(t, updated.OriginalTeam)
	assert.Equal(t, "Frontline", *updated.OriginalTeam)

	escalations := f.comms.byDirection(domain.DirectionEscalation)
	require.Len(t, escalations, 1)
	assert.Contains(t, escalations[0].Body, "escalated ticket from Frontline to Tier 2")
}

func TestUpdateAuditsFieldChanges(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("Low")
	ticket := f.create(t, input)

	_, err := f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Priority: strPtr("High")}, Actor{Name: "Lee"})
	require.NoError(t, err)

	// Deadlines and agreement status move with the priority, but only
	// the priority itself is written to the trail.
	entries := f.comms.byDirection(domain.DirectionSystem)
	require.Len(t, entries, 1)
	assert.Equal(t, "Lee changed priority from Low to High", entries[0].Body)
}

func TestUpdateRejectsMergedTicket(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, basicInput())

	stored, err := f.tickets.GetByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	stored.IsMerged = true
	require.NoError(t, f.tickets.Update(context.Background(), stored))

	resolved := domain.TicketStatusResolved
	_, err = f.svc.Update(context.Background(), ticket.Code, TicketUpdateInput{Status: &resolved}, Actor{Name: "Lee"})
	assert.Error(t, err)
}

func TestReplyOutboundStampsFirstResponse(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("High")
	ticket := f.create(t, input)

	agent := uuid.New()
	_, err := f.svc.Reply(context.Background(), ticket.Code, ReplyInput{
		Body:      "Working on it.",
		Direction: domain.DirectionOutbound,
		RaisedBy:  "Lee",
		Sender:    &agent,
	})
	require.NoError(t, err)

	updated, err := f.tickets.GetByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	require.NotNil(t, updated.FirstRespondedOn)
	require.NotNil(t, updated.FirstResponseTime)
	assert.Equal(t, domain.TicketStatusReplied, updated.Status)
	require.NotNil(t, updated.AgreementStatus)
	assert.Equal(t, domain.AgreementResolutionDue, *updated.AgreementStatus)

	// second outbound reply leaves the stamp alone
	firstStamp := *updated.FirstRespondedOn
	_, err = f.svc.Reply(context.Background(), ticket.Code, ReplyInput{
		Body:      "Still on it.",
		Direction: domain.DirectionOutbound,
		RaisedBy:  "Lee",
		Sender:    &agent,
	})
	require.NoError(t, err)
	again, err := f.tickets.GetByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	assert.Equal(t, firstStamp, *again.FirstRespondedOn)
}

func TestReplyBotStampsBotFirstResponse(t *testing.T) {
	f := newTicketFixture(t)
	input := basicInput()
	input.Priority = strPtr("High")
	ticket := f.create(t, input)

	_, err := f.svc.Reply(context.Background(), ticket.Code, ReplyInput{
		Body:      "Automated answer.",
		Direction: domain.DirectionOutbound,
		RaisedBy:  "AI Orchestrator",
		IsBot:     true,
	})
	require.NoError(t, err)

	updated, err := f.tickets.GetByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	require.NotNil(t, updated.BotFirstRespondedOn)
	assert.Nil(t, updated.FirstRespondedOn)
	require.NotNil(t, updated.AgreementStatus)
	assert.Equal(t, domain.AgreementResolutionDue, *updated.AgreementStatus)
}

func TestReplyInboundReopensRepliedTicket(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, basicInput())

	_, err := f.svc.Reply(context.Background(), ticket.Code, ReplyInput{
		Body:      "Answer.",
		Direction: domain.DirectionOutbound,
		RaisedBy:  "Lee",
	})
	require.NoError(t, err)

	_, err = f.svc.Reply(context.Background(), ticket.Code, ReplyInput{
		Body:      "It is still broken.",
		Direction: domain.DirectionInbound,
		RaisedBy:  "Sam Doe",
	})
	require.NoError(t, err)

	updated, err := f.tickets.GetByCode(context.Background(), ticket.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
}

func TestReplyPublishesEvent(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, basicInput())

	var got []events.Event
	f.dispatcher.Subscribe(events.EventTicketReplied, func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})

	comm, err := f.svc.Reply(context.Background(), ticket.Code, ReplyInput{
		Body:      "Reply.",
		Direction: domain.DirectionOutbound,
		RaisedBy:  "Lee",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	payload, ok := got[0].Payload.(events.TicketRepliedPayload)
	require.True(t, ok)
	assert.Equal(t, comm.ID, payload.CommunicationID)
	assert.Equal(t, domain.DirectionOutbound, payload.Direction)
}
