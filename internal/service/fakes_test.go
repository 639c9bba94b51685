package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quilldesk/helpdesk/internal/ai"
	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/events"
	"github.com/quilldesk/helpdesk/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *ticket
	f.tickets[ticket.Code] = &clone
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[ticket.Code]; !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	f.tickets[ticket.Code] = &clone
	return nil
}

func (f *fakeTicketRepo) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) FindByExternalThreadIDs(_ context.Context, ids []string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ticket := range f.tickets {
		if ticket.ExternalThreadID == nil {
			continue
		}
		for _, id := range ids {
			if *ticket.ExternalThreadID == id {
				clone := *ticket
				return &clone, nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range f.tickets {
		out = append(out, *ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeTicketRepo) ListRecentResolved(_ context.Context, limit int) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range f.tickets {
		if ticket.Status == domain.TicketStatusResolved && len(out) < limit {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

type fakeCommRepo struct {
	mu     sync.Mutex
	nextID int64
	comms  []domain.Communication
}

func newFakeCommRepo() *fakeCommRepo { return &fakeCommRepo{} }

func (f *fakeCommRepo) Create(_ context.Context, comm *domain.Communication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	comm.ID = f.nextID
	if comm.CreatedAt.IsZero() {
		comm.CreatedAt = time.Now().UTC()
	}
	f.comms = append(f.comms, *comm)
	return nil
}

func (f *fakeCommRepo) ListByTicket(_ context.Context, ticketCode string) ([]domain.Communication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Communication
	for _, c := range f.comms {
		if c.TicketCode == ticketCode {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommRepo) FindTicketByMessageIDs(_ context.Context, ids []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.comms {
		if c.MessageID == nil {
			continue
		}
		for _, id := range ids {
			if *c.MessageID == id {
				return c.TicketCode, nil
			}
		}
	}
	return "", pgx.ErrNoRows
}

func (f *fakeCommRepo) ListInboundMessageIDs(_ context.Context, ticketCode string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for i := len(f.comms) - 1; i >= 0; i-- {
		c := f.comms[i]
		if c.TicketCode == ticketCode && c.Direction == domain.DirectionInbound && c.MessageID != nil {
			out = append(out, *c.MessageID)
		}
	}
	return out, nil
}

func (f *fakeCommRepo) LatestOutbound(_ context.Context, ticketCode string) (*domain.Communication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.comms) - 1; i >= 0; i-- {
		c := f.comms[i]
		if c.TicketCode == ticketCode && c.Direction == domain.DirectionOutbound {
			clone := c
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCommRepo) SetMessageID(_ context.Context, id int64, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.comms {
		if f.comms[i].ID == id {
			f.comms[i].MessageID = &messageID
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeCommRepo) byDirection(direction domain.Direction) []domain.Communication {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Communication
	for _, c := range f.comms {
		if c.Direction == direction {
			out = append(out, c)
		}
	}
	return out
}

type fakeTeamRepo struct {
	mu       sync.Mutex
	teams    map[string]*domain.Team
	casCalls int
}

func newFakeTeamRepo(teams ...domain.Team) *fakeTeamRepo {
	f := &fakeTeamRepo{teams: make(map[string]*domain.Team)}
	for i := range teams {
		clone := teams[i]
		f.teams[clone.Name] = &clone
	}
	return f
}

func (f *fakeTeamRepo) GetByName(_ context.Context, name string) (*domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *team
	return &clone, nil
}

func (f *fakeTeamRepo) List(_ context.Context) ([]domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Team
	for _, team := range f.teams {
		out = append(out, *team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeTeamRepo) Create(_ context.Context, team *domain.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *team
	f.teams[team.Name] = &clone
	return nil
}

func (f *fakeTeamRepo) Update(_ context.Context, team *domain.Team) error {
	return f.Create(context.Background(), team)
}

func (f *fakeTeamRepo) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.teams, name)
	return nil
}

func (f *fakeTeamRepo) CompareAndSetLastAgent(_ context.Context, name string, old, next *uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.casCalls++
	team, ok := f.teams[name]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if !sameUUIDPtr(team.LastAgent, old) {
		return false, nil
	}
	team.LastAgent = next
	return true, nil
}

func (f *fakeTeamRepo) compareAndSetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.casCalls
}

type fakeMembershipRepo struct {
	mu      sync.Mutex
	members map[string][]domain.AgentMembership
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{members: make(map[string][]domain.AgentMembership)}
}

func (f *fakeMembershipRepo) ListByTeam(_ context.Context, team string) ([]domain.AgentMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]domain.AgentMembership{}, f.members[team]...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Agent.String() < out[j].Agent.String()
	})
	return out, nil
}

func (f *fakeMembershipRepo) Add(_ context.Context, team string, agent uuid.UUID) (*domain.AgentMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := domain.AgentMembership{ID: int64(len(f.members[team]) + 1), Team: team, Agent: agent}
	f.members[team] = append(f.members[team], m)
	return &m, nil
}

func (f *fakeMembershipRepo) Remove(_ context.Context, team string, agent uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.members[team][:0]
	for _, m := range f.members[team] {
		if m.Agent != agent {
			kept = append(kept, m)
		}
	}
	f.members[team] = kept
	return nil
}

type fakeSLARepo struct {
	slas map[string]*domain.SLA
}

func newFakeSLARepo(slas ...domain.SLA) *fakeSLARepo {
	f := &fakeSLARepo{slas: make(map[string]*domain.SLA)}
	for i := range slas {
		clone := slas[i]
		f.slas[clone.Priority] = &clone
	}
	return f
}

func (f *fakeSLARepo) GetByPriority(_ context.Context, priority string) (*domain.SLA, error) {
	sla, ok := f.slas[priority]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *sla
	return &clone, nil
}

func (f *fakeSLARepo) List(_ context.Context) ([]domain.SLA, error) {
	var out []domain.SLA
	for _, sla := range f.slas {
		out = append(out, *sla)
	}
	return out, nil
}

func (f *fakeSLARepo) Create(_ context.Context, sla *domain.SLA) error {
	clone := *sla
	f.slas[sla.Priority] = &clone
	return nil
}

func (f *fakeSLARepo) Update(_ context.Context, sla *domain.SLA) error {
	return f.Create(context.Background(), sla)
}

func (f *fakeSLARepo) Delete(_ context.Context, name string) error {
	for key, sla := range f.slas {
		if sla.Name == name {
			delete(f.slas, key)
		}
	}
	return nil
}

type fakeHoldRepo struct {
	mu     sync.Mutex
	nextID int64
	holds  []domain.HoldInterval
}

func newFakeHoldRepo() *fakeHoldRepo { return &fakeHoldRepo{} }

func (f *fakeHoldRepo) Open(_ context.Context, ticketCode string, start time.Time) (*domain.HoldInterval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	h := domain.HoldInterval{ID: f.nextID, TicketCode: ticketCode, HoldStart: start}
	f.holds = append(f.holds, h)
	return &h, nil
}

func (f *fakeHoldRepo) FindOpen(_ context.Context, ticketCode string) (*domain.HoldInterval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.holds {
		if f.holds[i].TicketCode == ticketCode && f.holds[i].HoldEnd == nil {
			clone := f.holds[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeHoldRepo) Close(_ context.Context, id int64, end time.Time, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.holds {
		if f.holds[i].ID == id && f.holds[i].HoldEnd == nil {
			f.holds[i].HoldEnd = &end
			f.holds[i].Duration = &duration
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeHoldRepo) ListByTicket(_ context.Context, ticketCode string) ([]domain.HoldInterval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.HoldInterval
	for _, h := range f.holds {
		if h.TicketCode == ticketCode {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*domain.Customer)}
}

func (f *fakeCustomerRepo) GetByName(_ context.Context, name string) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer, ok := f.customers[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *customer
	return &clone, nil
}

func (f *fakeCustomerRepo) FindByEmail(_ context.Context, email string) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, customer := range f.customers {
		if customer.Email != nil && strings.EqualFold(*customer.Email, email) {
			clone := *customer
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCustomerRepo) FindByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, customer := range f.customers {
		if customer.Phone != nil && *customer.Phone == phone {
			clone := *customer
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCustomerRepo) List(_ context.Context, limit, offset int) ([]domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Customer
	for _, customer := range f.customers {
		out = append(out, *customer)
	}
	return out, nil
}

func (f *fakeCustomerRepo) Create(_ context.Context, customer *domain.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *customer
	f.customers[customer.Name] = &clone
	return nil
}

func (f *fakeCustomerRepo) Update(_ context.Context, customer *domain.Customer) error {
	return f.Create(context.Background(), customer)
}

func (f *fakeCustomerRepo) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.customers, name)
	return nil
}

type fakeHandleRepo struct {
	mu      sync.Mutex
	nextID  int64
	handles []domain.CustomerHandle
}

func newFakeHandleRepo() *fakeHandleRepo { return &fakeHandleRepo{} }

func (f *fakeHandleRepo) FindByChannelHandle(_ context.Context, channel, handle string) (*domain.CustomerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.handles {
		if h.Channel == channel && strings.EqualFold(h.Handle, handle) {
			clone := h
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeHandleRepo) ListByCustomer(_ context.Context, customer string) ([]domain.CustomerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CustomerHandle
	for _, h := range f.handles {
		if h.Customer == customer {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHandleRepo) Add(_ context.Context, customer, channel, handle string) (*domain.CustomerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	h := domain.CustomerHandle{ID: f.nextID, Customer: customer, Channel: channel, Handle: handle}
	f.handles = append(f.handles, h)
	return &h, nil
}

func (f *fakeHandleRepo) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.handles[:0]
	for _, h := range f.handles {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	f.handles = kept
	return nil
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings domain.SystemSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: domain.SystemSettings{
		Name:                 "GLOBAL",
		TicketPrefix:         "hd",
		CurrentCount:         1,
		CustomerPrefix:       "CUST",
		CurrentCustomerCount: 1,
	}}
}

func (f *fakeSettingsRepo) Get(_ context.Context) (*domain.SystemSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := f.settings
	return &clone, nil
}

func (f *fakeSettingsRepo) Update(_ context.Context, settings *domain.SystemSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = *settings
	return nil
}

func (f *fakeSettingsRepo) NextTicketSequence(_ context.Context) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.settings.CurrentCount
	f.settings.CurrentCount++
	return f.settings.TicketPrefix, seq, nil
}

func (f *fakeSettingsRepo) NextCustomerSequence(_ context.Context) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.settings.CurrentCustomerCount
	f.settings.CurrentCustomerCount++
	return f.settings.CustomerPrefix, seq, nil
}

func (f *fakeSettingsRepo) ResetTicketSequence(_ context.Context, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.CurrentCount = 1
	f.settings.LastResetDate = &at
	return nil
}

type fakePriorityRepo struct {
	priorities map[string]*domain.Priority
}

func newFakePriorityRepo(names ...string) *fakePriorityRepo {
	f := &fakePriorityRepo{priorities: make(map[string]*domain.Priority)}
	for _, name := range names {
		f.priorities[name] = &domain.Priority{Name: name}
	}
	return f
}

func (f *fakePriorityRepo) GetByName(_ context.Context, name string) (*domain.Priority, error) {
	p, ok := f.priorities[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

func (f *fakePriorityRepo) List(_ context.Context) ([]domain.Priority, error) {
	var out []domain.Priority
	for _, p := range f.priorities {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePriorityRepo) Create(_ context.Context, priority *domain.Priority) error {
	clone := *priority
	f.priorities[priority.Name] = &clone
	return nil
}

func (f *fakePriorityRepo) Update(_ context.Context, priority *domain.Priority) error {
	return f.Create(context.Background(), priority)
}

func (f *fakePriorityRepo) Delete(_ context.Context, name string) error {
	delete(f.priorities, name)
	return nil
}

type fakeAgentRepo struct {
	agents map[uuid.UUID]*domain.Agent
	roles  map[uuid.UUID][]string
}

func newFakeAgentRepo(agents ...domain.Agent) *fakeAgentRepo {
	f := &fakeAgentRepo{
		agents: make(map[uuid.UUID]*domain.Agent),
		roles:  make(map[uuid.UUID][]string),
	}
	for i := range agents {
		clone := agents[i]
		f.agents[clone.ID] = &clone
	}
	return f
}

func (f *fakeAgentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Agent, error) {
	agent, ok := f.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *agent
	return &clone, nil
}

func (f *fakeAgentRepo) List(_ context.Context) ([]domain.Agent, error) {
	var out []domain.Agent
	for _, agent := range f.agents {
		out = append(out, *agent)
	}
	return out, nil
}

func (f *fakeAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	for _, agent := range f.agents {
		if strings.EqualFold(agent.Email, email) {
			clone := *agent
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAgentRepo) Create(_ context.Context, agent *domain.Agent) error {
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	clone := *agent
	f.agents[clone.ID] = &clone
	return nil
}

func (f *fakeAgentRepo) ListRoles(_ context.Context, id uuid.UUID) ([]string, error) {
	return f.roles[id], nil
}

func (f *fakeAgentRepo) GrantRole(_ context.Context, id uuid.UUID, role string) error {
	f.roles[id] = append(f.roles[id], role)
	return nil
}

func (f *fakeAgentRepo) RevokeRole(_ context.Context, id uuid.UUID, role string) error {
	kept := f.roles[id][:0]
	for _, r := range f.roles[id] {
		if r != role {
			kept = append(kept, r)
		}
	}
	f.roles[id] = kept
	return nil
}

type fakeKBRepo struct {
	articles []domain.KBArticle
}

func (f *fakeKBRepo) GetByID(_ context.Context, id int64) (*domain.KBArticle, error) {
	for _, a := range f.articles {
		if a.ID == id {
			clone := a
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeKBRepo) List(_ context.Context) ([]domain.KBArticle, error) {
	return append([]domain.KBArticle{}, f.articles...), nil
}

func (f *fakeKBRepo) Create(_ context.Context, article *domain.KBArticle) error {
	article.ID = int64(len(f.articles) + 1)
	f.articles = append(f.articles, *article)
	return nil
}

func (f *fakeKBRepo) Update(_ context.Context, article *domain.KBArticle) error {
	for i := range f.articles {
		if f.articles[i].ID == article.ID {
			f.articles[i] = *article
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeKBRepo) Delete(_ context.Context, id int64) error {
	kept := f.articles[:0]
	for _, a := range f.articles {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.articles = kept
	return nil
}

type fakeClassifier struct {
	analysis *domain.TicketAnalysis
	err      error
	lastReq  *ai.AnalyzeRequest
}

func (f *fakeClassifier) Analyze(_ context.Context, req ai.AnalyzeRequest) (*domain.TicketAnalysis, error) {
	f.lastReq = &req
	if f.err != nil {
		return nil, f.err
	}
	clone := *f.analysis
	return &clone, nil
}

type progressRecorder struct {
	mu     sync.Mutex
	stages []events.ProgressStage
}

func (r *progressRecorder) Emit(_ context.Context, _ string, stage events.ProgressStage, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}
