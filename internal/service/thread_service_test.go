package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldesk/helpdesk/internal/domain"
)

func TestThreadResolveByMessageID(t *testing.T) {
	tickets := newFakeTicketRepo()
	comms := newFakeCommRepo()
	msgID := "<abc@mail.example>"
	require.NoError(t, comms.Create(context.Background(), &domain.Communication{
		TicketCode: "HD-260310-00007",
		Direction:  domain.DirectionInbound,
		MessageID:  &msgID,
	}))

	svc := NewThreadService(ThreadDependencies{TicketRepo: tickets, CommunicationRepo: comms})
	code, found, err := svc.Resolve(context.Background(), msgID, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "HD-260310-00007", code)
}

func TestThreadResolveFallsBackToExternalThreadID(t *testing.T) {
	tickets := newFakeTicketRepo()
	opener := "<opener@mail.example>"
	require.NoError(t, tickets.Create(context.Background(), &domain.Ticket{
		Code:             "HD-260310-00008",
		ExternalThreadID: &opener,
	}))

	svc := NewThreadService(ThreadDependencies{TicketRepo: tickets, CommunicationRepo: newFakeCommRepo()})
	code, found, err := svc.Resolve(context.Background(), "<unknown@mail.example>", []string{opener})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "HD-260310-00008", code)
}

func TestThreadResolveCommunicationWinsOverTicket(t *testing.T) {
	tickets := newFakeTicketRepo()
	comms := newFakeCommRepo()
	shared := "<shared@mail.example>"
	require.NoError(t, tickets.Create(context.Background(), &domain.Ticket{
		Code:             "HD-260310-00001",
		ExternalThreadID: &shared,
	}))
	require.NoError(t, comms.Create(context.Background(), &domain.Communication{
		TicketCode: "HD-260310-00002",
		Direction:  domain.DirectionInbound,
		MessageID:  &shared,
	}))

	svc := NewThreadService(ThreadDependencies{TicketRepo: tickets, CommunicationRepo: comms})
	code, found, err := svc.Resolve(context.Background(), shared, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "HD-260310-00002", code)
}

func TestThreadResolveNewThread(t *testing.T) {
	svc := NewThreadService(ThreadDependencies{
		TicketRepo:        newFakeTicketRepo(),
		CommunicationRepo: newFakeCommRepo(),
	})
	_, found, err := svc.Resolve(context.Background(), "<fresh@mail.example>", []string{"<other@mail.example>"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestThreadResolveNoCandidates(t *testing.T) {
	svc := NewThreadService(ThreadDependencies{
		TicketRepo:        newFakeTicketRepo(),
		CommunicationRepo: newFakeCommRepo(),
	})
	_, found, err := svc.Resolve(context.Background(), "", []string{"  ", ""})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCollectCandidatesDeduplicates(t *testing.T) {
	out := collectCandidates("<a>", []string{"<a>", "<b>", " <b> ", "<c>"})
	assert.Equal(t, []string{"<a>", "<b>", "<c>"}, out)
}
