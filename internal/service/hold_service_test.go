package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldRoundTrip(t *testing.T) {
	holds := newFakeHoldRepo()
	svc := NewHoldService(HoldDependencies{HoldRepo: holds})

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, svc.EnterHold(context.Background(), "HD-260310-00001", start))

	paused, err := svc.ExitHold(context.Background(), "HD-260310-00001", start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, paused)

	history, err := svc.History(context.Background(), "HD-260310-00001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].HoldEnd)
	require.NotNil(t, history[0].Duration)
	assert.Equal(t, 2*time.Hour, *history[0].Duration)
}

func TestHoldDoubleEnterIsNoop(t *testing.T) {
	holds := newFakeHoldRepo()
	svc := NewHoldService(HoldDependencies{HoldRepo: holds})

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, svc.EnterHold(context.Background(), "HD-260310-00001", start))
	require.NoError(t, svc.EnterHold(context.Background(), "HD-260310-00001", start.Add(time.Hour)))

	history, err := svc.History(context.Background(), "HD-260310-00001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, start, history[0].HoldStart)
}

func TestHoldExitWithoutOpenInterval(t *testing.T) {
	svc := NewHoldService(HoldDependencies{HoldRepo: newFakeHoldRepo()})
	paused, err := svc.ExitHold(context.Background(), "HD-260310-00001", time.Now())
	require.NoError(t, err)
	assert.Zero(t, paused)
}

func TestHoldSequentialIntervalsAccumulate(t *testing.T) {
	holds := newFakeHoldRepo()
	svc := NewHoldService(HoldDependencies{HoldRepo: holds})

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, svc.EnterHold(context.Background(), "HD-260310-00002", start))
	first, err := svc.ExitHold(context.Background(), "HD-260310-00002", start.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, svc.EnterHold(context.Background(), "HD-260310-00002", start.Add(5*time.Hour)))
	second, err := svc.ExitHold(context.Background(), "HD-260310-00002", start.Add(8*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, first)
	assert.Equal(t, 3*time.Hour, second)

	history, err := svc.History(context.Background(), "HD-260310-00002")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
