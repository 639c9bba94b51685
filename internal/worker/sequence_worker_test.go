package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMidnightAfter(t *testing.T) {
	at := time.Date(2026, 3, 14, 17, 45, 12, 0, time.UTC)
	next := midnightAfter(at)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), next)

	// One second before midnight still rolls to the next day.
	at = time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), midnightAfter(at))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 14, 0, 0, 1, 0, time.UTC)
	b := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	assert.True(t, sameDay(a, b))
	assert.False(t, sameDay(a, b.Add(time.Minute)))
}
