package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresPingWithoutPool(t *testing.T) {
	pg := &Postgres{}
	require.Error(t, pg.Ping(context.Background()))

	var nilPG *Postgres
	require.Error(t, nilPG.Ping(context.Background()))
}

func TestRedisPingWithoutClient(t *testing.T) {
	r := &Redis{}
	require.Error(t, r.Ping(context.Background()))
}
