package db

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowPinger struct {
	delay time.Duration
}

func (p slowPinger) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.delay):
		return nil
	}
}

func TestPoolAdapterBoundsPing(t *testing.T) {
	adapter := NewPoolAdapter(slowPinger{delay: time.Second})
	adapter.timeout = 10 * time.Millisecond

	err := adapter.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMigrationsEnforcePhoneUniqueness(t *testing.T) {
	migrations, err := MigrationsFS()
	require.NoError(t, err)

	raw, err := fs.ReadFile(migrations, "00001_raw_leads.sql")
	require.NoError(t, err)
	body := strings.ToLower(string(raw))

	assert.Contains(t, body, "-- +goose up")
	assert.Contains(t, body, "constraint raw_leads_phone_key unique (phone)")
	assert.Contains(t, body, "converted_lead_id uuid references leads(id)")
}

func TestMigrationsNeverClearConvertedLead(t *testing.T) {
	migrations, err := MigrationsFS()
	require.NoError(t, err)

	raw, err := fs.ReadFile(migrations, "00001_raw_leads.sql")
	require.NoError(t, err)

	var column string
	for _, line := range strings.Split(strings.ToLower(string(raw)), "\n") {
		if strings.Contains(line, "converted_lead_id uuid") {
			column = line
			break
		}
	}
	require.NotEmpty(t, column)
	assert.Contains(t, column, "on delete restrict")
	assert.NotContains(t, column, "set null")
	assert.NotContains(t, column, "cascade")
}
