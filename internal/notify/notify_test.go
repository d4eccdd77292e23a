package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutURLsIsNoop(t *testing.T) {
	n, err := New([]string{"", "  "}, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)
	assert.NoError(t, n.Notify(context.Background(), "title", "body"))
}

func TestNewRejectsUnknownService(t *testing.T) {
	_, err := New([]string{"nosuchservice://token@host"}, time.Second, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "token@host")
	assert.Contains(t, err.Error(), "nosuchservice")
}

func TestShoutrrrLoggerService(t *testing.T) {
	n, err := New([]string{"logger://"}, time.Second, nil)
	require.NoError(t, err)
	require.IsType(t, &Shoutrrr{}, n)

	assert.NoError(t, n.Notify(context.Background(), "Holiday declared", "2025-03-10: Founder's Day"))
}

func TestShoutrrrHonorsCanceledContext(t *testing.T) {
	n, err := New([]string{"logger://"}, time.Second, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, "t", "m"), context.Canceled)
}

func TestSchemesOf(t *testing.T) {
	assert.Equal(t, []string{"telegram", "discord", "?"},
		schemesOf([]string{"telegram://tok@telegram?chats=1", "discord://tok@chan", "::bad"}))
}
