package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/infrastructure/storage/postgres"
)

type fakeStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	return redis.NewStringResult("1-0", f.err)
}

func TestStreamPublisher_Handle(t *testing.T) {
	fake := &fakeStream{}
	pub := NewStreamPublisher(fake, "stockflow.events", 1000)

	msg := &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: "pending_article",
		AggregateID:   id.New(),
		EventType:     "pending_article.received",
		Payload:       []byte(`{"quantity":4}`),
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.Handle(context.Background(), msg))

	require.Len(t, fake.calls, 1)
	call := fake.calls[0]
	assert.Equal(t, "stockflow.events", call.Stream)
	assert.Equal(t, int64(1000), call.MaxLen)
	assert.True(t, call.Approx)

	values, ok := call.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pending_article.received", values["event_type"])
	assert.Equal(t, `{"quantity":4}`, values["payload"])
	assert.Equal(t, msg.AggregateID.String(), values["aggregate_id"])
	assert.Equal(t, "2026-03-01T10:00:00Z", values["created_at"])
}

func TestStreamPublisher_NoTrimWhenUnbounded(t *testing.T) {
	fake := &fakeStream{}
	pub := NewStreamPublisher(fake, "s", 0)

	require.NoError(t, pub.Handle(context.Background(), &postgres.OutboxMessage{ID: id.New()}))
	assert.Zero(t, fake.calls[0].MaxLen)
	assert.False(t, fake.calls[0].Approx)
}

func TestStreamPublisher_PropagatesError(t *testing.T) {
	fake := &fakeStream{err: errors.New("connection refused")}
	pub := NewStreamPublisher(fake, "s", 0)

	err := pub.Handle(context.Background(), &postgres.OutboxMessage{ID: id.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
