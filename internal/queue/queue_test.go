package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	body, _ := json.Marshal(map[string]string{"record_id": "r1"})
	require.NoError(t, q.Publish(ctx, Message{Type: "confirmation", Body: body}))

	out, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-out:
		assert.Equal(t, "confirmation", msg.Type)
		assert.JSONEq(t, string(body), string(msg.Body))
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}

func TestInMemoryPublishRespectsCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Publish(ctx, Message{Type: "confirmation"}))
	cancel()
	// Queue is full and the context is gone; Publish must not block.
	err := q.Publish(ctx, Message{Type: "confirmation"})
	assert.ErrorIs(t, err, context.Canceled)
}
