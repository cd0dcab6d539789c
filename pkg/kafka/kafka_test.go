package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
	// first attempt is within [min/2, min]
	d := backoffWithJitter(min, max, 1)
	assert.GreaterOrEqual(t, d, min/2)
	assert.LessOrEqual(t, d, min)
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
	_, err = NewProducer()
	assert.Error(t, err)
}

type recordingHandler struct{ topic string }

func (h recordingHandler) Topic() string                        { return h.topic }
func (h recordingHandler) Handle(context.Context, []byte) error { return nil }

func TestRegisterHandlerKeepsFirst(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	first := recordingHandler{topic: "events"}
	c.RegisterHandler(first)
	c.RegisterHandler(recordingHandler{topic: "events"})
	assert.Len(t, c.handlers, 1)
	assert.Equal(t, first, c.handlers["events"])
	assert.Same(t, c.getPartitionLock("events", 0), c.getPartitionLock("events", 0))
	assert.NotSame(t, c.getPartitionLock("events", 0), c.getPartitionLock("events", 1))
}

func TestHookFuncsDefaults(t *testing.T) {
	var h ConsumerHook = HookFuncs{}
	ctx := context.Background()
	msg := kafka.Message{Value: []byte("x")}
	gotCtx, gotMsg, data, err := h.BeforeHandle(ctx, "t", msg, msg.Value)
	require.NoError(t, err)
	assert.Equal(t, ctx, gotCtx)
	assert.Equal(t, msg, gotMsg)
	assert.Equal(t, []byte("x"), data)

	var seen error
	h = HookFuncs{Err: func(_ context.Context, _ string, _ kafka.Message, _ []byte, err error) { seen = err }}
	h.OnError(ctx, "t", msg, nil, errors.New("boom"))
	assert.EqualError(t, seen, "boom")
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))
	b, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}
