package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"instrument":"lidar","input":"rws.csv"}`),
		Topic:     "profiler-conversion-jobs",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "submitted_by", Value: []byte("ops")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"instrument":"lidar","input":"rws.csv"}`, string(raw.Value))
	assert.Equal(t, "profiler-conversion-jobs", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "ops", raw.Headers["submitted_by"])
	assert.Nil(t, raw.Commit)
}

func TestMapMessageToRawEvent_NoHeaders(t *testing.T) {
	raw := mapMessageToRawEvent(kafkago.Message{Value: []byte("{}")})
	assert.NotNil(t, raw.Headers)
	assert.Empty(t, raw.Headers)
}

func TestSerializeToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Key:   []byte("9f2c"),
		Value: []byte(`{"dims":[]}`),
		Headers: map[string]string{
			"processed_at": "2024-04-26T12:00:00Z",
			"instrument":   "radiometer",
			"job_id":       "9f2c",
		},
		Result: &domain.ConversionResult{Digest: "9f2c"},
	}

	msg := serializeToMessage(event)

	assert.Equal(t, []byte("9f2c"), msg.Key)
	assert.Equal(t, []byte(`{"dims":[]}`), msg.Value)
	assert.Equal(t, []kafkago.Header{
		{Key: "instrument", Value: []byte("radiometer")},
		{Key: "job_id", Value: []byte("9f2c")},
		{Key: "processed_at", Value: []byte("2024-04-26T12:00:00Z")},
	}, msg.Headers)
}
