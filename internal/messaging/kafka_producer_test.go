package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishTransactionEvent(t *testing.T) {
	writer := &fakeWriter{}
	producer := &KafkaProducer{writer: writer, timeout: time.Second}
	ts := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	err := producer.PublishTransactionEvent(context.Background(), models.TransactionEvent{
		Type:        models.EventTransactionRecorded,
		Product:     "rice",
		StockOnHand: 4,
		Timestamp:   ts,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	require.Equal(t, "rice", string(msg.Key))
	require.Equal(t, ts, msg.Time)
	require.Equal(t, []kafka.Header{{Key: "event-type", Value: []byte(models.EventTransactionRecorded)}}, msg.Headers)

	var decoded models.TransactionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, 4, decoded.StockOnHand)

	require.NoError(t, producer.Close())
	require.True(t, writer.closed)
}

func TestPublishWithoutProductUsesEventType(t *testing.T) {
	writer := &fakeWriter{}
	producer := &KafkaProducer{writer: writer, timeout: time.Second}

	err := producer.PublishTransactionEvent(context.Background(), models.TransactionEvent{
		Type: models.EventTransactionsDeleted,
		IDs:  []string{"a", "b"},
	})
	require.NoError(t, err)
	require.Equal(t, models.EventTransactionsDeleted, string(writer.messages[0].Key))
}

func TestPublishFailure(t *testing.T) {
	producer := &KafkaProducer{writer: &fakeWriter{err: errors.New("broker down")}, timeout: time.Second}

	err := producer.PublishTransactionEvent(context.Background(), models.TransactionEvent{Type: models.EventTransactionRecorded})
	require.ErrorContains(t, err, "broker down")
	require.NoError(t, NopPublisher{}.PublishTransactionEvent(context.Background(), models.TransactionEvent{}))
}
