package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/models/events"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishKeysByTransfer(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{writer: w, topic: DefaultTopic}

	req := models.TransferRequest{IdempotencyKey: "k1", FromAccount: "A", ToAccount: "B", AmountMinorUnits: 1250, Currency: "BRL"}
	out := models.TransferOutcome{TransferID: "k1", Status: models.StatusCompleted, AmountMinorUnits: 1250}
	event := events.NewTransferProcessed(req, out, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	require.NoError(t, p.Publish(context.Background(), "k1", event))
	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte("k1"), w.messages[0].Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, "k1", decoded["transfer_id"])
	assert.Equal(t, "COMPLETED", decoded["status"])
	assert.Equal(t, "12.5", decoded["amount"])
}

func TestPublishWrapsWriterError(t *testing.T) {
	broken := errors.New("no brokers")
	p := &Publisher{writer: &recordingWriter{err: broken}, topic: "t"}

	err := p.Publish(context.Background(), "k", struct{}{})
	assert.ErrorIs(t, err, broken)
}

func TestPublishRejectsUnencodableEvent(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{writer: w, topic: "t"}

	err := p.Publish(context.Background(), "k", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, w.messages)
}

func TestClose(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{writer: w}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
