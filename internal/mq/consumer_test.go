package mq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap/zaptest"
)

type recordingAcknowledger struct {
	acks    int
	nacks   int
	requeue bool
}

func (r *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	r.acks++
	return nil
}

func (r *recordingAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	r.nacks++
	r.requeue = requeue
	return nil
}

func (r *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return errors.New("unexpected reject")
}

func newTestConsumer(t *testing.T, handler SyncHandler) *Consumer {
	return &Consumer{
		cfg:    ConsumerConfig{Handler: handler},
		logger: zaptest.NewLogger(t),
		done:   make(chan struct{}),
	}
}

func delivery(ack amqp.Acknowledger, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, RoutingKey: "attendance.sync", Body: []byte(body)}
}

func TestHandle_InvalidBodyDeadLettered(t *testing.T) {
	called := false
	consumer := newTestConsumer(t, func(ctx context.Context, req SyncRequest) error {
		called = true
		return nil
	})

	ack := &recordingAcknowledger{}
	consumer.handle(context.Background(), delivery(ack, `{"days": "thirty"`))

	if called {
		t.Error("Handler should not run for an undecodable message")
	}
	if ack.nacks != 1 || ack.acks != 0 {
		t.Fatalf("Expected one NACK and no ACK, got nacks=%d acks=%d", ack.nacks, ack.acks)
	}
	if ack.requeue {
		t.Error("Expected NACK without requeue so the message reaches the DLQ")
	}
}

func TestHandle_NegativeDaysDeadLettered(t *testing.T) {
	consumer := newTestConsumer(t, func(ctx context.Context, req SyncRequest) error { return nil })

	ack := &recordingAcknowledger{}
	consumer.handle(context.Background(), delivery(ack, `{"days": -1}`))

	if ack.nacks != 1 || ack.requeue {
		t.Fatalf("Expected one NACK without requeue, got nacks=%d requeue=%v", ack.nacks, ack.requeue)
	}
}

func TestHandle_HandlerErrorDeadLettered(t *testing.T) {
	consumer := newTestConsumer(t, func(ctx context.Context, req SyncRequest) error {
		return errors.New("login failed: bad credentials")
	})

	ack := &recordingAcknowledger{}
	consumer.handle(context.Background(), delivery(ack, `{"request_id": "r-1", "days": 5}`))

	if ack.nacks != 1 || ack.acks != 0 {
		t.Fatalf("Expected one NACK and no ACK, got nacks=%d acks=%d", ack.nacks, ack.acks)
	}
	if ack.requeue {
		t.Error("Expected NACK without requeue so the message reaches the DLQ")
	}
}

func TestHandle_SuccessAcknowledged(t *testing.T) {
	var got SyncRequest
	consumer := newTestConsumer(t, func(ctx context.Context, req SyncRequest) error {
		got = req
		return nil
	})

	ack := &recordingAcknowledger{}
	consumer.handle(context.Background(), delivery(ack, `{"request_id": "r-2", "days": 30, "unread_only": true}`))

	if ack.acks != 1 || ack.nacks != 0 {
		t.Fatalf("Expected one ACK and no NACK, got acks=%d nacks=%d", ack.acks, ack.nacks)
	}
	if got.RequestID != "r-2" || got.Days != 30 {
		t.Errorf("Unexpected request passed to handler: %+v", got)
	}
	if got.UnreadOnly == nil || !*got.UnreadOnly {
		t.Errorf("Expected unread_only true, got %v", got.UnreadOnly)
	}
}
