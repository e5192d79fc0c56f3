package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/opscore/entitlement-service/internal/core/domain"
	"github.com/opscore/entitlement-service/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer sarama.AsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "entitlements",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "entitlement-service",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishGrantChanged(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	changedAt := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)
	event := domain.GrantChangedEvent{
		EventID:       "event-123",
		CompanyID:     "co-1",
		CompanyUserID: "user-456",
		Granted:       []string{"payroll", "attendance"},
		ChangedBy:     "admin-789",
		ChangedAt:     changedAt,
		Metadata:      map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishGrantChanged(context.Background(), event); err != nil {
		t.Fatalf("PublishGrantChanged returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "entitlements.grant.changed" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "entitlements.grant.changed" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["company_id"]; got != event.CompanyID {
			t.Fatalf("unexpected company_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != changedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["company_user_id"]; got != event.CompanyUserID {
			t.Fatalf("unexpected company_user_id: %v", got)
		}

		if got := payload["changed_by"]; got != event.ChangedBy {
			t.Fatalf("unexpected changed_by: %v", got)
		}

		granted, ok := payload["granted"].([]any)
		if !ok {
			t.Fatalf("granted not a list: %T", payload["granted"])
		}
		if len(granted) != 2 || granted[0] != "payroll" || granted[1] != "attendance" {
			t.Fatalf("granted did not round-trip: %v", granted)
		}

		envelopeMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}
		if envelopeMetadata["service"] != "entitlement-service" {
			t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
		}
		if envelopeMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishUserTypeAssigned(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	assignedAt := time.Date(2026, 8, 12, 10, 15, 0, 0, time.UTC)
	event := domain.UserTypeAssignedEvent{
		EventID:       "evt-001",
		CompanyID:     "co-1",
		CompanyUserID: "user-456",
		UserTypeID:    "ut-9",
		AssignedBy:    "admin-789",
		AssignedAt:    assignedAt,
	}

	if err := publisher.PublishUserTypeAssigned(context.Background(), event); err != nil {
		t.Fatalf("PublishUserTypeAssigned returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "entitlements.user_type.assigned" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["user_type_id"]; got != event.UserTypeID {
			t.Fatalf("unexpected user_type_id: %v", got)
		}
		if got := payload["assigned_by"]; got != event.AssignedBy {
			t.Fatalf("unexpected assigned_by: %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}
