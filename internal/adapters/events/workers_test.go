package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/viralforge/affiliate-core/internal/adapters/memory"
	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func enqueue(t *testing.T, outbox ports.OutboxRepository, id, eventType, key string, at time.Time) {
	t.Helper()
	if err := outbox.Enqueue(context.Background(), ports.OutboxEvent{
		EventID:      id,
		EventType:    eventType,
		PartitionKey: key,
		Payload:      []byte(`{"event_id":"` + id + `"}`),
		OccurredAt:   at,
	}); err != nil {
		t.Fatalf("enqueue %s: %v", id, err)
	}
}

func TestOutboxWorkerPublishesInOrder(t *testing.T) {
	repos := memory.NewRepositories()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	enqueue(t, repos.Outbox, "e2", domain.EventAffiliateConversionRecorded, "link-1", base.Add(time.Second))
	enqueue(t, repos.Outbox, "e1", domain.EventAffiliateClickRecorded, "link-1", base)

	publisher := NewMemoryPublisher()
	worker := NewOutboxWorker(discardLogger(), repos.Outbox, publisher, time.Second, 10)
	n, err := worker.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("process once: %v", err)
	}
	if n != 2 || repos.Outbox.Pending() != 0 {
		t.Fatalf("expected 2 published and none pending, got n=%d pending=%d", n, repos.Outbox.Pending())
	}
	events := publisher.Events()
	if events[0].EventType != domain.EventAffiliateClickRecorded || events[1].EventType != domain.EventAffiliateConversionRecorded {
		t.Fatalf("unexpected publish order: %+v", events)
	}

	n, err = worker.ProcessOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second pass should be empty, got n=%d err=%v", n, err)
	}
}

func TestOutboxWorkerKeepsFailedRows(t *testing.T) {
	repos := memory.NewRepositories()
	enqueue(t, repos.Outbox, "e1", domain.EventAffiliateLinkCreated, "aff-1", time.Now().UTC())

	publisher := NewMemoryPublisher()
	publisher.FailWith(errors.New("broker down"))
	worker := NewOutboxWorker(discardLogger(), repos.Outbox, publisher, time.Second, 10)
	n, err := worker.ProcessOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("failed publish should not abort the batch, got n=%d err=%v", n, err)
	}
	rows, _ := repos.Outbox.FetchUnpublished(context.Background(), 10)
	if len(rows) != 1 || rows[0].RetryCount != 1 || rows[0].LastError == nil || *rows[0].LastError != "broker down" {
		t.Fatalf("unexpected outbox row: %+v", rows)
	}

	publisher.FailWith(nil)
	if n, err := worker.ProcessOnce(context.Background()); err != nil || n != 1 {
		t.Fatalf("retry should publish, got n=%d err=%v", n, err)
	}
}

type stubConsumer struct {
	batches   [][]Message
	pollErr   error
	committed []string
	rewinds   int
}

func (c *stubConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	if len(c.batches) == 0 {
		return nil, c.pollErr
	}
	next := c.batches[0]
	c.batches = c.batches[1:]
	return next, c.pollErr
}

func (c *stubConsumer) Commit(_ context.Context, msgs ...Message) error {
	for _, m := range msgs {
		c.committed = append(c.committed, m.Key)
	}
	return nil
}

func (c *stubConsumer) Rewind(_ context.Context) error {
	c.rewinds++
	return nil
}

type countingHandler struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string][]error
}

func (h *countingHandler) HandleCanonicalEvent(_ context.Context, env contracts.EventEnvelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[env.EventID]++
	queue := h.errs[env.EventID]
	if len(queue) == 0 {
		return nil
	}
	h.errs[env.EventID] = queue[1:]
	return queue[0]
}

func envelopeMessage(t *testing.T, eventID string) Message {
	t.Helper()
	raw, err := json.Marshal(contracts.EventEnvelope{EventID: eventID, EventType: domain.EventCommerceOrderCompleted})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return Message{Topic: domain.EventCommerceOrderCompleted, Key: eventID, Payload: raw}
}

func TestConsumerWorkerRetriesTransientErrors(t *testing.T) {
	handler := &countingHandler{
		calls: map[string]int{},
		errs: map[string][]error{
			"transient": {errors.New("db timeout"), errors.New("db timeout")},
			"bad":       {domain.ErrInvalidEnvelope},
			"stuck":     {errors.New("a"), errors.New("b"), errors.New("c"), errors.New("d")},
		},
	}
	consumer := &stubConsumer{batches: [][]Message{{
		envelopeMessage(t, "transient"),
		{Topic: "x", Key: "garbage", Payload: []byte("not json")},
		envelopeMessage(t, "bad"),
		envelopeMessage(t, "stuck"),
		envelopeMessage(t, "ok"),
	}}}
	worker := NewConsumerWorker(discardLogger(), consumer, handler, time.Second)
	worker.backoff = 0

	if err := worker.ProcessOnce(context.Background()); err == nil {
		t.Fatal("expected an error for the event that kept failing")
	}
	want := map[string]int{"transient": 3, "bad": 1, "stuck": 3, "ok": 0}
	for id, n := range want {
		if handler.calls[id] != n {
			t.Fatalf("event %s: calls=%d want=%d", id, handler.calls[id], n)
		}
	}
	if got := strings.Join(consumer.committed, ","); got != "transient,garbage,bad" {
		t.Fatalf("committed=%q, the failing event and everything after it must stay uncommitted", got)
	}
	if consumer.rewinds != 1 {
		t.Fatalf("rewinds=%d want 1", consumer.rewinds)
	}

	// Redelivery after the rewind picks the stuck event up again.
	consumer.batches = [][]Message{{envelopeMessage(t, "stuck"), envelopeMessage(t, "ok")}}
	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("redelivered batch: %v", err)
	}
	if got := strings.Join(consumer.committed, ","); got != "transient,garbage,bad,stuck,ok" {
		t.Fatalf("committed=%q after redelivery", got)
	}
}

func TestConsumerWorkerStopsOnCancel(t *testing.T) {
	handler := &countingHandler{calls: map[string]int{}, errs: map[string][]error{"e": {context.Canceled}}}
	consumer := &stubConsumer{batches: [][]Message{{envelopeMessage(t, "e"), envelopeMessage(t, "next")}}}
	worker := NewConsumerWorker(discardLogger(), consumer, handler, time.Second)

	err := worker.ProcessOnce(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to stop the batch, got %v", err)
	}
	if handler.calls["next"] != 0 {
		t.Fatalf("messages after cancellation should not be handled")
	}
	if len(consumer.committed) != 0 {
		t.Fatalf("interrupted events must not be committed, got %v", consumer.committed)
	}
}

func TestConsumerWorkerHandlesMessagesReturnedWithPollError(t *testing.T) {
	handler := &countingHandler{calls: map[string]int{}, errs: map[string][]error{}}
	brokerDown := errors.New("broker connection lost")
	consumer := &stubConsumer{
		batches: [][]Message{{envelopeMessage(t, "a"), envelopeMessage(t, "b")}},
		pollErr: brokerDown,
	}
	worker := NewConsumerWorker(discardLogger(), consumer, handler, time.Second)

	if err := worker.ProcessOnce(context.Background()); !errors.Is(err, brokerDown) {
		t.Fatalf("expected the poll error to surface, got %v", err)
	}
	if handler.calls["a"] != 1 || handler.calls["b"] != 1 {
		t.Fatalf("fetched messages were dropped: %v", handler.calls)
	}
	if got := strings.Join(consumer.committed, ","); got != "a,b" {
		t.Fatalf("committed=%q", got)
	}
}

func TestRetryable(t *testing.T) {
	cases := map[error]bool{
		domain.ErrInvalidEnvelope:      false,
		domain.ErrUnsupportedEventType: false,
		domain.ErrInvalidInput:         false,
		context.Canceled:               false,
		errors.New("connection reset"): true,
	}
	for err, want := range cases {
		if got := retryable(err); got != want {
			t.Fatalf("retryable(%v)=%v want %v", err, got, want)
		}
	}
}

func TestKafkaPublisherTopicMapping(t *testing.T) {
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, map[string]string{
		domain.EventAffiliateClickRecorded: "prod.affiliate.click.recorded",
	})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer p.Close()
	if got := p.topicFor(domain.EventAffiliateClickRecorded); got != "prod.affiliate.click.recorded" {
		t.Fatalf("mapped topic=%q", got)
	}
	if got := p.topicFor(domain.EventAffiliateLinkCreated); got != domain.EventAffiliateLinkCreated {
		t.Fatalf("fallback topic=%q", got)
	}
	if _, err := NewKafkaPublisher(nil, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
}
