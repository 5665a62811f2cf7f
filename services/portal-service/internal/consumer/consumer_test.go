package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/salonportal/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type memInbox struct {
	seen map[string]bool
	err  error
}

func (m *memInbox) Forget(_ context.Context, eventID string) error {
	delete(m.seen, eventID)
	return nil
}

func (m *memInbox) Record(_ context.Context, eventID, _, _ string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

type sliceReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
	closed    bool
}

func (r *sliceReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

type recordingInvalidator struct {
	tenants []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, tenantID string) error {
	r.tenants = append(r.tenants, tenantID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scheduleMsg(eventID, tenantID, body string) kafka.Message {
	return kafka.Message{
		Topic: TopicScheduleChanged,
		Value: []byte(body),
		Headers: kafkax.Headers(context.Background(), kafkax.EventMeta{
			EventID:   eventID,
			EventType: TopicScheduleChanged,
			TenantID:  tenantID,
		}),
	}
}

func TestRunDeduplicatesAndInvalidates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inv := &recordingInvalidator{}
	reader := &sliceReader{cancel: cancel, msgs: []kafka.Message{
		scheduleMsg("e1", "salon-1", `{}`),
		scheduleMsg("e1", "salon-1", `{}`),
		scheduleMsg("e2", "", `{"business_id":"salon-2"}`),
	}}
	for i := range reader.msgs {
		reader.msgs[i].Offset = int64(i)
	}
	c := NewWithReader(testLogger(), &memInbox{seen: map[string]bool{}}, reader, InvalidateOnScheduleChange(inv))
	c.Run(ctx)

	if !reader.closed {
		t.Fatal("expected reader to be closed")
	}
	if len(inv.tenants) != 2 || inv.tenants[0] != "salon-1" || inv.tenants[1] != "salon-2" {
		t.Fatalf("unexpected invalidations %v", inv.tenants)
	}
	if len(reader.committed) != 3 {
		t.Fatalf("expected every message to be committed, got %v", reader.committed)
	}
}

func TestProcessSkipsOnInboxError(t *testing.T) {
	inv := &recordingInvalidator{}
	c := NewWithReader(testLogger(), &memInbox{err: errors.New("db down")}, &sliceReader{}, InvalidateOnScheduleChange(inv))
	if err := c.process(context.Background(), scheduleMsg("e1", "salon-1", `{}`)); err == nil {
		t.Fatal("expected inbox error")
	}
	if len(inv.tenants) != 0 {
		t.Fatalf("unexpected invalidations %v", inv.tenants)
	}
}

func TestHandlerFailureIsRetried(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	calls := 0
	c := NewWithReader(testLogger(), inbox, &sliceReader{}, func(context.Context, kafka.Message) error {
		calls++
		if calls == 1 {
			return errors.New("redis down")
		}
		return nil
	})
	msg := scheduleMsg("e1", "salon-1", `{}`)
	if err := c.process(context.Background(), msg); err == nil {
		t.Fatal("expected handler error")
	}
	if inbox.seen["e1"] {
		t.Fatal("failed event must be forgotten by the inbox")
	}
	if err := c.process(context.Background(), msg); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if calls != 2 || !inbox.seen["e1"] {
		t.Fatalf("expected retry to run the handler and record the event, calls=%d", calls)
	}
	// Once recorded, a redelivery is skipped without calling the handler.
	if err := c.process(context.Background(), msg); err != nil || calls != 2 {
		t.Fatalf("duplicate delivery ran the handler, calls=%d err=%v", calls, err)
	}
}

func TestScheduleChangeWithoutTenant(t *testing.T) {
	h := InvalidateOnScheduleChange(&recordingInvalidator{})
	if err := h(context.Background(), kafka.Message{Value: []byte(`{}`)}); err == nil {
		t.Fatal("expected error without tenant")
	}
	if err := h(context.Background(), kafka.Message{Value: []byte(`not json`)}); err == nil {
		t.Fatal("expected decode error")
	}
}
