package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
)

type fakeNATSConn struct {
	msgs     []*nats.Msg
	err      error
	flushed  bool
	deadline bool
	closed   bool
}

func (f *fakeNATSConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeNATSConn) FlushWithContext(ctx context.Context) error {
	_, f.deadline = ctx.Deadline()
	f.flushed = true
	return nil
}

func (f *fakeNATSConn) Close() { f.closed = true }

func TestNATSSenderPublishesWithHeaders(t *testing.T) {
	conn := &fakeNATSConn{}
	s := &natsSender{subject: "oddsapi.events", conn: conn, log: discardLogger{}}

	if err := s.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(conn.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(conn.msgs))
	}
	msg := conn.msgs[0]
	if msg.Subject != "oddsapi.events.odds" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if got := msg.Header.Get("event_id"); got != "evt-1" {
		t.Fatalf("event_id header = %q", got)
	}
	if !conn.flushed || !conn.deadline {
		t.Fatalf("expected flush with a deadline")
	}

	if err := s.Close(); err != nil || !conn.closed {
		t.Fatalf("Close: err=%v closed=%v", err, conn.closed)
	}
}

func TestNATSSenderPublishError(t *testing.T) {
	conn := &fakeNATSConn{err: errors.New("no responders")}
	s := &natsSender{subject: "oddsapi.events", conn: conn, log: discardLogger{}}
	if err := s.Send(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected publish error")
	}
	if conn.flushed {
		t.Fatalf("flush should not run after a failed publish")
	}
}
