package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// FlushWithContext rejects contexts without a deadline.
const natsFlushTimeout = 5 * time.Second

// natsConn is the subset of *nats.Conn used by natsSender.
type natsConn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

type natsSender struct {
	subject string
	conn    natsConn
	log     Logger
}

func newNATSPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.NATS == nil {
		return nil, fmt.Errorf("publisher %q missing nats configuration", cfg.ID)
	}

	url := cfg.NATS.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url,
		nats.Name("oddsapi"),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &queuePublisher{
		id:  cfg.ID,
		typ: TypeNATS,
		sender: &natsSender{
			subject: cfg.NATS.Subject,
			conn:    nc,
			log:     ensureLogger(log),
		},
	}, nil
}

// subjectFor appends the operation to the configured subject, e.g.
// "odds.events" becomes "odds.events.odds".
func (n *natsSender) subjectFor(evt Event) string {
	if evt.Operation == "" {
		return n.subject
	}
	return strings.TrimSuffix(n.subject, ".") + "." + evt.Operation
}

func (n *natsSender) Send(ctx context.Context, evt Event) error {
	payload, err := encodeEvent(evt)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(n.subjectFor(evt))
	msg.Data = payload
	for k, v := range evt.attributes() {
		msg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(msg); err != nil {
		n.log.ErrorObj("nats publisher send failed", "publisher_nats_error", map[string]any{
			"subject":  msg.Subject,
			"event_id": evt.ID,
			"error":    err.Error(),
		})
		return fmt.Errorf("publish to nats: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, natsFlushTimeout)
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	n.log.DebugObj("nats publisher delivered event", "publisher_nats_delivery", map[string]any{
		"subject":  msg.Subject,
		"event_id": evt.ID,
	})
	return nil
}

func (n *natsSender) Close() error {
	n.conn.Close()
	return nil
}
