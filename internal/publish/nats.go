package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/pkg/logger"
)

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATS publishes each report as JSON on <subject>.<kind>.
type NATS struct {
	conn    natsConn
	subject string
	logger  *logger.Logger
}

// NewNATS connects to url. Reconnects are unlimited.
func NewNATS(url, subject string, log *logger.Logger) (*NATS, error) {
	l := log.Named("nats")
	nc, err := nats.Connect(url,
		nats.Name("wxdecode"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("NATS disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.Info("NATS reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	l.Info("Connected to NATS", logger.String("url", url), logger.String("subject", subject))
	return &NATS{conn: nc, subject: subject, logger: l}, nil
}

// Subject returns the subject a report of this kind goes to.
func (n *NATS) Subject(r weather.Report) string {
	return strings.TrimSuffix(n.subject, ".") + "." + string(r.Kind)
}

func (n *NATS) Publish(_ context.Context, r weather.Report) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	subject := n.Subject(r)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish to %s: %w", subject, err)
	}
	n.logger.Debug("Published report", logger.String("subject", subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
