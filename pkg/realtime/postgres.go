package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultChannel is the LISTEN/NOTIFY channel carrying portal changes.
const DefaultChannel = "portal_changes"

// PGNotifier publishes changes with pg_notify so every API replica sees them.
type PGNotifier struct {
	db      *sqlx.DB
	channel string
}

// NewPGNotifier constructs a notifier for channel (DefaultChannel when empty).
func NewPGNotifier(db *sqlx.DB, channel string) *PGNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PGNotifier{db: db, channel: channel}
}

// Publish sends change as a JSON payload.
func (n *PGNotifier) Publish(ctx context.Context, change Change) error {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if _, err := n.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.channel, string(payload)); err != nil {
		return fmt.Errorf("notify change: %w", err)
	}
	return nil
}

// Listener relays NOTIFY payloads into a Hub.
type Listener struct {
	dsn     string
	channel string
	hub     *Hub
	logger  *zap.Logger
}

// NewListener wires a listener for dsn into hub.
func NewListener(dsn, channel string, hub *Hub, logger *zap.Logger) *Listener {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{dsn: dsn, channel: channel, hub: hub, logger: logger}
}

// Run blocks until ctx is cancelled. pq.Listener reconnects on its own.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("change listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	defer listener.Close() //nolint:errcheck

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("change listener started", zap.String("channel", l.channel))

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// nil follows a reconnect; events sent while disconnected are lost.
				continue
			}
			l.dispatch(n.Extra)
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				l.logger.Warn("change listener ping failed", zap.Error(err))
			}
		}
	}
}

func (l *Listener) dispatch(payload string) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		l.logger.Warn("discarding malformed change payload", zap.String("payload", payload), zap.Error(err))
		return
	}
	l.hub.Broadcast(change)
}
