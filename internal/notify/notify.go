// Package notify fans out operational events (sweep completed, task
// failed) from the Phase Engine to configured outbound channels. Both
// channels post raw webhooks; no vendor SDK is involved.
package notify

import (
	"context"
	"log/slog"

	"github.com/autodevhq/autodev/internal/config"
)

// Event is one operational occurrence worth telling an operator about.
type Event struct {
	Type     string // "sweep_completed" | "task_failed" | "iteration_ceiling"
	Title    string
	Body     string
	RepoName string
}

// Channel is implemented by each notification transport.
type Channel interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, evt Event) error
}

// Dispatcher fans an Event out to every configured channel.
type Dispatcher struct {
	channels []Channel
}

// NewDispatcher builds a Dispatcher from cfg, registering only the channels
// that have a destination configured.
func NewDispatcher(cfg config.NotifyConfig) *Dispatcher {
	d := &Dispatcher{}
	for _, ch := range []Channel{NewSlack(cfg.Slack), NewWebhook(cfg.Webhook)} {
		if ch.IsConfigured() {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// IsAnyConfigured reports whether at least one channel will actually send.
func (d *Dispatcher) IsAnyConfigured() bool { return len(d.channels) > 0 }

// Notify sends evt to every configured channel. Failures are logged, never
// returned or retried: notification delivery is best-effort and must never
// perturb the tick loop.
func (d *Dispatcher) Notify(ctx context.Context, evt Event) {
	for _, ch := range d.channels {
		if err := ch.Send(ctx, evt); err != nil {
			slog.Warn("notify: channel send failed", "channel", ch.Name(), "event", evt.Type, "error", err)
		}
	}
}
