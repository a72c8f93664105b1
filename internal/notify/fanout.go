// Package notify delivers committed lifecycle notices to every configured
// sink. Delivery is best effort: the write that produced a notice has already
// committed, so sink failures are logged and counted, never returned.
package notify

import (
	"context"
	"log"

	"eventos-backend/internal/metrics"
	"eventos-backend/internal/models"
)

// Notifier is one notification sink
type Notifier interface {
	Notify(ctx context.Context, n models.Notice) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n models.Notice) error

func (f NotifierFunc) Notify(ctx context.Context, n models.Notice) error { return f(ctx, n) }

type sink struct {
	name string
	n    Notifier
}

// Fanout sends each notice to all registered sinks in registration order
type Fanout struct {
	sinks  []sink
	logger *log.Logger
}

func NewFanout(logger *log.Logger) *Fanout {
	if logger == nil {
		logger = log.Default()
	}
	return &Fanout{logger: logger}
}

// Add registers a sink under name, used in logs and metrics. Nil sinks are skipped.
func (f *Fanout) Add(name string, n Notifier) *Fanout {
	if n != nil {
		f.sinks = append(f.sinks, sink{name: name, n: n})
	}
	return f
}

// Notify always returns nil
func (f *Fanout) Notify(ctx context.Context, n models.Notice) error {
	for _, s := range f.sinks {
		if err := s.n.Notify(ctx, n); err != nil {
			metrics.NotificationFailures.WithLabelValues(s.name).Inc()
			f.logger.Printf("[Avisos] %s falló para %s del evento %d: %v", s.name, n.Tipo, n.EventoID, err)
		}
	}
	return nil
}
