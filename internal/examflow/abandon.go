package examflow

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Completer records the terminal outcome of an attempt.
type Completer interface {
	Complete(ctx context.Context, attemptID string, abandoned bool, reason string) error
}

// AbandonGuard reports the outcome of an attempt at most once. Whichever of
// Complete or Abandon runs first wins; later calls are no-ops. Reporting is
// best effort: errors are logged and swallowed.
type AbandonGuard struct {
	attemptID string
	completer Completer
	log       zerolog.Logger

	once      sync.Once
	settled   atomic.Bool
	abandoned atomic.Bool
	reported  atomic.Bool
}

// NewAbandonGuard creates an AbandonGuard for attemptID.
func NewAbandonGuard(attemptID string, completer Completer, log zerolog.Logger) *AbandonGuard {
	return &AbandonGuard{attemptID: attemptID, completer: completer, log: log}
}

// Abandon reports the attempt as abandoned. It returns true only for the call
// that settled the outcome, whether or not the report succeeded.
func (g *AbandonGuard) Abandon(ctx context.Context, reason string) bool {
	if reason == "" {
		reason = AbandonReasonUserLeft
	}
	return g.settle(ctx, true, reason)
}

// Complete reports the attempt as finished normally.
func (g *AbandonGuard) Complete(ctx context.Context) bool {
	return g.settle(ctx, false, "")
}

func (g *AbandonGuard) settle(ctx context.Context, abandoned bool, reason string) bool {
	ran := false
	g.once.Do(func() {
		ran = true
		g.settled.Store(true)
		g.abandoned.Store(abandoned)
		if err := g.completer.Complete(ctx, g.attemptID, abandoned, reason); err != nil {
			g.log.Error().Err(err).
				Str("attempt_id", g.attemptID).
				Bool("abandoned", abandoned).
				Msg("Failed to report attempt outcome")
			return
		}
		g.reported.Store(true)
	})
	return ran
}

// Settled reports whether an outcome has been decided.
func (g *AbandonGuard) Settled() bool {
	return g.settled.Load()
}

// Abandoned reports whether the decided outcome is an abandonment.
func (g *AbandonGuard) Abandoned() bool {
	return g.abandoned.Load()
}

// Reported reports whether the outcome reached the completer without error.
func (g *AbandonGuard) Reported() bool {
	return g.reported.Load()
}
