package runtime

import (
	"chatsphere/contract"
	"chatsphere/domain"
	"chatsphere/domain/event"
	"chatsphere/errors"
	"chatsphere/observability"
	"context"
	"fmt"
	"log/slog"
)

// TypingRelay routes start/stop signals to the destination's connections.
// Signals are never stored; debouncing is the sending client's job and the
// recipient keeps whichever signal arrived last.
type TypingRelay struct {
	log       *slog.Logger
	registry  contract.IRegistry
	directory contract.IConnectionDirectory
	metrics   *observability.Metrics
}

func NewTypingRelay(log *slog.Logger, registry contract.IRegistry,
	directory contract.IConnectionDirectory, metrics *observability.Metrics) *TypingRelay {
	return &TypingRelay{log: log, registry: registry, directory: directory, metrics: metrics}
}

// Relay returns how many connections the signal was queued on.
// An offline destination yields zero and no error.
func (t *TypingRelay) Relay(ctx context.Context, cmd domain.TypingCommand) (int, error) {
	if cmd.From == "" || cmd.To == "" {
		return 0, fmt.Errorf("%w: typing signal needs origin and destination", errors.ErrMalformedEvent)
	}
	if cmd.Kind != domain.TypingStart && cmd.Kind != domain.TypingStop {
		return 0, fmt.Errorf("%w: unknown typing kind %q", errors.ErrMalformedEvent, cmd.Kind)
	}
	t.metrics.TypingSignals.WithLabelValues(string(cmd.Kind)).Inc()

	evt := event.Typing{From: cmd.From, Kind: cmd.Kind}
	relayed := 0
	for _, connectionID := range t.registry.ConnectionsFor(cmd.To) {
		sink, ok := t.directory.Get(connectionID)
		if !ok {
			continue
		}
		if err := sink.Consume(ctx, evt); err != nil {
			t.metrics.DroppedEvents.Inc()
			t.log.Debug("Typing signal dropped", "connection_id", connectionID, "error", err)
			continue
		}
		relayed++
	}
	return relayed, nil
}
