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
	"strings"
	"time"

	"github.com/google/uuid"
)

// Delivery is the outcome of one successful send.
type Delivery struct {
	Message domain.Message
	Pushed  int // recipient connections the record was queued on
}

// DeliveryPipeline persists a message and fans it out to the recipient's
// live connections.
//
// Nothing is pushed before the store has acknowledged the record, and the
// sender's connections never get an echo. Commit and fan-out of one
// conversation happen under the same lock, so each recipient connection
// sees that conversation in commit order.
type DeliveryPipeline struct {
	log          *slog.Logger
	store        contract.IMessageStore
	registry     contract.IRegistry
	directory    contract.IConnectionDirectory
	metrics      *observability.Metrics
	locks        *pairLocks
	storeTimeout time.Duration
	now          func() time.Time
}

func NewDeliveryPipeline(log *slog.Logger, store contract.IMessageStore,
	registry contract.IRegistry, directory contract.IConnectionDirectory,
	metrics *observability.Metrics, storeTimeout time.Duration) *DeliveryPipeline {
	return &DeliveryPipeline{
		log:          log,
		store:        store,
		registry:     registry,
		directory:    directory,
		metrics:      metrics,
		locks:        newPairLocks(),
		storeTimeout: storeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage validates, persists and delivers one message.
// Empty text without media is accepted.
func (p *DeliveryPipeline) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (Delivery, error) {
	if err := validateSend(cmd); err != nil {
		return Delivery{}, err
	}

	message := domain.Message{
		ID:    uuid.New(),
		From:  cmd.From,
		To:    cmd.To,
		Text:  cmd.Text,
		Media: cmd.Media,
	}

	unlock := p.locks.Lock(cmd.From, cmd.To)
	defer unlock()

	// Timestamp taken under the conversation lock to match commit order
	message.CreatedAt = p.now()
	persisted, err := p.persist(ctx, message)
	if err != nil {
		p.metrics.StorageFailures.Inc()
		p.log.Error("Message not persisted, delivery aborted",
			"message_id", message.ID, "from", cmd.From, "to", cmd.To, "error", err)
		return Delivery{}, fmt.Errorf("%w: %w", errors.ErrStorageFailure, err)
	}
	p.metrics.MessagesPersisted.Inc()

	if persisted.IsSelfAddressed() {
		// Every recipient connection is a sender connection
		return Delivery{Message: persisted}, nil
	}

	pushed := p.fanout(ctx, persisted)
	return Delivery{Message: persisted, Pushed: pushed}, nil
}

func (p *DeliveryPipeline) persist(ctx context.Context, message domain.Message) (domain.Message, error) {
	if p.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.storeTimeout)
		defer cancel()
	}
	start := time.Now()
	defer func() { p.metrics.PersistLatency.Observe(time.Since(start).Seconds()) }()
	return p.store.CreateMessage(ctx, message)
}

// fanout queues the record once on every live connection of the recipient.
// A recipient with no connection is not an error: the record stays in the
// store for the next history fetch.
func (p *DeliveryPipeline) fanout(ctx context.Context, message domain.Message) int {
	connections := p.registry.ConnectionsFor(message.To)
	if len(connections) == 0 {
		p.log.Debug("Recipient offline, push skipped", "message_id", message.ID, "to", message.To)
		return 0
	}

	evt := event.MessageReceived{Message: message}
	pushed := 0
	for _, connectionID := range connections {
		sink, ok := p.directory.Get(connectionID)
		if !ok {
			continue
		}
		if err := sink.Consume(ctx, evt); err != nil {
			p.metrics.DroppedEvents.Inc()
			p.log.Warn("Message not queued on recipient connection",
				"message_id", message.ID, "connection_id", connectionID, "error", err)
			continue
		}
		pushed++
	}
	p.metrics.MessagesPushed.Add(float64(pushed))
	return pushed
}

func validateSend(cmd domain.SendMessageCommand) error {
	if strings.TrimSpace(string(cmd.From)) == "" {
		return fmt.Errorf("%w: sender is required", errors.ErrMalformedEvent)
	}
	if strings.TrimSpace(string(cmd.To)) == "" {
		return fmt.Errorf("%w: recipient is required", errors.ErrMalformedEvent)
	}
	if cmd.Media != nil {
		if cmd.Media.URL == "" {
			return fmt.Errorf("%w: media url is required", errors.ErrMalformedEvent)
		}
		if _, err := domain.ParseMediaKind(string(cmd.Media.Kind)); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrMalformedEvent, err)
		}
	}
	return nil
}
