// Package runtime holds the in-memory presence state and the real-time
// delivery paths built on it. It is constructed once per process and is not
// shared across processes: running several instances behind a load balancer
// needs an external fan-out layer in front of this package.
package runtime

import (
	"chatsphere/contract"
	"chatsphere/domain"
	"chatsphere/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Options struct {
	StoreTimeout          time.Duration
	EdgeTriggeredPresence bool
}

// Orchestrator wires the registry, the broadcaster, the delivery pipeline,
// the typing relay and the lifecycle manager, and supervises background workers.
type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    *Registry
	directory   *ConnectionDirectory
	store       contract.IMessageStore
	broadcaster *PresenceBroadcaster
	pipeline    *DeliveryPipeline
	relay       *TypingRelay
	lifecycle   *LifecycleManager
	workers     []contract.Worker
	running     bool
	done        chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	store contract.IMessageStore, metrics *observability.Metrics, opts Options) *Orchestrator {
	registry := NewRegistry()
	directory := NewConnectionDirectory()
	broadcaster := NewPresenceBroadcaster(log, registry, directory, metrics, opts.EdgeTriggeredPresence)

	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		directory:   directory,
		store:       store,
		broadcaster: broadcaster,
		pipeline:    NewDeliveryPipeline(log, store, registry, directory, metrics, opts.StoreTimeout),
		relay:       NewTypingRelay(log, registry, directory, metrics),
		lifecycle:   NewLifecycleManager(log, registry, directory, broadcaster, metrics),
	}
}

// RegisterWorkers queues background workers; they start with Start.
func (o *Orchestrator) RegisterWorkers(workers ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers = append(o.workers, workers...)
}

// Start hands the registered workers to the supervisor and returns at once.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return fmt.Errorf("orchestrator already started")
	}
	o.supervisor.Add(o.workers...)
	o.done = make(chan struct{})
	o.running = true

	o.log.Info("Starting orchestrator and all supervised workers", "workers", len(o.workers))
	go func(done chan struct{}) {
		defer close(done)
		o.supervisor.Run(ctx)
	}(o.done)
	return nil
}

// Stop cancels the supervised workers and waits for them.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	done := o.done
	o.mu.Unlock()

	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
	<-done
}

func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) Connect(sink contract.EventSink, authenticated domain.UserID) *Connection {
	return o.lifecycle.Open(sink, authenticated)
}

func (o *Orchestrator) Announce(ctx context.Context, conn *Connection, user domain.UserID) error {
	return o.lifecycle.Announce(ctx, conn, user)
}

func (o *Orchestrator) Disconnect(ctx context.Context, conn *Connection) {
	o.lifecycle.Close(ctx, conn)
}

func (o *Orchestrator) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (Delivery, error) {
	return o.pipeline.SendMessage(ctx, cmd)
}

func (o *Orchestrator) Typing(ctx context.Context, cmd domain.TypingCommand) (int, error) {
	return o.relay.Relay(ctx, cmd)
}

// History reads straight from the store; it never touches live state.
func (o *Orchestrator) History(ctx context.Context, cmd domain.GetHistoryCommand) ([]domain.Message, error) {
	return o.store.FindMessagesBetween(ctx, cmd.User, cmd.Peer)
}

func (o *Orchestrator) OnlineUsers() []domain.UserID {
	return o.registry.OnlineUsers()
}

func (o *Orchestrator) IsOnline(user domain.UserID) bool {
	return o.registry.IsOnline(user)
}

// Stats feeds the heartbeat worker.
func (o *Orchestrator) Stats() (connections int, onlineUsers int) {
	return o.directory.Len(), len(o.registry.OnlineUsers())
}
