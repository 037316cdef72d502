package ws

import (
	"chatsphere/domain"
	"chatsphere/domain/event"
	"chatsphere/errors"
	"chatsphere/observability"
	"chatsphere/runtime"
	"chatsphere/services"
	"chatsphere/sink"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Client owns one websocket: a read pump that turns frames into service
// calls, and a write pump that drains the connection's sink.
type Client struct {
	ctx     context.Context
	log     *slog.Logger
	conn    *websocket.Conn
	service services.IChatService
	metrics *observability.Metrics
	sink    *sink.ConnectionSink
	handle  *runtime.Connection
	limiter *rate.Limiter
	opts    Options
}

func newClient(ctx context.Context, log *slog.Logger, conn *websocket.Conn,
	service services.IChatService, metrics *observability.Metrics,
	authenticated domain.UserID, opts Options) *Client {
	id := domain.NewConnectionID()
	outbound := sink.NewConnectionSink(id, opts.BufferSize)
	conn.SetReadLimit(opts.MaxMessageSize)

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, opts.RateBurst)
	}
	return &Client{
		ctx:     ctx,
		log:     log.With("connection_id", id, "remote_addr", conn.RemoteAddr().String()),
		conn:    conn,
		service: service,
		metrics: metrics,
		sink:    outbound,
		handle:  service.Connect(outbound, authenticated),
		limiter: limiter,
		opts:    opts,
	}
}

// run blocks until the connection is gone and its presence withdrawn.
func (c *Client) run() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()

	c.readPump()

	c.service.Disconnect(c.ctx, c.handle)
	c.sink.Close()
	<-done
	c.closeConnection()
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout)); err != nil {
		c.log.Debug("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})
}

func (c *Client) readPump() {
	c.setupReadConnection()
	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if messageType != websocket.TextMessage {
			c.reject("", fmt.Errorf("%w: text frames only", errors.ErrMalformedEvent))
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.reject("", errors.ErrRateLimited)
			continue
		}
		c.handleFrame(frame)
	}
}

// handleFrame processes one inbound event. A panic here only costs the event.
func (c *Client) handleFrame(frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Panic while handling event", "panic", r)
			c.reject("", fmt.Errorf("internal error: %v", r))
		}
	}()

	env, err := decodeEnvelope(frame)
	if err != nil {
		c.reject("", err)
		return
	}
	switch env.Event {
	case EventAnnouncePresence:
		c.onAnnounce(env)
	case EventSendMessage:
		c.onSendMessage(env)
	case EventTyping:
		c.onTyping(env, domain.TypingStart)
	case EventStopTyping:
		c.onTyping(env, domain.TypingStop)
	default:
		c.reject("", fmt.Errorf("%w: %s", errors.ErrUnknownEvent, env.Event))
	}
}

func (c *Client) onAnnounce(env Envelope) {
	user, err := decodeAnnounce(env.Data)
	if err != nil {
		c.reject("", err)
		return
	}
	if err = c.service.Announce(c.ctx, c.handle, user); err != nil {
		c.reject("", err)
	}
}

func (c *Client) onSendMessage(env Envelope) {
	var payload SendMessagePayload
	if err := decodePayload(env.Data, &payload); err != nil {
		c.reject(payload.Ref, err)
		return
	}
	if err := payload.check(); err != nil {
		c.reject(payload.Ref, err)
		return
	}
	// The announced identity wins; before announce a token still pins the sender
	user, announced := c.handle.User()
	if !announced {
		user = c.handle.Authenticated()
	}
	if user != "" && string(user) != payload.From {
		c.reject(payload.Ref, fmt.Errorf("%w: connection is bound to %s", errors.ErrIdentityMismatch, user))
		return
	}

	delivery, err := c.service.SendMessage(c.ctx, payload.command())
	if err != nil {
		c.reject(payload.Ref, err)
		return
	}
	if payload.Ref != "" {
		c.push(event.MessageSent{Ref: payload.Ref, Message: delivery.Message})
	}
}

func (c *Client) onTyping(env Envelope, kind domain.TypingKind) {
	user, ok := c.handle.User()
	if !ok {
		c.reject("", errors.ErrNotAnnounced)
		return
	}
	var payload TypingPayload
	if err := decodePayload(env.Data, &payload); err != nil {
		c.reject("", err)
		return
	}
	if _, err := c.service.Typing(c.ctx, domain.TypingCommand{From: user, To: domain.UserID(payload.To), Kind: kind}); err != nil {
		c.reject("", err)
	}
}

// reject reports a failed event back to this connection only.
func (c *Client) reject(ref string, err error) {
	code := errors.Code(err)
	c.metrics.RejectedEvents.WithLabelValues(code).Inc()
	if stderrors.Is(err, errors.ErrStorageFailure) {
		c.log.Error("Event failed", "code", code, "error", err)
	} else {
		c.log.Warn("Event rejected", "code", code, "error", err)
	}
	c.push(event.Failure{Code: code, Message: err.Error(), Ref: ref})
}

func (c *Client) push(e event.Event) {
	if err := c.sink.Consume(c.ctx, e); err != nil {
		c.log.Debug("Reply not queued", "event", e.Name(), "error", err)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case stderrors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "max_bytes", c.opts.MaxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.log.Debug("Client disconnected", "error", err)
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF):
		c.log.Debug("Connection closed", "error", err)
	default:
		c.log.Info("Websocket read ended", "error", err)
	}
}

// writePump sends queued events in order, pings on a fixed interval and
// closes the socket when the peer is too slow or the server shuts down.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-c.sink.Events():
			if !ok {
				c.writeClose(websocket.CloseNormalClosure, "")
				return
			}
			if !c.writeEvent(e) {
				c.closeConnection()
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				c.closeConnection()
				return
			}
		case <-c.sink.Overflow():
			c.log.Warn("Slow consumer evicted", "buffer_size", c.opts.BufferSize)
			c.writeClose(websocket.ClosePolicyViolation, "slow consumer")
			c.closeConnection()
			return
		case <-c.ctx.Done():
			c.writeClose(websocket.CloseGoingAway, "server shutting down")
			c.closeConnection()
			return
		}
	}
}

func (c *Client) writeEvent(e event.Event) bool {
	frame, err := Encode(e)
	if err != nil {
		c.log.Error("Event not encodable", "event", e.Name(), "error", err)
		return true
	}
	if err = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return false
	}
	if err = c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.log.Debug("Error writing event", "event", e.Name(), "error", err)
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug("Error writing ping", "error", err)
		return false
	}
	return true
}

func (c *Client) writeClose(code int, text string) {
	deadline := time.Now().Add(c.opts.WriteTimeout)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (c *Client) closeConnection() {
	_ = c.conn.Close()
}
