// Package api exposes the REST surface next to the websocket endpoint:
// history, media upload and download, online users, liveness and metrics.
package api

import (
	"chatsphere/auth"
	"chatsphere/domain"
	"chatsphere/errors"
	"chatsphere/infrastructure/ws"
	"chatsphere/observability"
	"chatsphere/services"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

// Multipart overhead allowed on top of the media size limit.
const formOverhead = 1 << 20

type Handler struct {
	log           *slog.Logger
	service       services.IChatService
	maxUploadSize int64
}

// NewRouter mounts every route; websocket is served on /ws.
func NewRouter(log *slog.Logger, service services.IChatService, verifier *auth.Verifier,
	metrics *observability.Metrics, websocket http.Handler, maxUploadSize int64) *http.ServeMux {
	h := &Handler{log: log, service: service, maxUploadSize: maxUploadSize}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api", h.Liveness)
	mux.HandleFunc("GET /api/online-users", h.OnlineUsers)
	mux.Handle("GET /api/message/{friendId}", auth.RequireUser(log, verifier, http.HandlerFunc(h.History)))
	mux.Handle("POST /api/message/upload", auth.RequireUser(log, verifier, http.HandlerFunc(h.Upload)))
	mux.HandleFunc("GET /media/{name}", h.Media)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/ws", websocket)
	return mux
}

// NewServer sets read timeouts only; a write timeout would cut long media downloads.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "chatsphere is running")
}

func (h *Handler) OnlineUsers(w http.ResponseWriter, _ *http.Request) {
	users := lo.Map(h.service.OnlineUsers(), func(u domain.UserID, _ int) string { return string(u) })
	h.writeJSON(w, http.StatusOK, map[string][]string{"users": users})
}

// History returns the conversation between the caller and friendId, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	friend := strings.TrimSpace(r.PathValue("friendId"))
	if friend == "" {
		h.writeError(w, fmt.Errorf("%w: friendId is required", errors.ErrMalformedEvent))
		return
	}
	messages, err := h.service.GetMessages(r.Context(), domain.GetHistoryCommand{User: user, Peer: domain.UserID(friend)})
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %w", errors.ErrStorageFailure, err))
		return
	}
	h.writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) ws.Record { return ws.ToRecord(m) }))
}

// Upload stores the multipart "file" part and sends it to "to" as a message.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	limit := h.maxUploadSize + formOverhead
	if r.ContentLength > limit {
		h.writeError(w, errors.ErrMediaTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.writeError(w, errors.ErrMediaTooLarge)
			return
		}
		h.writeError(w, fmt.Errorf("%w: file part is required", errors.ErrMalformedEvent))
		return
	}
	defer file.Close()

	to := strings.TrimSpace(r.FormValue("to"))
	if to == "" {
		h.writeError(w, fmt.Errorf("%w: to is required", errors.ErrMalformedEvent))
		return
	}
	delivery, err := h.service.UploadMedia(r.Context(), domain.SendMessageCommand{
		From: user,
		To:   domain.UserID(to),
		Text: r.FormValue("text"),
	}, file)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ws.ToRecord(delivery.Message))
}

func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	f, err := h.service.OpenMedia(name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, name, time.Time{}, f)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Debug("Error writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "status", status, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"code": errors.Code(err), "message": err.Error()})
}
