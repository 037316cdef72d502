package api

import (
	"bytes"
	"chatsphere/auth"
	"chatsphere/domain"
	"chatsphere/errors"
	"chatsphere/infrastructure/ws"
	"chatsphere/mocks"
	"chatsphere/observability"
	"chatsphere/runtime"
	"chatsphere/services"
	"chatsphere/sink"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	router   http.Handler
	store    *mocks.MockIMessageStore
	blobs    *mocks.MockIBlobStore
	service  *services.ChatService
	verifier *auth.Verifier
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := mocks.NewMockIMessageStore(ctrl)
	blobs := mocks.NewMockIBlobStore(ctrl)
	metrics := observability.NewMetrics()
	orchestrator := runtime.NewOrchestrator(log, mocks.NewMockISupervisor(ctrl), store, metrics, runtime.Options{})
	service := services.NewChatService(log, orchestrator, blobs)
	verifier := auth.NewVerifier("a-strong-secret")
	websocket := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	return &fixture{
		router:   NewRouter(log, service, verifier, metrics, websocket, 1024),
		store:    store,
		blobs:    blobs,
		service:  service,
		verifier: verifier,
	}
}

func (f *fixture) bearer(t *testing.T, r *http.Request, user domain.UserID) *http.Request {
	token, err := f.verifier.Issue(user, time.Hour)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func (f *fixture) serve(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func uploadRequest(t *testing.T, to, text string, content []byte) *http.Request {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if to != "" {
		require.NoError(t, form.WriteField("to", to))
	}
	require.NoError(t, form.WriteField("text", text))
	if content != nil {
		part, err := form.CreateFormFile("file", "cat.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())
	r := httptest.NewRequest(http.MethodPost, "/api/message/upload", &body)
	r.Header.Set("Content-Type", form.FormDataContentType())
	return r
}

func TestRouter_Liveness_And_Websocket_Mount(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/api", nil))
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), "running")

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/ws", nil))
	req.Equal(http.StatusTeapot, rec.Code)
}

func TestRouter_OnlineUsers(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/api/online-users", nil))
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"users":[]}`, rec.Body.String())

	conn := f.service.Connect(sink.NewConnectionSink("c1", 4), "")
	req.NoError(f.service.Announce(context.Background(), conn, "alice"))

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/api/online-users", nil))
	req.JSONEq(`{"users":["alice"]}`, rec.Body.String())
}

func TestRouter_History(t *testing.T) {
	t.Run("should return the conversation of the caller", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		history := []domain.Message{
			{ID: uuid.New(), From: "alice", To: "bob", Text: "hi", CreatedAt: at},
			{ID: uuid.New(), From: "bob", To: "alice", Text: "hey", CreatedAt: at.Add(time.Second)},
		}
		f.store.EXPECT().FindMessagesBetween(gomock.Any(), domain.UserID("bob"), domain.UserID("alice")).
			Return(history, nil).Times(1)

		rec := f.serve(f.bearer(t, httptest.NewRequest(http.MethodGet, "/api/message/alice", nil), "bob"))

		req.Equal(http.StatusOK, rec.Code)
		var records []ws.Record
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &records))
		req.Len(records, 2)
		req.Equal("hi", records[0].Text)
		req.Equal(history[1].ID.String(), records[1].ID)
	})

	t.Run("should refuse anonymous callers", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.store.EXPECT().FindMessagesBetween(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rec := f.serve(httptest.NewRequest(http.MethodGet, "/api/message/alice", nil))

		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should map store errors to unavailable", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.store.EXPECT().FindMessagesBetween(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("badger closed")).Times(1)

		rec := f.serve(f.bearer(t, httptest.NewRequest(http.MethodGet, "/api/message/alice", nil), "bob"))

		req.Equal(http.StatusServiceUnavailable, rec.Code)
		req.Contains(rec.Body.String(), "storage_failure")
	})
}

func TestRouter_Upload(t *testing.T) {
	t.Run("should store media and return the persisted record", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		media := domain.Media{URL: "http://localhost:8080/media/x.png", Kind: domain.MediaImage}
		f.blobs.EXPECT().Put(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r io.Reader) (domain.Media, error) {
				content, err := io.ReadAll(r)
				req.NoError(err)
				req.Equal("png!", string(content))
				return media, nil
			}).Times(1)
		f.store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
				return m, nil
			}).Times(1)

		rec := f.serve(f.bearer(t, uploadRequest(t, "bob", "look", []byte("png!")), "alice"))

		req.Equal(http.StatusOK, rec.Code)
		var record ws.Record
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &record))
		req.Equal("alice", record.From)
		req.Equal("bob", record.To)
		req.Equal("look", record.Text)
		req.Equal(media.URL, record.File)
		req.Equal("image", record.FileType)
	})

	t.Run("should reject a missing recipient", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.blobs.EXPECT().Put(gomock.Any(), gomock.Any()).Times(0)

		rec := f.serve(f.bearer(t, uploadRequest(t, "", "look", []byte("png!")), "alice"))

		req.Equal(http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject a missing file", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		rec := f.serve(f.bearer(t, uploadRequest(t, "bob", "look", nil), "alice"))

		req.Equal(http.StatusBadRequest, rec.Code)
	})

	t.Run("should map unsupported media", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.blobs.EXPECT().Put(gomock.Any(), gomock.Any()).Return(domain.Media{}, errors.ErrUnsupportedMedia).Times(1)

		rec := f.serve(f.bearer(t, uploadRequest(t, "bob", "", []byte("%PDF-1.4")), "alice"))

		req.Equal(http.StatusUnsupportedMediaType, rec.Code)
		req.Contains(rec.Body.String(), "unsupported_media")
	})

	t.Run("should refuse bodies over the limit", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.blobs.EXPECT().Put(gomock.Any(), gomock.Any()).Times(0)

		rec := f.serve(f.bearer(t, uploadRequest(t, "bob", "", bytes.Repeat([]byte("a"), 2<<20)), "alice"))

		req.Equal(http.StatusRequestEntityTooLarge, rec.Code)
	})
}

type readSeekNopCloser struct{ *strings.Reader }

func (readSeekNopCloser) Close() error { return nil }

func TestRouter_Media(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.blobs.EXPECT().Open("x.png").Return(readSeekNopCloser{strings.NewReader("png!")}, nil).Times(1)
	f.blobs.EXPECT().Open("missing.png").Return(nil, errors.ErrMediaNotFound).Times(1)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/media/x.png", nil))
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("png!", rec.Body.String())
	req.Equal("image/png", rec.Header().Get("Content-Type"))

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/media/missing.png", nil))
	req.Equal(http.StatusNotFound, rec.Code)
	req.JSONEq(`{"code":"media_not_found","message":"media not found"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), "go_goroutines")
}
