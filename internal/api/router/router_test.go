package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cancermitr/care-platform/internal/chat"
	"github.com/cancermitr/care-platform/pkg/logging"
)

type staticTurnProcessor struct{}

func (staticTurnProcessor) ProcessTurn(_ context.Context, _ chat.TurnInput) (*chat.TurnResult, error) {
	return &chat.TurnResult{Message: "hello from the pipeline", SessionID: "tok-1"}, nil
}

type emptyHistoryReader struct{}

func (emptyHistoryReader) FindSession(_ context.Context, _ string) (*chat.Session, error) {
	return nil, chat.ErrSessionNotFound
}

func (emptyHistoryReader) RecentMessages(_ context.Context, _ int64, _ int) ([]chat.Message, error) {
	return nil, nil
}

func newTestRouter(allowAnonymous bool) http.Handler {
	logger := logging.New("error")
	return New(&Config{
		Logger:         logger,
		ChatHandler:    chat.NewHandler(staticTurnProcessor{}, emptyHistoryReader{}, logger),
		JWTSecret:      "secret",
		AllowAnonymous: allowAnonymous,
	})
}

func TestHealthEndpointIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestChatRequiresAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	newTestRouter(false).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatAnonymousModeServesTurn(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi there"}`))
	newTestRouter(true).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello from the pipeline")
}

func TestHistoryRouteWired(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chat/history/tok-1", nil)
	newTestRouter(true).ServeHTTP(rec, req)

	// Unknown session resolves through the handler, not a routing 404 miss.
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "session not found")
}

func TestMetricsEndpointOptional(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	withMetrics := New(&Config{
		Logger: logging.New("error"),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		JWTSecret: "secret",
	})
	rec = httptest.NewRecorder()
	withMetrics.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
