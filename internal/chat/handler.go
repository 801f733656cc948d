package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cancermitr/care-platform/internal/http/middleware"
	"github.com/cancermitr/care-platform/pkg/logging"
)

// TurnProcessor runs one chat turn. *Orchestrator satisfies it.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, in TurnInput) (*TurnResult, error)
}

// HistoryReader is the read-only store surface the history endpoint needs.
type HistoryReader interface {
	FindSession(ctx context.Context, ref string) (*Session, error)
	RecentMessages(ctx context.Context, sessionID int64, limit int) ([]Message, error)
}

// Handler exposes the chat endpoints.
type Handler struct {
	turns  TurnProcessor
	store  HistoryReader
	logger *logging.Logger
}

// NewHandler creates the chat HTTP handler.
func NewHandler(turns TurnProcessor, store HistoryReader, logger *logging.Logger) *Handler {
	if turns == nil {
		panic("chat: turn processor cannot be nil")
	}
	if store == nil {
		panic("chat: history reader cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{turns: turns, store: store, logger: logger}
}

// SessionRef accepts either a string token or a numeric id in JSON.
type SessionRef string

func (r *SessionRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == `""` {
		*r = ""
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*r = SessionRef(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*r = SessionRef(asNumber.String())
		return nil
	}
	return fmt.Errorf("chat: sessionId must be a string or number")
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message   string     `json:"message"`
	SessionID SessionRef `json:"sessionId,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode,omitempty"`
}

type historyEntry struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

const historyPageSize = 100

// PostChat handles POST /chat.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	defer h.recoverPanic(w, r)

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", ErrorCode: CodeValidation})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required", ErrorCode: CodeValidation})
		return
	}

	result, err := h.turns.ProcessTurn(r.Context(), TurnInput{
		UserID:     userID,
		SessionRef: string(req.SessionID),
		Message:    req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMessagePersist):
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save your message", ErrorCode: CodePersistFailed})
		case errors.Is(err, ErrSessionNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found", ErrorCode: CodeValidation})
		default:
			h.logger.Error("chat turn failed", "user_id", userID, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong, please try again", ErrorCode: CodeInternal})
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetHistory handles GET /chat/history/{sessionID}.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	defer h.recoverPanic(w, r)

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	ref := chi.URLParam(r, "sessionID")
	sess, err := h.store.FindSession(r.Context(), ref)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}
		h.logger.Error("history lookup failed", "session", ref, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong, please try again", ErrorCode: CodeInternal})
		return
	}
	if sess.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}

	messages, err := h.store.RecentMessages(r.Context(), sess.ID, historyPageSize)
	if err != nil {
		h.logger.Error("history fetch failed", "session", ref, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong, please try again", ErrorCode: CodeInternal})
		return
	}

	entries := make([]historyEntry, 0, len(messages))
	for _, msg := range messages {
		sender := "user"
		if msg.Role == RoleAssistant {
			sender = "bot"
		}
		entries = append(entries, historyEntry{
			ID:        msg.ID,
			Text:      msg.Body,
			Sender:    sender,
			Timestamp: msg.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.Token,
		"messages":  entries,
	})
}

func (h *Handler) recoverPanic(w http.ResponseWriter, r *http.Request) {
	if rec := recover(); rec != nil {
		h.logger.Error("panic in chat handler",
			"path", r.URL.Path,
			"panic", fmt.Sprint(rec),
			"stack", string(debug.Stack()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong, please try again", ErrorCode: CodeInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
