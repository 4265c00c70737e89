package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/chatwave/dispatch-service/internal/domain"
	"github.com/chatwave/dispatch-service/internal/hub"
	"github.com/chatwave/dispatch-service/internal/postgres"
	"github.com/chatwave/dispatch-service/internal/service"
	httpmw "github.com/chatwave/dispatch-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

// UserCacheInvalidator drops a cached user record so a block-list change
// made in another service takes effect before the cache TTL expires.
type UserCacheInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

type Handler struct {
	historySvc *service.HistoryService
	hub        *hub.Hub
	userCache  UserCacheInvalidator
}

func NewHandler(history *service.HistoryService, h *hub.Hub) *Handler {
	return &Handler{
		historySvc: history,
		hub:        h,
	}
}

// SetUserCache enables DELETE /cache/users/{userId}; without it the
// endpoint is a no-op.
func (h *Handler) SetUserCache(inv UserCacheInvalidator) {
	h.userCache = inv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /messages/{userId}?after=&limit=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}
	otherID := chi.URLParam(r, "userId")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.historySvc.Between(r.Context(), userID, otherID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := HistoryResponse{Items: make([]MessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		resp.Items = append(resp.Items, messageItem(m))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /inbox?limit=
func (h *Handler) GetInbox(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, err := h.historySvc.Inbox(r.Context(), userID, limit)
	if err != nil {
		slog.Error("handler.GetInbox:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := InboxResponse{Items: make([]MessageItem, 0, len(items))}
	for _, m := range items {
		resp.Items = append(resp.Items, messageItem(m))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /presence/{userId} — best-effort: online means at least one live
// connection on this node right now.
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	otherID := chi.URLParam(r, "userId")

	writeJSON(w, http.StatusOK, PresenceResponse{
		UserID: otherID,
		Online: h.hub.IsOnline(otherID),
	})
}

// DELETE /cache/users/{userId}
func (h *Handler) InvalidateUserCache(w http.ResponseWriter, r *http.Request) {
	if h.userCache == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.userCache.Invalidate(r.Context(), chi.URLParam(r, "userId")); err != nil {
		slog.Error("handler.InvalidateUserCache:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func messageItem(m domain.Message) MessageItem {
	return MessageItem{
		ID:        m.ID,
		Sender:    m.SenderID,
		Receiver:  m.ReceiverID,
		GroupID:   m.GroupID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Read:      m.Read,
		CreatedAt: m.CreatedAt.Truncate(time.Millisecond),
	}
}
