package service

import (
	"context"

	"github.com/chatwave/dispatch-service/internal/domain"
	"github.com/chatwave/dispatch-service/internal/postgres"
)

type HistoryService struct {
	messages *postgres.MessageRepository
}

func NewHistoryService(messages *postgres.MessageRepository) *HistoryService {
	return &HistoryService{messages: messages}
}

// Between returns the direct conversation between two users, newest first,
// with cursor pagination.
func (s *HistoryService) Between(ctx context.Context, userID, otherID, after string, limit int) ([]domain.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.messages.History(ctx, userID, otherID, after, limit)
}

// Inbox returns the latest message per conversation for the user.
func (s *HistoryService) Inbox(ctx context.Context, userID string, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messages.Inbox(ctx, userID, limit)
}
