package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
	"github.com/quizforge/quizforge-backend/internal/store"
)

// HistoryService exposes completed attempts for review and comparison.
// Fresh submissions live in the results collection until the result worker
// lands them in PostgreSQL, so reads check both.
type HistoryService struct {
	attemptRepo *repository.AttemptRepository
	kv          store.KV
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(attemptRepo *repository.AttemptRepository, kv store.KV) *HistoryService {
	return &HistoryService{attemptRepo: attemptRepo, kv: kv}
}

// List returns a user's attempt history, newest first.
func (s *HistoryService) List(ctx context.Context, userID int) ([]repository.HistoryEntry, error) {
	entries, err := s.attemptRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Get returns one attempt's full record for review. Ownership is enforced:
// an attempt belonging to another user reads as not found.
func (s *HistoryService) Get(ctx context.Context, userID int, attemptID uuid.UUID) (*model.AttemptResult, error) {
	result, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		// Not landed yet? The results collection holds fresh submissions.
		result, err = s.getPending(ctx, attemptID)
		if err != nil {
			return nil, fmt.Errorf("get attempt: %w", err)
		}
	}
	if result.UserID != userID {
		return nil, errors.New("get attempt: not found")
	}
	return result, nil
}

func (s *HistoryService) getPending(ctx context.Context, attemptID uuid.UUID) (*model.AttemptResult, error) {
	raw, err := s.kv.Get(ctx, store.ResultsCollection, attemptID.String())
	if err != nil {
		return nil, err
	}
	var result model.AttemptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
