package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/evaluate"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/runtime"
	"github.com/quizforge/quizforge-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Common attempt errors.
var (
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptAlreadyActive = errors.New("another attempt is already in progress")
)

// AttemptService owns all in-flight attempt sessions. Sessions live in
// process memory (they are ephemeral by design — an attempt does not survive
// a server restart); completed results go to the persist queue and from
// there to PostgreSQL.
type AttemptService struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*runtime.Session

	pkgService *PackageService
	evaluator  *evaluate.Evaluator
	rdb        *redis.Client
	kv         store.KV
	log        zerolog.Logger
	clock      runtime.Clock
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	pkgService *PackageService,
	evaluator *evaluate.Evaluator,
	rdb *redis.Client,
	kv store.KV,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		sessions:   make(map[uuid.UUID]*runtime.Session),
		pkgService: pkgService,
		evaluator:  evaluator,
		rdb:        rdb,
		kv:         kv,
		log:        log.With().Str("component", "attempt_service").Logger(),
		clock:      time.Now,
	}
}

// Start opens a runtime session over a previously unsealed package. One
// active attempt per user: starting a second one is rejected until the
// first is submitted.
func (s *AttemptService) Start(ctx context.Context, userID int, req *model.StartAttemptRequest) (model.AttemptState, error) {
	activeKey := config.CacheKey.UserActiveAttemptKey(userID)
	existing, err := s.rdb.Get(ctx, activeKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.AttemptState{}, fmt.Errorf("check active attempt: %w", err)
	}
	if existing != "" {
		if id, parseErr := uuid.Parse(existing); parseErr == nil {
			s.mu.Lock()
			_, alive := s.sessions[id]
			s.mu.Unlock()
			if alive {
				return model.AttemptState{}, ErrAttemptAlreadyActive
			}
		}
		// Stale key from a dead session — fall through and replace it.
	}

	pkg, err := s.pkgService.GetOpenPackage(ctx, req.PackageID)
	if err != nil {
		return model.AttemptState{}, err
	}

	session := runtime.NewSession(userID, pkg, time.Duration(req.DurationMinutes)*time.Minute, s.clock)

	s.mu.Lock()
	s.sessions[session.ID] = session
	state := session.State()
	s.mu.Unlock()

	if err := s.rdb.Set(ctx, activeKey, session.ID.String(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache active attempt id")
	}

	s.log.Info().
		Str("attempt_id", session.ID.String()).
		Int("user_id", userID).
		Str("test_name", pkg.TestName).
		Msg("Attempt started")

	return state, nil
}

// State returns the live view of an attempt.
func (s *AttemptService) State(attemptID uuid.UUID, userID int) (model.AttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(attemptID, userID)
	if err != nil {
		return model.AttemptState{}, err
	}
	return session.State(), nil
}

// Visit navigates an attempt to the question at index.
func (s *AttemptService) Visit(attemptID uuid.UUID, userID, index int) (model.AttemptState, error) {
	return s.mutate(attemptID, userID, func(session *runtime.Session) error {
		return session.Visit(index)
	})
}

// Answer records or clears an answer.
func (s *AttemptService) Answer(attemptID uuid.UUID, userID int, questionID, answer string) (model.AttemptState, error) {
	return s.mutate(attemptID, userID, func(session *runtime.Session) error {
		return session.SetAnswer(questionID, answer)
	})
}

// ToggleMark flips the review flag on a question.
func (s *AttemptService) ToggleMark(attemptID uuid.UUID, userID int, questionID string) (model.AttemptState, error) {
	return s.mutate(attemptID, userID, func(session *runtime.Session) error {
		return session.ToggleMark(questionID)
	})
}

// Pause suspends the attempt's timers.
func (s *AttemptService) Pause(attemptID uuid.UUID, userID int) (model.AttemptState, error) {
	return s.mutate(attemptID, userID, func(session *runtime.Session) error {
		return session.Pause()
	})
}

// Resume restores the attempt's timers.
func (s *AttemptService) Resume(attemptID uuid.UUID, userID int) (model.AttemptState, error) {
	return s.mutate(attemptID, userID, func(session *runtime.Session) error {
		return session.Resume()
	})
}

// Submit performs the terminal transition, queues the frozen result for
// persistence, and drops the session from the registry.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, userID int) (*model.AttemptResult, error) {
	s.mu.Lock()
	session, err := s.get(attemptID, userID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	result, err := session.Submit(s.evaluator)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	delete(s.sessions, attemptID)
	s.mu.Unlock()

	s.finishAttempt(ctx, result)
	return result, nil
}

// Reap force-submits every expired session. Called once per second by the
// reaper worker; the worker is cancelled before shutdown drops sessions, so
// no tick can land on a torn-down registry.
func (s *AttemptService) Reap(ctx context.Context) {
	s.mu.Lock()
	var expired []*runtime.Session
	for _, session := range s.sessions {
		if session.Expired() {
			expired = append(expired, session)
		}
	}

	var results []*model.AttemptResult
	for _, session := range expired {
		result, err := session.Submit(s.evaluator)
		if err != nil {
			s.log.Error().Err(err).Str("attempt_id", session.ID.String()).Msg("Forced submission failed")
			continue
		}
		delete(s.sessions, session.ID)
		results = append(results, result)
	}
	s.mu.Unlock()

	for _, result := range results {
		s.log.Info().Str("attempt_id", result.ID.String()).Msg("Countdown expired — attempt force-submitted")
		s.finishAttempt(ctx, result)
	}
}

// finishAttempt clears the active-attempt key, drops the frozen result into
// the results collection so it is readable immediately, and hands it to the
// persist queue. Losing a completed result is the one failure this service
// must never swallow silently, so every write failure is surfaced in logs.
func (s *AttemptService) finishAttempt(ctx context.Context, result *model.AttemptResult) {
	s.rdb.Del(ctx, config.CacheKey.UserActiveAttemptKey(result.UserID))

	raw, err := json.Marshal(result)
	if err != nil {
		s.log.Error().Err(err).Str("attempt_id", result.ID.String()).Msg("Failed to marshal result")
		return
	}
	if err := s.kv.Set(ctx, store.ResultsCollection, result.ID.String(), raw); err != nil {
		s.log.Error().Err(err).Str("attempt_id", result.ID.String()).Msg("Failed to store result record")
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Str("attempt_id", result.ID.String()).Msg("Failed to enqueue result for persistence")
	}
}

// mutate runs a state transition under the registry lock and returns the
// post-transition view.
func (s *AttemptService) mutate(attemptID uuid.UUID, userID int, fn func(*runtime.Session) error) (model.AttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(attemptID, userID)
	if err != nil {
		return model.AttemptState{}, err
	}
	if err := fn(session); err != nil {
		return model.AttemptState{}, err
	}
	return session.State(), nil
}

// get looks up a session and enforces ownership. Callers hold s.mu.
func (s *AttemptService) get(attemptID uuid.UUID, userID int) (*runtime.Session, error) {
	session, ok := s.sessions[attemptID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if session.UserID != userID {
		return nil, ErrAttemptNotFound // do not leak other users' attempt ids
	}
	return session, nil
}
