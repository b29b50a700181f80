package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizforge/quizforge-backend/internal/model"
)

// AttemptRepository handles completed-attempt history data access. The full
// result record (per-question verdicts, answers, times) is stored as JSONB
// beside the headline columns used for listing and stats.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts one completed attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.AttemptResult) error {
	detail, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO attempts (id, user_id, test_name, score, total_marks, accuracy, time_taken, submitted_at, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.UserID, a.TestName, a.Summary.Score, a.Summary.TotalMarks,
		a.Summary.Accuracy, a.TimeTaken, a.SubmittedAt, detail,
	)
	return err
}

// CreateBatch inserts a batch of completed attempts inside one transaction.
// Used by the result worker to drain its queue efficiently.
func (r *AttemptRepository) CreateBatch(ctx context.Context, batch []*model.AttemptResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, a := range batch {
		detail, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO attempts (id, user_id, test_name, score, total_marks, accuracy, time_taken, submitted_at, detail)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO NOTHING`,
			a.ID, a.UserID, a.TestName, a.Summary.Score, a.Summary.TotalMarks,
			a.Summary.Accuracy, a.TimeTaken, a.SubmittedAt, detail,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID retrieves one attempt's full record for review.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AttemptResult, error) {
	var detail []byte
	err := r.pool.QueryRow(ctx,
		`SELECT detail FROM attempts WHERE id = $1`, id,
	).Scan(&detail)
	if err != nil {
		return nil, err
	}

	var result model.AttemptResult
	if err := json.Unmarshal(detail, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HistoryEntry is the headline view of a past attempt for list screens.
type HistoryEntry struct {
	ID          uuid.UUID `json:"id"`
	TestName    string    `json:"test_name"`
	Score       float64   `json:"score"`
	TotalMarks  float64   `json:"total_marks"`
	Accuracy    int       `json:"accuracy"`
	TimeTaken   int       `json:"time_taken"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ListByUser retrieves a user's history, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_name, score, total_marks, accuracy, time_taken, submitted_at
		 FROM attempts
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.TestName, &e.Score, &e.TotalMarks, &e.Accuracy, &e.TimeTaken, &e.SubmittedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TestAggregate is the local score distribution for one test name, used by
// the synthetic stats fallback.
type TestAggregate struct {
	Attempts int     `json:"attempts"`
	TopScore float64 `json:"top_score"`
	AvgScore float64 `json:"avg_score"`
	Above    int     `json:"above"` // attempts scoring strictly above the reference score
}

// AggregateByTest computes the local distribution of scores for a test.
func (r *AttemptRepository) AggregateByTest(ctx context.Context, testName string, yourScore float64) (*TestAggregate, error) {
	agg := &TestAggregate{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(MAX(score), 0),
		        COALESCE(AVG(score), 0),
		        COUNT(*) FILTER (WHERE score > $2)
		 FROM attempts
		 WHERE test_name = $1`, testName, yourScore,
	).Scan(&agg.Attempts, &agg.TopScore, &agg.AvgScore, &agg.Above)
	if err != nil {
		return nil, err
	}
	return agg, nil
}
