package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
)

// QuestionState is the per-question status exposed to clients: the classic
// palette coloring of an exam UI.
type QuestionState string

const (
	QuestionStateNotVisited QuestionState = "NOT_VISITED"
	QuestionStateVisited    QuestionState = "VISITED"
	QuestionStateAnswered   QuestionState = "ANSWERED"
)

// ResultStatus is the per-question evaluation verdict.
type ResultStatus string

const (
	ResultStatusCorrect    ResultStatus = "correct"
	ResultStatusIncorrect  ResultStatus = "incorrect"
	ResultStatusPartial    ResultStatus = "partial"
	ResultStatusUnanswered ResultStatus = "unanswered"
)

// QuestionResult is one evaluated question inside a submitted attempt.
type QuestionResult struct {
	QuestionID string       `json:"question_id"`
	Number     int          `json:"number"`
	Marks      float64      `json:"marks"`
	Status     ResultStatus `json:"status"`
}

// ResultSummary is the aggregate over all question results of an attempt.
// Score carries display rounding (2 decimals); RawScore is the unrounded sum
// and is what any further arithmetic must use. Percentage is preformatted to
// two decimals, "0.00" when TotalMarks is zero.
type ResultSummary struct {
	Score      float64 `json:"score"`
	RawScore   float64 `json:"-"`
	TotalMarks float64 `json:"total_marks"`
	Percentage string  `json:"percentage"`
	Accuracy   int     `json:"accuracy"`
	Attempted  int     `json:"attempted"`
	Correct    int     `json:"correct"`
	Incorrect  int     `json:"incorrect"`
	Partial    int     `json:"partial"`
}

// AttemptResult is the full frozen record of a submitted attempt: the
// aggregate plus everything needed to reconstruct a review later.
type AttemptResult struct {
	ID            uuid.UUID        `json:"id"`
	UserID        int              `json:"user_id"`
	TestName      string           `json:"test_name"`
	Summary       ResultSummary    `json:"summary"`
	Questions     []QuestionResult `json:"questions"`
	Answers       map[string]string `json:"answers"`        // question id -> legacy answer string
	QuestionTimes map[string]int    `json:"question_times"` // question id -> elapsed seconds
	TimeTaken     int              `json:"time_taken"`      // seconds, break time excluded
	BreakTime     int              `json:"break_time"`      // seconds spent paused
	SubmittedAt   time.Time        `json:"submitted_at"`
}

// AttemptState is the live view of a running attempt returned to clients on
// every state read and pushed over the websocket stream.
type AttemptState struct {
	AttemptID      uuid.UUID                `json:"attempt_id"`
	TestName       string                   `json:"test_name"`
	Status         AttemptStatus            `json:"status"`
	CurrentIndex   int                      `json:"current_index"`
	Remaining      int                      `json:"remaining_seconds"`
	Paused         bool                     `json:"paused"`
	BreakTime      int                      `json:"break_seconds"`
	Answers        map[string]string        `json:"answers"`
	QuestionTimes  map[string]int           `json:"question_times"`
	QuestionStates map[string]QuestionState `json:"question_states"`
	Marked         []string                 `json:"marked"`
}

// Attempt runtime requests.
type (
	// StartAttemptRequest opens a runtime session over a previously
	// unsealed package held in the open-package cache.
	StartAttemptRequest struct {
		PackageID       string `json:"package_id" binding:"required"`
		DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
	}

	// VisitRequest navigates to a question by zero-based index.
	VisitRequest struct {
		Index int `json:"index" binding:"min=0"`
	}

	// AnswerRequest records or clears (empty string) an answer.
	AnswerRequest struct {
		QuestionID string `json:"question_id" binding:"required"`
		Answer     string `json:"answer"`
	}

	// MarkRequest toggles the review flag on a question.
	MarkRequest struct {
		QuestionID string `json:"question_id" binding:"required"`
	}
)
