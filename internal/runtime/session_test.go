package runtime

import (
	"errors"
	"testing"
	"time"

	"github.com/quizforge/quizforge-backend/internal/evaluate"
	"github.com/quizforge/quizforge-backend/internal/model"
)

// fakeClock is a manually advanced clock for deterministic timing.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func sessionPackage() *model.TestPackage {
	return &model.TestPackage{
		TestName:       "Mock Test 1",
		TotalQuestions: 3,
		Questions: []model.Question{
			{
				ID: "q1", Number: 1, Type: model.QuestionTypeMCQ, OptionsCount: "4",
				IdealTime: 60, Marking: model.MarkingScheme{Correct: 4, Incorrect: -1},
				CorrectOption: "2",
			},
			{
				ID: "q2", Number: 2, Type: model.QuestionTypeNAT,
				IdealTime: 60, Marking: model.MarkingScheme{Correct: 4, Incorrect: 0},
				CorrectOption: "9.8",
			},
			{
				ID: "q3", Number: 3, Type: model.QuestionTypeMSQ, OptionsCount: "4",
				IdealTime: 60, Marking: model.MarkingScheme{Correct: 4, Incorrect: -2, Partial: 1},
				CorrectOption: "1,3",
			},
		},
	}
}

func newTestSession(clock *fakeClock) *Session {
	return NewSession(7, sessionPackage(), 30*time.Minute, clock.Now)
}

func TestNewSessionInitialState(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	state := s.State()
	if state.Status != model.AttemptStatusInProgress {
		t.Errorf("status = %s", state.Status)
	}
	if state.CurrentIndex != 0 {
		t.Errorf("current index = %d, want 0", state.CurrentIndex)
	}
	if state.Remaining != 30*60 {
		t.Errorf("remaining = %d, want %d", state.Remaining, 30*60)
	}
	// The first question is on screen, hence visited.
	if state.QuestionStates["q1"] != model.QuestionStateVisited {
		t.Errorf("q1 state = %s, want VISITED", state.QuestionStates["q1"])
	}
	if state.QuestionStates["q2"] != model.QuestionStateNotVisited {
		t.Errorf("q2 state = %s, want NOT_VISITED", state.QuestionStates["q2"])
	}
}

func TestNavigationPreservesAnswersAndTime(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	if err := s.SetAnswer("q1", "2"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	clock.Advance(40 * time.Second)
	if err := s.Visit(1); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	clock.Advance(20 * time.Second)
	if err := s.Visit(0); err != nil {
		t.Fatalf("Visit back: %v", err)
	}

	state := s.State()
	if state.Answers["q1"] != "2" {
		t.Errorf("answer lost on revisit: %q", state.Answers["q1"])
	}
	if state.QuestionTimes["q1"] != 40 {
		t.Errorf("q1 time = %d, want 40", state.QuestionTimes["q1"])
	}
	if state.QuestionTimes["q2"] != 20 {
		t.Errorf("q2 time = %d, want 20", state.QuestionTimes["q2"])
	}
	if state.QuestionStates["q1"] != model.QuestionStateAnswered {
		t.Errorf("q1 state = %s, want ANSWERED", state.QuestionStates["q1"])
	}
}

// Time keeps accruing to the question being revisited, on top of what it
// already accumulated.
func TestRevisitAccumulatesTime(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	clock.Advance(10 * time.Second)
	s.Visit(1)
	clock.Advance(5 * time.Second)
	s.Visit(0)
	clock.Advance(15 * time.Second)

	if got := s.State().QuestionTimes["q1"]; got != 25 {
		t.Errorf("q1 time = %d, want 25", got)
	}
}

func TestClearAnswer(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	s.SetAnswer("q1", "2")
	if err := s.SetAnswer("q1", ""); err != nil {
		t.Fatalf("clear answer: %v", err)
	}

	state := s.State()
	if _, ok := state.Answers["q1"]; ok {
		t.Error("cleared answer still present")
	}
	// Cleared but previously visited: back to VISITED, not NOT_VISITED.
	if state.QuestionStates["q1"] != model.QuestionStateVisited {
		t.Errorf("q1 state = %s, want VISITED", state.QuestionStates["q1"])
	}
}

func TestSetAnswerValidation(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	if err := s.SetAnswer("nope", "1"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("unknown question: err = %v", err)
	}
	if err := s.SetAnswer("q1", "not-a-number"); err == nil {
		t.Error("malformed answer accepted")
	}
}

func TestVisitOutOfRange(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	if err := s.Visit(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("index -1: err = %v", err)
	}
	if err := s.Visit(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("index 3: err = %v", err)
	}
}

func TestToggleMark(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	s.ToggleMark("q2")
	if got := s.State().Marked; len(got) != 1 || got[0] != "q2" {
		t.Errorf("marked = %v, want [q2]", got)
	}
	s.ToggleMark("q2")
	if got := s.State().Marked; len(got) != 0 {
		t.Errorf("marked after untoggle = %v, want empty", got)
	}
}

func TestPauseStopsCountdownAndTimers(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	clock.Advance(60 * time.Second)
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	clock.Advance(5 * time.Minute) // break

	state := s.State()
	if !state.Paused {
		t.Error("not paused")
	}
	if state.Remaining != 29*60 {
		t.Errorf("remaining during pause = %d, want %d", state.Remaining, 29*60)
	}
	if state.QuestionTimes["q1"] != 60 {
		t.Errorf("q1 time during pause = %d, want 60", state.QuestionTimes["q1"])
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	clock.Advance(30 * time.Second)

	state = s.State()
	if state.Paused {
		t.Error("still paused after resume")
	}
	if state.BreakTime != 5*60 {
		t.Errorf("break time = %d, want %d", state.BreakTime, 5*60)
	}
	if state.Remaining != 30*60-90 {
		t.Errorf("remaining after resume = %d, want %d", state.Remaining, 30*60-90)
	}
	if state.QuestionTimes["q1"] != 90 {
		t.Errorf("q1 time after resume = %d, want 90", state.QuestionTimes["q1"])
	}
}

func TestPauseResumeIdempotent(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	if err := s.Resume(); err != nil {
		t.Errorf("resume while running: %v", err)
	}
	s.Pause()
	if err := s.Pause(); err != nil {
		t.Errorf("second pause: %v", err)
	}
}

func TestExpired(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	clock.Advance(29 * time.Minute)
	if s.Expired() {
		t.Error("expired with a minute left")
	}
	clock.Advance(time.Minute)
	if !s.Expired() {
		t.Error("not expired at the deadline")
	}
	if s.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", s.Remaining())
	}
}

// Break time must not consume the countdown, so a long pause never expires
// a session.
func TestPauseDefersExpiry(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	s.Pause()
	clock.Advance(2 * time.Hour)
	if s.Expired() {
		t.Error("session expired while paused")
	}
	s.Resume()
	if s.Expired() {
		t.Error("session expired immediately after a long break")
	}
}

func TestSubmit(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	s.SetAnswer("q1", "2")   // correct: +4
	s.SetAnswer("q3", "1")   // partial: +1
	clock.Advance(90 * time.Second)
	s.Pause()
	clock.Advance(60 * time.Second)
	s.Resume()
	clock.Advance(30 * time.Second)

	result, err := s.Submit(evaluate.NewEvaluator())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if result.Summary.Score != 5 {
		t.Errorf("score = %v, want 5", result.Summary.Score)
	}
	if result.Summary.Correct != 1 || result.Summary.Partial != 1 {
		t.Errorf("counts = %+v", result.Summary)
	}
	if result.TimeTaken != 120 {
		t.Errorf("time taken = %d, want 120 (break excluded)", result.TimeTaken)
	}
	if result.BreakTime != 60 {
		t.Errorf("break time = %d, want 60", result.BreakTime)
	}
	if len(result.Questions) != 3 {
		t.Errorf("question results = %d, want 3", len(result.Questions))
	}
	if result.Answers["q1"] != "2" {
		t.Errorf("answers snapshot = %v", result.Answers)
	}

	if s.State().Status != model.AttemptStatusSubmitted {
		t.Errorf("status = %s, want SUBMITTED", s.State().Status)
	}
}

func TestSubmitIsTerminal(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)
	ev := evaluate.NewEvaluator()

	if _, err := s.Submit(ev); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := s.Submit(ev); !errors.Is(err, ErrSubmitted) {
		t.Errorf("second submit: err = %v", err)
	}
	if err := s.Visit(1); !errors.Is(err, ErrSubmitted) {
		t.Errorf("visit after submit: err = %v", err)
	}
	if err := s.SetAnswer("q1", "1"); !errors.Is(err, ErrSubmitted) {
		t.Errorf("answer after submit: err = %v", err)
	}
	if err := s.Pause(); !errors.Is(err, ErrSubmitted) {
		t.Errorf("pause after submit: err = %v", err)
	}
}

// A forced submission can land while the session is paused; the open break
// is closed first so accounting stays consistent.
func TestSubmitWhilePaused(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock)

	clock.Advance(10 * time.Minute)
	s.Pause()
	clock.Advance(3 * time.Minute)

	result, err := s.Submit(evaluate.NewEvaluator())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.TimeTaken != 10*60 {
		t.Errorf("time taken = %d, want %d", result.TimeTaken, 10*60)
	}
	if result.BreakTime != 3*60 {
		t.Errorf("break time = %d, want %d", result.BreakTime, 3*60)
	}
}
