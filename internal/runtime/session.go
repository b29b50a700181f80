// Package runtime implements the test-taking session state machine: question
// navigation, per-question elapsed time, visited/marked/answered status, the
// global countdown, pause/resume, and the single terminal submission.
package runtime

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/evaluate"
	"github.com/quizforge/quizforge-backend/internal/model"
)

var (
	// ErrSubmitted is returned for any mutation after the terminal state.
	ErrSubmitted = errors.New("attempt already submitted")
	// ErrUnknownQuestion is returned for an id not in the package.
	ErrUnknownQuestion = errors.New("unknown question id")
	// ErrIndexOutOfRange is returned for navigation outside the paper.
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

// Session is a single in-flight attempt. It is the sole owner of its
// answer/time/visited/marked state. Sessions are not self-locking: the
// owning registry serializes access, which keeps every method a plain
// state transition.
type Session struct {
	ID       uuid.UUID
	UserID   int
	Package  *model.TestPackage
	Duration time.Duration

	now Clock

	startedAt time.Time
	current   int
	answers   map[string]string
	times     map[string]time.Duration
	visited   map[string]struct{}
	marked    map[string]struct{}
	byID      map[string]*model.Question

	paused     bool
	pauseStart time.Time
	breakTotal time.Duration

	// anchor marks when the current question started accruing time.
	anchor time.Time

	submitted bool
	result    *model.AttemptResult
}

// NewSession opens a session over an unsealed package. The first question is
// immediately visited (it is on screen), the countdown starts at the full
// duration, and nothing is paused.
func NewSession(userID int, pkg *model.TestPackage, duration time.Duration, clock Clock) *Session {
	if clock == nil {
		clock = time.Now
	}
	now := clock()

	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Package:   pkg,
		Duration:  duration,
		now:       clock,
		startedAt: now,
		answers:   make(map[string]string),
		times:     make(map[string]time.Duration),
		visited:   make(map[string]struct{}),
		marked:    make(map[string]struct{}),
		byID:      make(map[string]*model.Question, len(pkg.Questions)),
		anchor:    now,
	}
	for i := range pkg.Questions {
		s.byID[pkg.Questions[i].ID] = &pkg.Questions[i]
	}
	if len(pkg.Questions) > 0 {
		s.visited[pkg.Questions[0].ID] = struct{}{}
	}
	return s
}

// Visit navigates to the question at index. Time accrued so far goes to the
// question being left; the new question starts accruing and is marked
// visited. Revisiting is idempotent: answers and accumulated time survive.
func (s *Session) Visit(index int) error {
	if s.submitted {
		return ErrSubmitted
	}
	if index < 0 || index >= len(s.Package.Questions) {
		return ErrIndexOutOfRange
	}
	s.accrue()
	s.current = index
	s.visited[s.Package.Questions[index].ID] = struct{}{}
	return nil
}

// SetAnswer records an answer for a question, or clears it when raw is
// empty. The string must be well-formed for the question's type; visited and
// marked state are unaffected.
func (s *Session) SetAnswer(questionID, raw string) error {
	if s.submitted {
		return ErrSubmitted
	}
	q, ok := s.byID[questionID]
	if !ok {
		return ErrUnknownQuestion
	}

	ans, err := model.ParseAnswer(q.Type, raw)
	if err != nil {
		return fmt.Errorf("question %d: %w", q.Number, err)
	}
	if ans.Empty() {
		delete(s.answers, questionID)
		return nil
	}
	s.answers[questionID] = ans.Encode()
	return nil
}

// ToggleMark flips the review flag, independent of answer state.
func (s *Session) ToggleMark(questionID string) error {
	if s.submitted {
		return ErrSubmitted
	}
	if _, ok := s.byID[questionID]; !ok {
		return ErrUnknownQuestion
	}
	if _, ok := s.marked[questionID]; ok {
		delete(s.marked, questionID)
	} else {
		s.marked[questionID] = struct{}{}
	}
	return nil
}

// Pause suspends the countdown and the per-question timer. Idempotent.
func (s *Session) Pause() error {
	if s.submitted {
		return ErrSubmitted
	}
	if s.paused {
		return nil
	}
	s.accrue()
	s.paused = true
	s.pauseStart = s.now()
	return nil
}

// Resume restores normal ticking and adds the pause span to break time.
func (s *Session) Resume() error {
	if s.submitted {
		return ErrSubmitted
	}
	if !s.paused {
		return nil
	}
	now := s.now()
	s.breakTotal += now.Sub(s.pauseStart)
	s.paused = false
	s.anchor = now
	return nil
}

// Remaining returns the countdown seconds left, never negative. Break time
// does not consume the countdown.
func (s *Session) Remaining() int {
	rem := s.Duration - s.elapsed()
	if rem < 0 {
		rem = 0
	}
	return int(rem / time.Second)
}

// Expired reports whether the countdown has reached zero.
func (s *Session) Expired() bool {
	return !s.submitted && s.elapsed() >= s.Duration
}

// Submitted reports whether the session reached its terminal state.
func (s *Session) Submitted() bool { return s.submitted }

// Result returns the frozen record, or nil before submission.
func (s *Session) Result() *model.AttemptResult { return s.result }

// Submit is the single terminal transition. It freezes the answers/times
// snapshot, evaluates every question, and aggregates the summary. Further
// mutation attempts return ErrSubmitted; Submit itself is not repeatable.
func (s *Session) Submit(ev *evaluate.Evaluator) (*model.AttemptResult, error) {
	if s.submitted {
		return nil, ErrSubmitted
	}
	if s.paused {
		// A forced submission can land mid-pause; close the break first.
		s.breakTotal += s.now().Sub(s.pauseStart)
		s.paused = false
		s.anchor = s.now()
	}
	s.accrue()
	s.submitted = true

	results := make([]evaluate.Evaluated, 0, len(s.Package.Questions))
	qResults := make([]model.QuestionResult, 0, len(s.Package.Questions))
	for i := range s.Package.Questions {
		q := &s.Package.Questions[i]
		out, err := ev.Evaluate(q, s.answers[q.ID])
		if err != nil {
			return nil, fmt.Errorf("evaluate question %d: %w", q.Number, err)
		}
		results = append(results, evaluate.Evaluated{Question: q, Outcome: out})
		qResults = append(qResults, model.QuestionResult{
			QuestionID: q.ID,
			Number:     q.Number,
			Marks:      out.Marks,
			Status:     out.Status,
		})
	}

	elapsed := s.elapsed()
	s.result = &model.AttemptResult{
		ID:            s.ID,
		UserID:        s.UserID,
		TestName:      s.Package.TestName,
		Summary:       evaluate.Aggregate(results),
		Questions:     qResults,
		Answers:       s.answersSnapshot(),
		QuestionTimes: s.timesSnapshot(),
		TimeTaken:     int(elapsed / time.Second),
		BreakTime:     int(s.breakTotal / time.Second),
		SubmittedAt:   s.now(),
	}
	return s.result, nil
}

// State builds the live client view.
func (s *Session) State() model.AttemptState {
	status := model.AttemptStatusInProgress
	if s.submitted {
		status = model.AttemptStatusSubmitted
	}

	states := make(map[string]model.QuestionState, len(s.Package.Questions))
	for i := range s.Package.Questions {
		id := s.Package.Questions[i].ID
		switch {
		case s.answers[id] != "":
			states[id] = model.QuestionStateAnswered
		case s.has(s.visited, id):
			states[id] = model.QuestionStateVisited
		default:
			states[id] = model.QuestionStateNotVisited
		}
	}

	marked := make([]string, 0, len(s.marked))
	for id := range s.marked {
		marked = append(marked, id)
	}
	sort.Strings(marked)

	return model.AttemptState{
		AttemptID:      s.ID,
		TestName:       s.Package.TestName,
		Status:         status,
		CurrentIndex:   s.current,
		Remaining:      s.Remaining(),
		Paused:         s.paused,
		BreakTime:      int(s.breakTotal / time.Second),
		Answers:        s.answersSnapshot(),
		QuestionTimes:  s.timesSnapshot(),
		QuestionStates: states,
		Marked:         marked,
	}
}

// accrue charges the span since anchor to the current question and resets
// the anchor. No-op while paused or after submission.
func (s *Session) accrue() {
	if s.paused || s.submitted {
		return
	}
	now := s.now()
	if len(s.Package.Questions) > 0 {
		id := s.Package.Questions[s.current].ID
		s.times[id] += now.Sub(s.anchor)
	}
	s.anchor = now
}

// elapsed is wall-clock time since start, excluding break time and any
// in-progress pause.
func (s *Session) elapsed() time.Duration {
	end := s.now()
	if s.paused {
		end = s.pauseStart
	}
	return end.Sub(s.startedAt) - s.breakTotal
}

func (s *Session) answersSnapshot() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

func (s *Session) timesSnapshot() map[string]int {
	out := make(map[string]int, len(s.times))
	for k, v := range s.times {
		out[k] = int(v / time.Second)
	}
	// Include in-progress accrual for the current question without mutating.
	if !s.paused && !s.submitted && len(s.Package.Questions) > 0 {
		id := s.Package.Questions[s.current].ID
		out[id] = int((s.times[id] + s.now().Sub(s.anchor)) / time.Second)
	}
	return out
}

func (s *Session) has(set map[string]struct{}, id string) bool {
	_, ok := set[id]
	return ok
}
