package evaluate

import (
	"fmt"
	"math"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// NATTolerance is the absolute difference under which two numeric answers
// are considered equal. Absorbs formatting differences like "4" vs "4.0".
const NATTolerance = 1e-4

// Outcome is the verdict for a single question.
type Outcome struct {
	Marks  float64            `json:"marks"`
	Status model.ResultStatus `json:"status"`
}

// strategy grades one question type.
type strategy interface {
	Grade(q *model.Question, submitted model.Answer) (Outcome, error)
}

// Evaluator routes a question to the strategy for its type. Evaluation is a
// pure function of (question, submitted answer): no state, no side effects.
type Evaluator struct {
	strategies map[model.QuestionType]strategy
}

// NewEvaluator installs the built-in per-type strategies.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		strategies: map[model.QuestionType]strategy{
			model.QuestionTypeMCQ: mcqStrategy{},
			model.QuestionTypeMSQ: msqStrategy{},
			model.QuestionTypeNAT: natStrategy{},
			model.QuestionTypeMSM: msmStrategy{},
		},
	}
}

// Evaluate grades a submitted answer string against the question's correct
// option and marking scheme. An empty submission is always unanswered with
// zero marks, regardless of type.
func (e *Evaluator) Evaluate(q *model.Question, submitted string) (Outcome, error) {
	sub, err := model.ParseAnswer(q.Type, submitted)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse submitted answer: %w", err)
	}
	if sub.Empty() {
		return Outcome{Marks: 0, Status: model.ResultStatusUnanswered}, nil
	}

	s, ok := e.strategies[q.Type]
	if !ok {
		return Outcome{}, fmt.Errorf("no grading strategy for question type %q", q.Type)
	}
	return s.Grade(q, sub)
}

// ─── MCQ ───────────────────────────────────────────────────────────────────

type mcqStrategy struct{}

func (mcqStrategy) Grade(q *model.Question, submitted model.Answer) (Outcome, error) {
	correct, err := model.ParseAnswer(q.Type, q.CorrectOption)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse correct option: %w", err)
	}
	want, ok := correct.(model.McqAnswer)
	if !ok {
		return Outcome{}, fmt.Errorf("correct option %q is not a single index", q.CorrectOption)
	}
	got, ok := submitted.(model.McqAnswer)
	if !ok {
		return Outcome{}, fmt.Errorf("submitted answer is not a single index")
	}

	if got.Index == want.Index {
		return Outcome{Marks: q.Marking.Correct, Status: model.ResultStatusCorrect}, nil
	}
	return Outcome{Marks: q.Marking.Incorrect, Status: model.ResultStatusIncorrect}, nil
}

// ─── NAT ───────────────────────────────────────────────────────────────────

type natStrategy struct{}

func (natStrategy) Grade(q *model.Question, submitted model.Answer) (Outcome, error) {
	got, ok := submitted.(model.NatAnswer)
	if !ok {
		return Outcome{}, fmt.Errorf("submitted answer is not numeric")
	}
	want := model.NatAnswer{Raw: q.CorrectOption}

	if got.Raw == want.Raw {
		return Outcome{Marks: q.Marking.Correct, Status: model.ResultStatusCorrect}, nil
	}
	gv, gOK := got.Value()
	wv, wOK := want.Value()
	if gOK && wOK && math.Abs(gv-wv) < NATTolerance {
		return Outcome{Marks: q.Marking.Correct, Status: model.ResultStatusCorrect}, nil
	}
	return Outcome{Marks: q.Marking.Incorrect, Status: model.ResultStatusIncorrect}, nil
}

// ─── MSQ ───────────────────────────────────────────────────────────────────

type msqStrategy struct{}

func (msqStrategy) Grade(q *model.Question, submitted model.Answer) (Outcome, error) {
	correct, err := model.ParseAnswer(q.Type, q.CorrectOption)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse correct option: %w", err)
	}
	want, ok := correct.(model.MsqAnswer)
	if !ok {
		return Outcome{}, fmt.Errorf("correct option %q is not an index set", q.CorrectOption)
	}
	got, ok := submitted.(model.MsqAnswer)
	if !ok {
		return Outcome{}, fmt.Errorf("submitted answer is not an index set")
	}

	wantSet := want.Set()
	gotSet := got.Set()

	// Any wrong pick contaminates the whole answer: full negative marks.
	for idx := range gotSet {
		if _, ok := wantSet[idx]; !ok {
			return Outcome{Marks: q.Marking.Incorrect, Status: model.ResultStatusIncorrect}, nil
		}
	}

	if len(gotSet) == len(wantSet) {
		return Outcome{Marks: q.Marking.Correct, Status: model.ResultStatusCorrect}, nil
	}

	// Non-empty proper subset, no wrong picks: partial outcome. Not counted
	// as correct for accuracy, not penalized as incorrect.
	marks := 0.0
	if q.Marking.Partial > 0 {
		marks = q.Marking.Partial * float64(len(gotSet))
	}
	return Outcome{Marks: marks, Status: model.ResultStatusPartial}, nil
}

// ─── MSM ───────────────────────────────────────────────────────────────────

// msmStrategy grades matrix matches per row: a row scores only when its
// submitted column set equals the correct column set exactly. Any submitted
// pair outside the correct key contaminates the whole answer, mirroring the
// MSQ rule. A clean subset of fully matched rows earns partial credit per
// matched row when the scheme defines it.
type msmStrategy struct{}

func (msmStrategy) Grade(q *model.Question, submitted model.Answer) (Outcome, error) {
	correct, err := model.ParseAnswer(q.Type, q.CorrectOption)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse correct option: %w", err)
	}
	want, ok := correct.(model.MsmAnswer)
	if !ok {
		return Outcome{}, fmt.Errorf("correct option %q is not a matrix match", q.CorrectOption)
	}
	got, ok := submitted.(model.MsmAnswer)
	if !ok {
		return Outcome{}, fmt.Errorf("submitted answer is not a matrix match")
	}

	fullRows := 0
	for row, gotCols := range got.Rows {
		wantCols, ok := want.Rows[row]
		if !ok {
			return Outcome{Marks: q.Marking.Incorrect, Status: model.ResultStatusIncorrect}, nil
		}
		wantSet := make(map[string]struct{}, len(wantCols))
		for _, c := range wantCols {
			wantSet[c] = struct{}{}
		}
		for _, c := range gotCols {
			if _, ok := wantSet[c]; !ok {
				return Outcome{Marks: q.Marking.Incorrect, Status: model.ResultStatusIncorrect}, nil
			}
		}
		if len(gotCols) == len(wantCols) {
			fullRows++
		}
	}

	if fullRows == len(want.Rows) && len(got.Rows) == len(want.Rows) {
		return Outcome{Marks: q.Marking.Correct, Status: model.ResultStatusCorrect}, nil
	}

	marks := 0.0
	if q.Marking.Partial > 0 {
		marks = q.Marking.Partial * float64(fullRows)
	}
	return Outcome{Marks: marks, Status: model.ResultStatusPartial}, nil
}
