package evaluate

import (
	"testing"

	"github.com/quizforge/quizforge-backend/internal/model"
)

func TestEvaluateMCQ(t *testing.T) {
	q := &model.Question{
		Number:        1,
		Type:          model.QuestionTypeMCQ,
		Marking:       model.MarkingScheme{Correct: 4, Incorrect: -1},
		CorrectOption: "2",
	}

	tests := []struct {
		name       string
		submitted  string
		wantMarks  float64
		wantStatus model.ResultStatus
	}{
		{"correct", "2", 4, model.ResultStatusCorrect},
		{"incorrect", "3", -1, model.ResultStatusIncorrect},
		{"unanswered", "", 0, model.ResultStatusUnanswered},
		{"whitespace only", "   ", 0, model.ResultStatusUnanswered},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ev.Evaluate(q, tt.submitted)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if out.Marks != tt.wantMarks || out.Status != tt.wantStatus {
				t.Errorf("got (%v, %s), want (%v, %s)", out.Marks, out.Status, tt.wantMarks, tt.wantStatus)
			}
		})
	}
}

func TestEvaluateMSQ(t *testing.T) {
	q := &model.Question{
		Number:        2,
		Type:          model.QuestionTypeMSQ,
		Marking:       model.MarkingScheme{Correct: 4, Incorrect: -2, Partial: 1},
		CorrectOption: "1,3,4",
	}

	tests := []struct {
		name       string
		submitted  string
		wantMarks  float64
		wantStatus model.ResultStatus
	}{
		{"exact match", "1,3,4", 4, model.ResultStatusCorrect},
		{"order insensitive", "4,1,3", 4, model.ResultStatusCorrect},
		{"proper subset", "1,3", 2, model.ResultStatusPartial},
		{"single of three", "4", 1, model.ResultStatusPartial},
		{"one wrong pick poisons all", "1,2", -2, model.ResultStatusIncorrect},
		{"all wrong", "2", -2, model.ResultStatusIncorrect},
		{"unanswered", "", 0, model.ResultStatusUnanswered},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ev.Evaluate(q, tt.submitted)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if out.Marks != tt.wantMarks || out.Status != tt.wantStatus {
				t.Errorf("got (%v, %s), want (%v, %s)", out.Marks, out.Status, tt.wantMarks, tt.wantStatus)
			}
		})
	}
}

// A subset with no partial marking defined earns zero but still reads as
// partial, not incorrect: no penalty applies.
func TestEvaluateMSQNoPartialScheme(t *testing.T) {
	q := &model.Question{
		Number:        3,
		Type:          model.QuestionTypeMSQ,
		Marking:       model.MarkingScheme{Correct: 4, Incorrect: -2},
		CorrectOption: "1,3",
	}

	out, err := NewEvaluator().Evaluate(q, "1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out.Marks != 0 || out.Status != model.ResultStatusPartial {
		t.Errorf("got (%v, %s), want (0, partial)", out.Marks, out.Status)
	}
}

func TestEvaluateNAT(t *testing.T) {
	q := &model.Question{
		Number:        4,
		Type:          model.QuestionTypeNAT,
		Marking:       model.MarkingScheme{Correct: 4, Incorrect: 0},
		CorrectOption: "9.8",
	}

	tests := []struct {
		name       string
		submitted  string
		wantMarks  float64
		wantStatus model.ResultStatus
	}{
		{"exact string", "9.8", 4, model.ResultStatusCorrect},
		{"within tolerance", "9.80001", 4, model.ResultStatusCorrect},
		{"trailing zero form", "9.80", 4, model.ResultStatusCorrect},
		{"outside tolerance", "9.9", 0, model.ResultStatusIncorrect},
		{"non numeric", "abc", 0, model.ResultStatusIncorrect},
		{"unanswered", "", 0, model.ResultStatusUnanswered},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ev.Evaluate(q, tt.submitted)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if out.Marks != tt.wantMarks || out.Status != tt.wantStatus {
				t.Errorf("got (%v, %s), want (%v, %s)", out.Marks, out.Status, tt.wantMarks, tt.wantStatus)
			}
		})
	}
}

func TestEvaluateMSM(t *testing.T) {
	q := &model.Question{
		Number:        5,
		Type:          model.QuestionTypeMSM,
		Marking:       model.MarkingScheme{Correct: 4, Incorrect: -1, Partial: 1},
		CorrectOption: "A-P,Q;B-R",
	}

	tests := []struct {
		name       string
		submitted  string
		wantMarks  float64
		wantStatus model.ResultStatus
	}{
		{"exact match", "A-P,Q;B-R", 4, model.ResultStatusCorrect},
		{"column order insensitive", "A-Q,P;B-R", 4, model.ResultStatusCorrect},
		{"one full row matched", "A-P,Q", 1, model.ResultStatusPartial},
		{"incomplete row earns nothing", "A-P", 0, model.ResultStatusPartial},
		{"wrong column poisons all", "A-R", -1, model.ResultStatusIncorrect},
		{"unknown row poisons all", "C-P", -1, model.ResultStatusIncorrect},
		{"full row plus wrong pair", "A-P,Q;B-P", -1, model.ResultStatusIncorrect},
		{"unanswered", "", 0, model.ResultStatusUnanswered},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ev.Evaluate(q, tt.submitted)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if out.Marks != tt.wantMarks || out.Status != tt.wantStatus {
				t.Errorf("got (%v, %s), want (%v, %s)", out.Marks, out.Status, tt.wantMarks, tt.wantStatus)
			}
		})
	}
}

func TestEvaluateMalformedSubmission(t *testing.T) {
	q := &model.Question{
		Number:        6,
		Type:          model.QuestionTypeMCQ,
		Marking:       model.MarkingScheme{Correct: 4, Incorrect: -1},
		CorrectOption: "1",
	}

	if _, err := NewEvaluator().Evaluate(q, "not-a-number"); err == nil {
		t.Error("malformed MCQ submission did not error")
	}
}

func TestEvaluateUnknownType(t *testing.T) {
	q := &model.Question{
		Number:        7,
		Type:          model.QuestionType("ESSAY"),
		CorrectOption: "x",
	}

	if _, err := NewEvaluator().Evaluate(q, "x"); err == nil {
		t.Error("unknown question type did not error")
	}
}
