package evaluate

import (
	"testing"

	"github.com/quizforge/quizforge-backend/internal/model"
)

func q(marks float64) *model.Question {
	return &model.Question{Marking: model.MarkingScheme{Correct: marks}}
}

func TestAggregateMixedOutcomes(t *testing.T) {
	results := []Evaluated{
		{Question: q(4), Outcome: Outcome{Marks: 4, Status: model.ResultStatusCorrect}},
		{Question: q(4), Outcome: Outcome{Marks: -1, Status: model.ResultStatusIncorrect}},
		{Question: q(4), Outcome: Outcome{Marks: 2, Status: model.ResultStatusPartial}},
		{Question: q(4), Outcome: Outcome{Marks: 0, Status: model.ResultStatusUnanswered}},
	}

	sum := Aggregate(results)

	if sum.TotalMarks != 16 {
		t.Errorf("TotalMarks = %v, want 16", sum.TotalMarks)
	}
	if sum.RawScore != 5 {
		t.Errorf("RawScore = %v, want 5", sum.RawScore)
	}
	if sum.Score != 5 {
		t.Errorf("Score = %v, want 5", sum.Score)
	}
	if sum.Attempted != 3 {
		t.Errorf("Attempted = %d, want 3", sum.Attempted)
	}
	if sum.Correct != 1 || sum.Incorrect != 1 || sum.Partial != 1 {
		t.Errorf("counts = (%d,%d,%d), want (1,1,1)", sum.Correct, sum.Incorrect, sum.Partial)
	}
	// 1 correct of 3 attempted -> 33%.
	if sum.Accuracy != 33 {
		t.Errorf("Accuracy = %d, want 33", sum.Accuracy)
	}
	// 5 of 16 -> 31.25%.
	if sum.Percentage != "31.25" {
		t.Errorf("Percentage = %q, want \"31.25\"", sum.Percentage)
	}
}

func TestAggregateScoreRounding(t *testing.T) {
	results := []Evaluated{
		{Question: q(4), Outcome: Outcome{Marks: 1.0 / 3.0, Status: model.ResultStatusPartial}},
	}

	sum := Aggregate(results)
	if sum.Score != 0.33 {
		t.Errorf("Score = %v, want 0.33", sum.Score)
	}
	if sum.RawScore == sum.Score {
		t.Error("RawScore must keep the unrounded value")
	}
}

// Nothing attempted: accuracy is defined as zero, not a division error.
func TestAggregateNothingAttempted(t *testing.T) {
	results := []Evaluated{
		{Question: q(4), Outcome: Outcome{Status: model.ResultStatusUnanswered}},
		{Question: q(4), Outcome: Outcome{Status: model.ResultStatusUnanswered}},
	}

	sum := Aggregate(results)
	if sum.Accuracy != 0 {
		t.Errorf("Accuracy = %d, want 0", sum.Accuracy)
	}
	if sum.Percentage != "0.00" {
		t.Errorf("Percentage = %q, want \"0.00\"", sum.Percentage)
	}
}

// A zero-mark paper cannot divide by TotalMarks; percentage degrades to "0.00".
func TestAggregateZeroTotalMarks(t *testing.T) {
	sum := Aggregate(nil)
	if sum.Percentage != "0.00" {
		t.Errorf("Percentage = %q, want \"0.00\"", sum.Percentage)
	}
	if sum.Score != 0 || sum.TotalMarks != 0 {
		t.Errorf("empty aggregate = %+v, want zero values", sum)
	}
}
