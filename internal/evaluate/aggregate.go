package evaluate

import (
	"fmt"
	"math"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// Evaluated pairs a question with its graded outcome.
type Evaluated struct {
	Question *model.Question
	Outcome  Outcome
}

// Aggregate folds per-question outcomes into the attempt-level summary.
// Pure and deterministic: the same input always yields the same aggregate.
//
// TotalMarks is the maximum achievable (sum of every question's full award),
// not the achieved sum. Score carries display rounding only; RawScore keeps
// the exact sum for any further arithmetic.
func Aggregate(results []Evaluated) model.ResultSummary {
	var sum model.ResultSummary

	for _, r := range results {
		sum.TotalMarks += r.Question.Marking.Correct
		sum.RawScore += r.Outcome.Marks

		switch r.Outcome.Status {
		case model.ResultStatusCorrect:
			sum.Correct++
			sum.Attempted++
		case model.ResultStatusIncorrect:
			sum.Incorrect++
			sum.Attempted++
		case model.ResultStatusPartial:
			sum.Partial++
			sum.Attempted++
		case model.ResultStatusUnanswered:
			// not attempted
		}
	}

	sum.Score = math.Round(sum.RawScore*100) / 100

	if sum.Attempted > 0 {
		sum.Accuracy = int(math.Round(float64(sum.Correct) / float64(sum.Attempted) * 100))
	}

	if sum.TotalMarks > 0 {
		sum.Percentage = fmt.Sprintf("%.2f", sum.RawScore/sum.TotalMarks*100)
	} else {
		sum.Percentage = "0.00"
	}

	return sum
}
