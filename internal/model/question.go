package model

import (
	"fmt"
	"strconv"
	"strings"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	// QuestionTypeMCQ is single-choice: exactly one correct option index.
	QuestionTypeMCQ QuestionType = "MCQ"
	// QuestionTypeMSQ is multi-select: one or more correct option indices.
	QuestionTypeMSQ QuestionType = "MSQ"
	// QuestionTypeNAT is numerical answer type: a free-form numeric value.
	QuestionTypeNAT QuestionType = "NAT"
	// QuestionTypeMSM is matrix-style matching: rows paired with column sets.
	QuestionTypeMSM QuestionType = "MSM"
)

// MarkingScheme defines how a question is scored.
// Correct is the full award; Incorrect is the penalty (negative or zero by
// convention); Partial, when positive, is the per-item award for MSQ/MSM
// proper subsets.
type MarkingScheme struct {
	Correct   float64 `json:"correct" binding:"min=0"`
	Incorrect float64 `json:"incorrect"`
	Partial   float64 `json:"partial,omitempty"`
}

// CropRect is a normalized rectangle on a source page. All four coordinates
// are fractions of the rendered page size in [0,1].
type CropRect struct {
	Page   int     `json:"page" binding:"min=1"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Question is a single authored question. Immutable once packaged.
type Question struct {
	ID            string        `json:"id"`
	Number        int           `json:"number"`
	Subject       string        `json:"subject"`
	Section       string        `json:"section,omitempty"`
	Topic         string        `json:"topic,omitempty"`
	Difficulty    string        `json:"difficulty,omitempty"`
	Skill         string        `json:"skill,omitempty"`
	Type          QuestionType  `json:"type"`
	OptionsCount  string        `json:"options_count,omitempty"` // int for MCQ/MSQ, "RxC" for MSM, unused for NAT
	IdealTime     int           `json:"ideal_time"`              // seconds
	Marking       MarkingScheme `json:"marking_scheme"`
	CorrectOption string        `json:"correct_option"`
	Crop          *CropRect     `json:"crop,omitempty"` // authoring only, dropped at pack time
	ImagePath     string        `json:"image_path,omitempty"`
}

// Validate checks that the question is exportable: required fields present
// and CorrectOption well-formed for the declared type. Draft saving never
// calls this; sealing always does.
func (q *Question) Validate() error {
	if q.Type == "" {
		return fmt.Errorf("question %d: missing type", q.Number)
	}
	if q.IdealTime <= 0 {
		return fmt.Errorf("question %d: ideal_time must be positive", q.Number)
	}
	if q.Marking.Correct < 0 {
		return fmt.Errorf("question %d: marking_scheme.correct must be >= 0", q.Number)
	}

	ans, err := ParseAnswer(q.Type, q.CorrectOption)
	if err != nil {
		return fmt.Errorf("question %d: %w", q.Number, err)
	}
	if ans.Empty() {
		return fmt.Errorf("question %d: correct_option is empty", q.Number)
	}

	switch q.Type {
	case QuestionTypeMCQ, QuestionTypeMSQ:
		if _, err := strconv.Atoi(q.OptionsCount); err != nil {
			return fmt.Errorf("question %d: options_count must be an integer: %w", q.Number, err)
		}
	case QuestionTypeMSM:
		if _, _, err := ParseMatrixShape(q.OptionsCount); err != nil {
			return fmt.Errorf("question %d: %w", q.Number, err)
		}
	}
	return nil
}

// ParseMatrixShape parses an "RxC" matrix descriptor such as "3x4".
func ParseMatrixShape(s string) (rows, cols int, err error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("options_count %q is not an RxC matrix shape", s)
	}
	rows, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid matrix rows in %q", s)
	}
	cols, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid matrix cols in %q", s)
	}
	if rows < 1 || cols < 1 {
		return 0, 0, fmt.Errorf("matrix shape %q must be at least 1x1", s)
	}
	return rows, cols, nil
}
