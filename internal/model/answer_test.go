package model

import (
	"reflect"
	"testing"
)

func TestParseAnswerEmptyIsLegal(t *testing.T) {
	for _, qt := range []QuestionType{QuestionTypeMCQ, QuestionTypeMSQ, QuestionTypeNAT, QuestionTypeMSM} {
		for _, raw := range []string{"", "   "} {
			ans, err := ParseAnswer(qt, raw)
			if err != nil {
				t.Errorf("%s %q: unexpected error %v", qt, raw, err)
				continue
			}
			if !ans.Empty() {
				t.Errorf("%s %q: parsed as non-empty %#v", qt, raw, ans)
			}
		}
	}
}

func TestParseAnswerMCQ(t *testing.T) {
	ans, err := ParseAnswer(QuestionTypeMCQ, " 2 ")
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	if got := ans.(McqAnswer).Index; got != 2 {
		t.Errorf("index = %d, want 2", got)
	}
	if ans.Encode() != "2" {
		t.Errorf("Encode = %q, want \"2\"", ans.Encode())
	}

	if _, err := ParseAnswer(QuestionTypeMCQ, "two"); err == nil {
		t.Error("non-numeric MCQ accepted")
	}
}

func TestParseAnswerMSQCanonicalizes(t *testing.T) {
	ans, err := ParseAnswer(QuestionTypeMSQ, "4, 1,3")
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	msq := ans.(MsqAnswer)
	if !reflect.DeepEqual(msq.Indices, []int{1, 3, 4}) {
		t.Errorf("indices = %v, want sorted [1 3 4]", msq.Indices)
	}
	if ans.Encode() != "1,3,4" {
		t.Errorf("Encode = %q, want \"1,3,4\"", ans.Encode())
	}

	if _, err := ParseAnswer(QuestionTypeMSQ, "1,x"); err == nil {
		t.Error("malformed MSQ accepted")
	}
}

func TestParseAnswerNAT(t *testing.T) {
	ans, err := ParseAnswer(QuestionTypeNAT, "9.80")
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	nat := ans.(NatAnswer)
	if nat.Raw != "9.80" {
		t.Errorf("raw = %q, original form must be kept", nat.Raw)
	}
	v, ok := nat.Value()
	if !ok || v != 9.8 {
		t.Errorf("Value = (%v, %v), want (9.8, true)", v, ok)
	}

	// Non-numeric NAT input parses; only Value reports it.
	junk, err := ParseAnswer(QuestionTypeNAT, "abc")
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	if _, ok := junk.(NatAnswer).Value(); ok {
		t.Error("non-numeric input reported a value")
	}
}

func TestParseAnswerMSM(t *testing.T) {
	ans, err := ParseAnswer(QuestionTypeMSM, "B-R;A-Q,P")
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	msm := ans.(MsmAnswer)
	want := map[string][]string{"A": {"P", "Q"}, "B": {"R"}}
	if !reflect.DeepEqual(msm.Rows, want) {
		t.Errorf("rows = %v, want %v", msm.Rows, want)
	}
	// Canonical encoding: rows sorted, columns sorted.
	if got := ans.Encode(); got != "A-P,Q;B-R" {
		t.Errorf("Encode = %q, want \"A-P,Q;B-R\"", got)
	}

	for _, bad := range []string{"A", "A-", "-P"} {
		if _, err := ParseAnswer(QuestionTypeMSM, bad); err == nil {
			t.Errorf("malformed MSM %q accepted", bad)
		}
	}
}

func TestParseAnswerUnknownType(t *testing.T) {
	if _, err := ParseAnswer(QuestionType("ESSAY"), "text"); err == nil {
		t.Error("unknown question type accepted")
	}
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{
		Number:        1,
		Type:          QuestionTypeMCQ,
		OptionsCount:  "4",
		IdealTime:     60,
		Marking:       MarkingScheme{Correct: 4, Incorrect: -1},
		CorrectOption: "2",
	}

	tests := []struct {
		name    string
		mutate  func(*Question)
		wantErr bool
	}{
		{"valid mcq", func(q *Question) {}, false},
		{"missing type", func(q *Question) { q.Type = "" }, true},
		{"zero ideal time", func(q *Question) { q.IdealTime = 0 }, true},
		{"negative full award", func(q *Question) { q.Marking.Correct = -1 }, true},
		{"empty correct option", func(q *Question) { q.CorrectOption = "" }, true},
		{"malformed correct option", func(q *Question) { q.CorrectOption = "x" }, true},
		{"bad options count", func(q *Question) { q.OptionsCount = "four" }, true},
		{"valid msm", func(q *Question) {
			q.Type = QuestionTypeMSM
			q.OptionsCount = "2x3"
			q.CorrectOption = "A-P;B-Q"
		}, false},
		{"msm bad shape", func(q *Question) {
			q.Type = QuestionTypeMSM
			q.OptionsCount = "4"
			q.CorrectOption = "A-P"
		}, true},
		{"nat ignores options count", func(q *Question) {
			q.Type = QuestionTypeNAT
			q.OptionsCount = ""
			q.CorrectOption = "9.8"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mutate(&q)
			err := q.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseMatrixShape(t *testing.T) {
	rows, cols, err := ParseMatrixShape("3x4")
	if err != nil || rows != 3 || cols != 4 {
		t.Errorf("ParseMatrixShape(3x4) = (%d, %d, %v)", rows, cols, err)
	}
	if _, _, err := ParseMatrixShape("3X4"); err != nil {
		t.Errorf("uppercase X rejected: %v", err)
	}
	for _, bad := range []string{"", "3", "x4", "3x", "0x2", "axb"} {
		if _, _, err := ParseMatrixShape(bad); err == nil {
			t.Errorf("ParseMatrixShape(%q) accepted", bad)
		}
	}
}
