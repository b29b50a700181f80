package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Answer is the structured form of a submitted or correct answer. The legacy
// string encoding (one field whose grammar depends on the question type) is
// confined to ParseAnswer and Encode; everything downstream works with the
// typed variants.
type Answer interface {
	// Encode renders the canonical legacy string form.
	Encode() string
	// Empty reports whether the answer carries no selection at all.
	Empty() bool
}

// NoAnswer is the absent submission: the question was left blank.
type NoAnswer struct{}

func (NoAnswer) Encode() string { return "" }
func (NoAnswer) Empty() bool    { return true }

// McqAnswer is a single selected option index.
type McqAnswer struct {
	Index int
}

func (a McqAnswer) Encode() string { return strconv.Itoa(a.Index) }
func (a McqAnswer) Empty() bool    { return false }

// MsqAnswer is a set of selected option indices.
type MsqAnswer struct {
	Indices []int // sorted ascending
}

func (a MsqAnswer) Encode() string {
	parts := make([]string, len(a.Indices))
	for i, n := range a.Indices {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func (a MsqAnswer) Empty() bool { return len(a.Indices) == 0 }

// Set returns the indices as a membership set.
func (a MsqAnswer) Set() map[int]struct{} {
	m := make(map[int]struct{}, len(a.Indices))
	for _, n := range a.Indices {
		m[n] = struct{}{}
	}
	return m
}

// NatAnswer is a numeric value kept in its original string form so that
// exact string comparison stays possible alongside numeric tolerance.
type NatAnswer struct {
	Raw string
}

func (a NatAnswer) Encode() string { return a.Raw }
func (a NatAnswer) Empty() bool    { return strings.TrimSpace(a.Raw) == "" }

// Value parses the numeric value. ok is false for non-numeric input.
func (a NatAnswer) Value() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(a.Raw), 64)
	return v, err == nil
}

// MsmAnswer maps row labels to sorted column-label sets.
// Row labels are uppercase letters from 'A'; column labels from 'P'.
type MsmAnswer struct {
	Rows map[string][]string // each value sorted ascending
}

func (a MsmAnswer) Encode() string {
	labels := make([]string, 0, len(a.Rows))
	for row := range a.Rows {
		labels = append(labels, row)
	}
	sort.Strings(labels)

	groups := make([]string, 0, len(labels))
	for _, row := range labels {
		cols := a.Rows[row]
		if len(cols) == 0 {
			continue
		}
		groups = append(groups, row+"-"+strings.Join(cols, ","))
	}
	return strings.Join(groups, ";")
}

func (a MsmAnswer) Empty() bool {
	for _, cols := range a.Rows {
		if len(cols) > 0 {
			return false
		}
	}
	return true
}

// ParseAnswer decodes a legacy answer string for the given question type.
// An empty or whitespace-only string decodes to an empty answer of the
// matching variant, never an error: absence is a legal submission.
func ParseAnswer(qt QuestionType, raw string) (Answer, error) {
	raw = strings.TrimSpace(raw)

	switch qt {
	case QuestionTypeMCQ:
		if raw == "" {
			return NoAnswer{}, nil
		}
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid MCQ answer %q: %w", raw, err)
		}
		return McqAnswer{Index: idx}, nil

	case QuestionTypeMSQ:
		if raw == "" {
			return NoAnswer{}, nil
		}
		parts := strings.Split(raw, ",")
		indices := make([]int, 0, len(parts))
		for _, p := range parts {
			idx, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("invalid MSQ answer %q: %w", raw, err)
			}
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		return MsqAnswer{Indices: indices}, nil

	case QuestionTypeNAT:
		if raw == "" {
			return NoAnswer{}, nil
		}
		return NatAnswer{Raw: raw}, nil

	case QuestionTypeMSM:
		if raw == "" {
			return NoAnswer{}, nil
		}
		rows := make(map[string][]string)
		for _, group := range strings.Split(raw, ";") {
			group = strings.TrimSpace(group)
			if group == "" {
				continue
			}
			rowCols := strings.SplitN(group, "-", 2)
			if len(rowCols) != 2 {
				return nil, fmt.Errorf("invalid MSM group %q", group)
			}
			row := strings.TrimSpace(rowCols[0])
			if row == "" {
				return nil, fmt.Errorf("invalid MSM group %q: missing row label", group)
			}
			var cols []string
			for _, c := range strings.Split(rowCols[1], ",") {
				if c = strings.TrimSpace(c); c != "" {
					cols = append(cols, c)
				}
			}
			if len(cols) == 0 {
				return nil, fmt.Errorf("invalid MSM group %q: no column labels", group)
			}
			sort.Strings(cols)
			rows[row] = cols
		}
		return MsmAnswer{Rows: rows}, nil

	default:
		return nil, fmt.Errorf("unknown question type %q", qt)
	}
}
