package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionVisit  Action = "visit"
	ActionAnswer Action = "answer"
	ActionMark   Action = "mark"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// VisitRequest navigates to a question by zero-based index.
type VisitRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// AnswerRequest records or clears (empty string) a single answer.
type AnswerRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Answer string `json:"ans"`
}

// MarkRequest toggles the review flag on a question.
type MarkRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
}

// SubmitRequest finishes and grades the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError Event = "error"
	EventState Event = "state"
	EventTick  Event = "tick"
	EventDone  Event = "done"
	EventPong  Event = "pong"
)

// StateResponse carries the full attempt state after a transition.
type StateResponse struct {
	Event Event       `json:"event"`
	State interface{} `json:"state"`
}

// TickResponse is the once-per-second countdown push.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining_seconds"`
	Paused    bool  `json:"paused"`
}

// DoneResponse announces the terminal submission with the headline score.
type DoneResponse struct {
	Event  Event   `json:"event"`
	Score  float64 `json:"score"`
	Forced bool    `json:"forced"` // true when the countdown expired
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
