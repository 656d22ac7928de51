package domain

import "time"

type Status string

const (
	StatusIdle           Status = "idle"
	StatusListening      Status = "listening"
	StatusAwaitingAnswer Status = "awaiting-answer"
	StatusSpeaking       Status = "speaking"
	StatusError          Status = "error"
	StatusTimedOut       Status = "timed-out"
)

type Outcome string

const (
	OutcomeNone               Outcome = ""
	OutcomeAnswered           Outcome = "answered"
	OutcomeCaptureError       Outcome = "capture-error"
	OutcomeCaptureUnavailable Outcome = "capture-unavailable"
	OutcomeNoInput            Outcome = "no-input"
	OutcomeCancelled          Outcome = "cancelled"
)

// Session is one listen, answer, speak attempt. The zero value is an idle
// session that has never been triggered.
type Session struct {
	ID            string    `json:"id,omitempty"`
	Status        Status    `json:"status"`
	Transcript    string    `json:"transcript"`
	Answer        string    `json:"answer"`
	StatusMessage string    `json:"status_message"`
	Outcome       Outcome   `json:"outcome,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	EndedAt       time.Time `json:"ended_at,omitempty"`
}

func (s Session) Active() bool {
	switch s.Status {
	case StatusListening, StatusAwaitingAnswer, StatusSpeaking:
		return true
	default:
		return false
	}
}

type Answer struct {
	Text     string
	Fallback bool
}

const (
	MessageListening = "Listening..."
	MessageNoInput   = "No input received!"
	MessageFallback  = "Sorry, I couldn't process your request. Please try again."
	MessageDevReset  = "Developer: App reset"
)
