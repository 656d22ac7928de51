package domain

import "fmt"

type CaptureKind string

const (
	CaptureResult CaptureKind = "result"
	CaptureError  CaptureKind = "error"
)

// CaptureEvent is the single terminal event a capture attempt produces.
// Timeouts are not capture events; the session controller owns the timer.
type CaptureEvent struct {
	Kind CaptureKind
	Text string
	Code string
}

func ResultEvent(text string) CaptureEvent {
	return CaptureEvent{Kind: CaptureResult, Text: text}
}

func ErrorEvent(code string) CaptureEvent {
	return CaptureEvent{Kind: CaptureError, Code: code}
}

// Common recognition error codes, named after the browser recognizer's codes.
const (
	CodeAborted      = "aborted"
	CodeAudioCapture = "audio-capture"
	CodeNetwork      = "network"
	CodeNoSpeech     = "no-speech"
	CodeNotAllowed   = "not-allowed"
)

func CaptureErrorMessage(code string) string {
	return fmt.Sprintf("Error: %s", code)
}
