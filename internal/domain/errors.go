package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCaptureUnavailable = errors.New("speech recognition not available")
	ErrAccessDenied       = errors.New("usage allowance exhausted")
	ErrSessionActive      = errors.New("a session is already in progress")
)

func DeniedMessage(limit int) string {
	return fmt.Sprintf("You have used all %d free trials. No more access available.", limit)
}

const MessageCaptureUnavailable = "Speech recognition is not supported here."
