package application

import (
	"context"

	"voice-assistant/internal/domain"
)

// AnswerSource turns a question into answer text. It never fails: transport
// and upstream problems come back as a fallback answer.
type AnswerSource interface {
	Ask(ctx context.Context, question string) domain.Answer
}
