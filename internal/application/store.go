package application

import "context"

// UsageStore persists the trial counter. Implementations only load and save;
// the limit logic lives in UsageGate.
type UsageStore interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, used int) error
}
