package application

import "context"

// Notifier tells an operator about allowance changes, e.g. when the last
// free trial was used up.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}
