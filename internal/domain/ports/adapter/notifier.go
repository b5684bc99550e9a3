package adapter

import "context"

// Notifier delivers operator alerts. Callers treat delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
