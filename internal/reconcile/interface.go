package reconcile

import (
	"context"

	"github.com/cleared-dev/rentbook/internal/model"
)

// EventSource yields parsed payment confirmations for one matcher run.
// The matcher depends on this interface, not on a concrete feed.
//
//go:generate mockgen -destination=mocks/mock_source.go -source=interface.go EventSource
type EventSource interface {
	Name() string
	Fetch(ctx context.Context) ([]model.ConfirmationEvent, error)
}
