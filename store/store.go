package store

import (
	"context"

	"github.com/killrazor/kevwatch/throttle"
)

// Store persists the throttle state between runs. A missing record is
// a normal first-run condition: Load returns (nil, nil) and the caller
// substitutes defaults.
type Store interface {
	Load(ctx context.Context) (*throttle.State, error)
	Save(ctx context.Context, state *throttle.State) error
}
