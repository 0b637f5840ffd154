package repository

import "context"

// SequenceRepository issues per-scope sequence numbers
type SequenceRepository interface {
	// Next atomically increments the scope's counter and returns the new value.
	// The first call for a scope returns 1.
	Next(ctx context.Context, scope string) (int64, error)
}
