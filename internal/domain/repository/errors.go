package repository

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when a write violates a unique index
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrDuplicateCode is the ErrDuplicateKey raised by a human-readable code
	// column (order number, invoice number, patient code...). Only this one is
	// worth retrying with a fresh code.
	ErrDuplicateCode = fmt.Errorf("%w: code already issued", ErrDuplicateKey)
)

// Transactor runs fn inside a database transaction. Repositories called with
// the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
