package service

import (
	"context"
	"errors"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/identifier"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultIdentifierAttempts is how many codes are tried before giving up
const DefaultIdentifierAttempts = 3

// IdentifierService hands out human-readable codes (ORD..., INV..., PAT...)
// from an atomic per-scope counter and retries when a code is already taken.
type IdentifierService struct {
	sequences   repository.SequenceRepository
	tx          repository.Transactor
	generator   *identifier.Generator
	maxAttempts int
	log         *logger.Logger
	now         func() time.Time
}

// NewIdentifierService creates a new identifier service
func NewIdentifierService(
	sequences repository.SequenceRepository,
	tx repository.Transactor,
	generator *identifier.Generator,
	maxAttempts int,
	log *logger.Logger,
) *IdentifierService {
	if maxAttempts < 1 {
		maxAttempts = DefaultIdentifierAttempts
	}
	return &IdentifierService{
		sequences:   sequences,
		tx:          tx,
		generator:   generator,
		maxAttempts: maxAttempts,
		log:         log,
		now:         time.Now,
	}
}

// Next allocates the next code of kind without persisting anything. The
// counter runs in its own savepoint when ctx carries a transaction, so a
// failed counter falls back to a timestamp code without aborting the caller.
func (s *IdentifierService) Next(ctx context.Context, kind identifier.Kind) (string, error) {
	now := s.now()
	scope := s.generator.ScopeKey(kind, now)

	var value int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		value, err = s.sequences.Next(ctx, scope)
		return err
	})
	if err != nil {
		code := s.generator.Fallback(kind, now)
		s.log.WithComponent("identifier").WithError(err).WithFields(logrus.Fields{
			"kind":  kind.String(),
			"scope": scope,
			"code":  code,
		}).Warn("sequence lookup failed, using timestamp identifier")
		metrics.IdentifierIssued(kind.String(), "fallback")
		return code, nil
	}

	code, err := s.generator.Generate(kind, now, value-1)
	if err != nil {
		return "", err
	}
	metrics.IdentifierIssued(kind.String(), "counter")
	return code, nil
}

// Issue allocates a code and passes it to create. Each attempt runs in its
// own transaction or savepoint; when create fails because the code was
// already issued a fresh code is tried, and after the last attempt
// ErrDuplicateIdentifier is returned. Other unique violations are returned
// as they are.
func (s *IdentifierService) Issue(ctx context.Context, kind identifier.Kind, create func(ctx context.Context, code string) error) (string, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.Next(ctx, kind)
		if err != nil {
			return "", err
		}

		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return create(ctx, code)
		})
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return "", err
		}

		s.log.WithComponent("identifier").WithFields(logrus.Fields{
			"kind":    kind.String(),
			"code":    code,
			"attempt": attempt,
		}).Warn("identifier already taken, retrying")
	}

	return "", apperror.ErrDuplicateIdentifier
}
