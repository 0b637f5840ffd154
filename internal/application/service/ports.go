package service

import (
	"context"
	"errors"

	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/oauth"
)

// Mailer sends the lab's transactional e-mail
type Mailer interface {
	SendPasswordReset(toEmail, token string) error
	SendResultsReady(toEmail, patientName, orderNumber string) error
	SendInvoiceIssued(toEmail, patientName, invoiceNumber, total, dueDate string) error
}

// GoogleAuthenticator runs the Google sign-in flow
type GoogleAuthenticator interface {
	IsConfigured() bool
	AuthURL() (string, string, error)
	Authenticate(ctx context.Context, state, code string) (*oauth.GoogleUser, error)
}

// isDuplicate reports a unique index violation from the repositories
func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicateKey)
}
