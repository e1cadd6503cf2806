package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainErrors "pinkpay/internal/errors"
)

const uniqueViolation = "23505"

// translate maps driver errors onto the domain taxonomy. notFound is
// returned for a missing row; domain errors pass through untouched.
func translate(err error, notFound *domainErrors.DomainError, op string) error {
	if err == nil {
		return nil
	}
	var de *domainErrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domainErrors.ErrDuplicateID.WithMessage("%s: %s", op, pgErr.Detail)
	}
	return fmt.Errorf("%s: %w", op, err)
}
