package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lexhaven/firmportal/internal/domain"
)

const uniqueViolation = "23505"

// conflictFields maps unique-index names to the request field they guard.
// The database constraint is the real enforcement behind the read-then-insert
// race: a second concurrent writer loses here, not at the availability check.
var conflictFields = map[string]struct{ field, message string }{
	"users_email_key":              {"email", "This email is already registered"},
	"users_phone_number_key":       {"phoneNumber", "This phone number is already registered"},
	"law_firms_firm_name_key":      {"firmName", "This firm name is already registered"},
	"law_firms_license_number_key": {"licenseNumber", "This license number is already registered"},
}

// mapError translates low-level pgx failures into the domain taxonomy:
// unique violations become field-tagged conflicts, connectivity failures
// become unavailable storage errors, everything else a generic storage error.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if c, ok := conflictFields[pgErr.ConstraintName]; ok {
			return &domain.ConflictError{Field: c.field, Message: c.message}
		}
		return &domain.ConflictError{Field: "", Message: "Data already exists"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.StorageError{Err: err, Unavailable: true}
	}

	return &domain.StorageError{Err: err}
}
