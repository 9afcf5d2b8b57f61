package persistent

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/buzkaaclicker/persona"
	"github.com/uptrace/bun/driver/pgdriver"
)

const pgUniqueViolation = "23505"

// classify wraps a driver error into a persona.Error of the matching kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return persona.NewError(op, kindOf(err), err)
}

func kindOf(err error) persona.ErrorKind {
	var pgErr pgdriver.Error
	var netErr net.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return persona.KindNotFound
	case errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation:
		return persona.KindConflict
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return persona.KindConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return persona.KindTransient
	default:
		return persona.KindUnknown
	}
}
