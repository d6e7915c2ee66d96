package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"

	"github.com/pkg/errors"

	"github.com/emisoft/buzon/core"
)

// wrapErr wraps repository failures; a lost connection becomes a shutdown
// error so the server stops gracefully instead of serving a dead pool.
func wrapErr(err error, msg string) error {
	if cause := errors.Cause(err); cause == sql.ErrConnDone || cause == driver.ErrBadConn {
		return core.NewShutdownError(msg + ": " + cause.Error())
	}
	return errors.Wrap(err, msg)
}
