package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Primary SQLite result codes for lock contention.
const (
	codeBusy   = 5
	codeLocked = 6
)

// IsBusy reports whether err is a transient SQLITE_BUSY or SQLITE_LOCKED error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xff
		return code == codeBusy || code == codeLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// wrapBusy maps lock contention onto domain.ErrStorageUnavailable.
func wrapBusy(err error) error {
	if IsBusy(err) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return err
}
