package assessment

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrSeqConflict means a concurrent writer already used the message sequence number.
var ErrSeqConflict = errors.New("message sequence conflict")

// ErrSessionNotActive means a write that requires an active session found it finalizing or completed.
var ErrSessionNotActive = errors.New("session is not active")

// ErrBatchRecorded means the analysis batch for that message range is already stored.
var ErrBatchRecorded = errors.New("analysis batch already recorded")

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
