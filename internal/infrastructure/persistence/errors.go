package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// translateError maps driver errors onto domain error kinds. Serialization
// failures and deadlocks become ConcurrencyConflict so callers may retry.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.KindAlreadyExists, "ALREADY_EXISTS", op+": record already exists")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pq.ErrorCode(pgErr.Code).Name() {
		case "unique_violation":
			return shared.NewDomainError(shared.KindAlreadyExists, "ALREADY_EXISTS", op+": record already exists")
		case "serialization_failure", "deadlock_detected", "lock_not_available":
			return shared.NewDomainError(shared.KindConcurrencyConflict, shared.ErrConcurrencyConflict.Code,
				op+": concurrent update detected")
		case "foreign_key_violation":
			return shared.NewValidationError("INVALID_REFERENCE", op+": referenced record does not exist")
		case "check_violation":
			return shared.NewValidationError("CONSTRAINT_VIOLATION", op+": value rejected by "+pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func conflict(entity string) error {
	return shared.NewDomainError(shared.KindConcurrencyConflict, shared.ErrConcurrencyConflict.Code,
		entity+" was modified by another process")
}
