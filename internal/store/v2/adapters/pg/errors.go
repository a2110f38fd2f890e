package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/june5815/welive/internal/domain/repository"
)

// Nombres de constraints del esquema (migrations/postgres).
const (
	constraintUsername        = "users_username_key"
	constraintEmail           = "users_email_key"
	constraintContact         = "users_contact_key"
	constraintHouseholdMember = "household_members_contact_key"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapError traduce un error del driver a *repository.TechnicalError.
// Un TechnicalError ya clasificado pasa sin cambios.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := repository.AsTechnical(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return repository.NewTechnical(uniqueKind(pgErr.ConstraintName), err)
		case codeSerializationFailure, codeDeadlockDetected:
			return repository.NewTechnical(repository.KindOptimisticLock, err)
		}
	}
	return repository.NewTechnical(repository.KindUnknown, err)
}

func uniqueKind(constraint string) repository.Kind {
	switch constraint {
	case constraintUsername:
		return repository.KindUniqueUsername
	case constraintEmail:
		return repository.KindUniqueEmail
	case constraintContact, constraintHouseholdMember:
		return repository.KindUniqueContact
	default:
		return repository.KindUnique
	}
}

// mapReadError es mapError para lecturas: sin fila es ErrNotFound.
func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return mapError(err)
}
