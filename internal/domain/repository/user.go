package repository

import (
	"context"

	"github.com/june5815/welive/internal/domain/user"
)

// JoinStatusFilter acota una operación masiva. ApartmentID vacío = todos los
// complejos (solo tiene sentido para filas ADMIN).
type JoinStatusFilter struct {
	Role        user.Role
	ApartmentID string
}

// UserRepository define operaciones sobre el agregado de cuenta.
type UserRepository interface {
	// Create inserta el agregado (y la fila del complejo o del residente
	// según el rol). Version queda en 1.
	// Errores: UNIQUE_VIOLATION_USERNAME|EMAIL|CONTACT, UNKNOWN_SERVER_ERROR.
	Create(ctx context.Context, u *user.User) error

	// FindByID busca por id aplicando lock antes de leer.
	// Retorna ErrNotFound si no existe.
	FindByID(ctx context.Context, id string, lock LockMode) (*user.User, error)

	// FindByUsername busca por username sin bloqueo.
	// Retorna ErrNotFound si no existe.
	FindByUsername(ctx context.Context, username string) (*user.User, error)

	// Update persiste el agregado con predicado de versión
	// (WHERE id = u.ID AND version = u.Version). Si tiene éxito, u.Version y
	// u.UpdatedAt quedan con los valores escritos.
	// Errores: OPTIMISTIC_LOCK_FAILED (versión vieja o fila inexistente),
	// UNIQUE_VIOLATION_*, UNKNOWN_SERVER_ERROR.
	Update(ctx context.Context, u *user.User) error

	// BulkUpdateJoinStatus mueve a `to` todas las filas PENDING que cumplan
	// el filtro. Las filas en otro estado no se tocan. Retorna filas afectadas.
	BulkUpdateJoinStatus(ctx context.Context, f JoinStatusFilter, to user.JoinStatus) (int64, error)

	// Delete borra la cuenta. Borrar un id inexistente no es error.
	Delete(ctx context.Context, id string) error

	// DeleteByStatus borra todas las filas con el estado dado que cumplan el
	// filtro. Retorna los ids borrados.
	DeleteByStatus(ctx context.Context, f JoinStatusFilter, status user.JoinStatus) ([]string, error)

	// LockByRole bloquea el conjunto de filas del rol (y complejo, si el
	// filtro lo indica) antes de una operación masiva.
	LockByRole(ctx context.Context, f JoinStatusFilter, lock LockMode) error
}
