package apperrors

import (
	"errors"

	"github.com/june5815/welive/internal/domain/repository"
)

var technical = map[repository.Kind]*AppError{
	repository.KindUniqueUsername: ErrDuplicateUsername,
	repository.KindUniqueEmail:    ErrDuplicateEmail,
	repository.KindUniqueContact:  ErrDuplicateContact,
	repository.KindUnique:         ErrDuplicateProperty,
	// Un conflicto de versión no se distingue de cualquier otra falla
	// para el cliente.
	repository.KindOptimisticLock: ErrUnknownServer,
	repository.KindUnknown:        ErrUnknownServer,
}

// Remap traduce errores técnicos a errores de negocio. Un AppError pasa tal
// cual; un error que la tabla no reconoce (incluido context.Canceled) se
// devuelve sin cambios.
func Remap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound.WithCause(err)
	}
	if te, ok := repository.AsTechnical(err); ok {
		if be, ok := technical[te.Kind]; ok {
			return be.WithCause(err)
		}
	}
	return err
}

// FromError convierte cualquier error en un AppError para la capa de
// transporte: lo no reconocido termina como UNKNOWN_SERVER_ERROR.
func FromError(err error) *AppError {
	if ae, ok := As(Remap(err)); ok {
		return ae
	}
	return ErrUnknownServer.WithCause(err)
}
