package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound indica que el recurso solicitado no existe.
var ErrNotFound = errors.New("not found")

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Kind clasifica una falla técnica de persistencia.
type Kind string

const (
	KindUniqueUsername Kind = "UNIQUE_VIOLATION_USERNAME"
	KindUniqueEmail    Kind = "UNIQUE_VIOLATION_EMAIL"
	KindUniqueContact  Kind = "UNIQUE_VIOLATION_CONTACT"
	// KindUnique es cualquier otra clave única (ej: clave natural del complejo).
	KindUnique Kind = "UNIQUE_VIOLATION"
	// KindOptimisticLock: la versión esperada no coincide o la fila no existe.
	KindOptimisticLock Kind = "OPTIMISTIC_LOCK_FAILED"
	KindUnknown        Kind = "UNKNOWN_SERVER_ERROR"
)

// TechnicalError es el error que emiten los repositorios en escrituras.
// Err conserva la causa del driver para logs; nunca debe llegar al cliente.
type TechnicalError struct {
	Kind Kind
	Err  error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repository: %s: %v", e.Kind, e.Err)
	}
	return "repository: " + string(e.Kind)
}

func (e *TechnicalError) Unwrap() error { return e.Err }

// Is compara por Kind, así errors.Is(err, ErrOptimisticLock) funciona con
// cualquier instancia del mismo tipo.
func (e *TechnicalError) Is(target error) bool {
	t, ok := target.(*TechnicalError)
	return ok && t.Kind == e.Kind
}

// Sentinels para errors.Is.
var (
	ErrUniqueUsername = &TechnicalError{Kind: KindUniqueUsername}
	ErrUniqueEmail    = &TechnicalError{Kind: KindUniqueEmail}
	ErrUniqueContact  = &TechnicalError{Kind: KindUniqueContact}
	ErrUnique         = &TechnicalError{Kind: KindUnique}
	ErrOptimisticLock = &TechnicalError{Kind: KindOptimisticLock}
	ErrUnknown        = &TechnicalError{Kind: KindUnknown}
)

// NewTechnical crea un TechnicalError con causa.
func NewTechnical(kind Kind, cause error) *TechnicalError {
	return &TechnicalError{Kind: kind, Err: cause}
}

// AsTechnical extrae el TechnicalError de la cadena, si hay uno.
func AsTechnical(err error) (*TechnicalError, bool) {
	var te *TechnicalError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsOptimisticLock verifica si el error es un conflicto de versión.
func IsOptimisticLock(err error) bool {
	return errors.Is(err, ErrOptimisticLock)
}
