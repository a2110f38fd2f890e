package repository

import (
	"context"

	"github.com/june5815/welive/internal/domain/user"
)

// ApartmentRepository define operaciones sobre complejos.
type ApartmentRepository interface {
	// FindByID retorna ErrNotFound si no existe.
	FindByID(ctx context.Context, id string, lock LockMode) (*user.Apartment, error)

	// FindByNaturalKey busca por (name, address, office_number).
	// Retorna ErrNotFound si no existe.
	FindByNaturalKey(ctx context.Context, key user.NaturalKey, lock LockMode) (*user.Apartment, error)

	// Create registra un complejo (normalmente sin admin). Asigna ID si está
	// vacío. Errores: UNIQUE_VIOLATION (clave natural).
	Create(ctx context.Context, a *user.Apartment) error
}

// HouseholdMember es un residente pre-registrado por el admin del complejo.
// UserID vacío significa que todavía no hay cuenta asociada.
type HouseholdMember struct {
	ID            string
	ApartmentID   string
	Building      string
	Unit          string
	Name          string
	Contact       string
	IsHouseholder bool
	UserID        string
}

// HouseholdRepository define operaciones sobre miembros pre-registrados.
type HouseholdRepository interface {
	// Create registra un miembro. Errores: UNIQUE_VIOLATION_CONTACT.
	Create(ctx context.Context, m *HouseholdMember) error

	// FindByContact retorna ErrNotFound si no hay miembro con ese contacto.
	FindByContact(ctx context.Context, contact string, lock LockMode) (*HouseholdMember, error)
}
