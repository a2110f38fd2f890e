// Package users implementa los casos de uso sobre cuentas: alta por rol,
// aprobación individual y masiva, perfil, contraseña y baja.
//
// Cada caso de uso declara sus opciones de unidad de trabajo; los errores
// técnicos de los repositorios se traducen con apperrors.Remap antes de salir.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/june5815/welive/internal/apperrors"
	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	"github.com/june5815/welive/internal/security/password"
	store "github.com/june5815/welive/internal/store/v2"
)

// Service define los casos de uso de cuentas.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*user.User, error)
	// SeedSuperAdmin crea la cuenta SUPER_ADMIN. Solo la usa el CLI.
	SeedSuperAdmin(ctx context.Context, in AccountInput) (*user.User, error)
	CreateApartment(ctx context.Context, actor user.Actor, in ApartmentInput) (*user.Apartment, error)
	PreRegister(ctx context.Context, actor user.Actor, in HouseholdInput) (*repository.HouseholdMember, error)

	Get(ctx context.Context, actor user.Actor, id string) (*user.User, error)
	Approve(ctx context.Context, actor user.Actor, id string) (*user.User, error)
	Reject(ctx context.Context, actor user.Actor, id string) (*user.User, error)
	BulkApprove(ctx context.Context, actor user.Actor, role user.Role) (int64, error)
	BulkReject(ctx context.Context, actor user.Actor, role user.Role) (int64, error)
	DeleteRejected(ctx context.Context, actor user.Actor, role user.Role) (int64, error)

	UpdateProfile(ctx context.Context, actor user.Actor, in UpdateProfileInput) (*user.User, error)
	ChangePassword(ctx context.Context, actor user.Actor, in ChangePasswordInput) error
	Delete(ctx context.Context, actor user.Actor, id string) error
}

// SessionRevoker corta las sesiones de un usuario (auth.Service).
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	UoW      store.UnitOfWork
	Hasher   password.Hasher
	Policy   password.Policy
	Sessions SessionRevoker
	// Isolation de las transacciones (ReadCommitted si vacío).
	Isolation store.IsolationLevel
	// Timeout acota cada unidad de trabajo; 0 = sin límite.
	Timeout time.Duration
	// BulkTimeout acota aprobaciones, rechazos y bajas masivas.
	BulkTimeout time.Duration
	Now         func() time.Time
}

type service struct {
	deps Deps
}

// NewService crea el servicio de cuentas.
func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Policy.MinLength == 0 {
		deps.Policy = password.DefaultPolicy
	}
	if deps.BulkTimeout <= 0 {
		deps.BulkTimeout = 30 * time.Second
	}
	deps.Isolation = deps.Isolation.OrDefault()
	return &service{deps: deps}
}

// AccountInput son los datos comunes de alta.
type AccountInput struct {
	Username  string
	Password  string
	Name      string
	Email     string
	Contact   string
	AvatarURL string
}

// ApartmentInput describe un complejo por su clave natural.
type ApartmentInput struct {
	Name         string
	Address      string
	OfficeNumber string
	Description  string
}

// ResidentInput es la parte de alta propia de RESIDENT.
type ResidentInput struct {
	ApartmentID   string
	Building      string
	Unit          string
	IsHouseholder bool
}

// CreateInput es el alta pública. Apartment aplica a ADMIN y Resident a
// RESIDENT; SUPER_ADMIN no se crea por esta vía.
type CreateInput struct {
	Role user.Role
	AccountInput
	Apartment *ApartmentInput
	Resident  *ResidentInput
}

// HouseholdInput es el pre-registro de un residente por su admin.
type HouseholdInput struct {
	Building      string
	Unit          string
	Name          string
	Contact       string
	IsHouseholder bool
}

// UpdateProfileInput lleva la versión que el cliente leyó: si la fila cambió
// desde entonces la escritura falla.
type UpdateProfileInput struct {
	UserID  string
	Version int64
	Patch   user.Patch
}

type ChangePasswordInput struct {
	UserID  string
	Version int64
	Current string
	Next    string
}

// txOpts: transacción con el aislamiento configurado.
func (s *service) txOpts() store.Options {
	return store.InTx(s.deps.Isolation).WithTimeout(s.deps.Timeout)
}

func (s *service) bulkOpts() store.Options {
	return store.InTx(s.deps.Isolation).WithTimeout(s.deps.BulkTimeout)
}

// remap traduce errores de dominio y técnicos a errores de negocio. Lo que no
// reconoce sale sin cambios.
func remap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, user.ErrInvalidTransition):
		return apperrors.ErrInvalidTransition.WithCause(err)
	case errors.Is(err, user.ErrProfileMismatch):
		return apperrors.ErrBadRequest.WithCause(err).WithDetail("apartment fields apply only to ADMIN accounts")
	}
	return apperrors.Remap(err)
}
