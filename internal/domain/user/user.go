package user

import (
	"time"

	"github.com/google/uuid"
)

// User es el agregado de cuenta. Version empieza en 1 y el repositorio la
// incrementa (junto con UpdatedAt) en cada escritura exitosa; nada en este
// paquete modifica esos campos después de la creación.
type User struct {
	ID           string
	Role         Role
	Username     string
	PasswordHash string
	Name         string
	Email        string
	Contact      string
	AvatarURL    string
	JoinStatus   JoinStatus
	IsActive     bool
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Profile      Profile
}

// Account agrupa los datos comunes de alta.
type Account struct {
	Username     string
	PasswordHash string
	Name         string
	Email        string
	Contact      string
	AvatarURL    string
}

func newUser(role Role, acc Account, p Profile, status JoinStatus, now time.Time) *User {
	now = now.UTC()
	return &User{
		ID:           uuid.NewString(),
		Role:         role,
		Username:     acc.Username,
		PasswordHash: acc.PasswordHash,
		Name:         acc.Name,
		Email:        acc.Email,
		Contact:      acc.Contact,
		AvatarURL:    acc.AvatarURL,
		JoinStatus:   status,
		IsActive:     status == StatusApproved,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
		Profile:      p,
	}
}

// NewSuperAdmin crea una cuenta SUPER_ADMIN, siempre aprobada.
func NewSuperAdmin(acc Account, now time.Time) *User {
	return newUser(RoleSuperAdmin, acc, SuperAdminProfile{}, StatusApproved, now)
}

// NewAdmin crea una cuenta ADMIN pendiente de aprobación. El complejo ya debe
// estar resuelto (existente sin admin o nuevo); Apartment.AdminID se completa
// con el id de la cuenta.
func NewAdmin(acc Account, apt Apartment, now time.Time) *User {
	u := newUser(RoleAdmin, acc, nil, StatusPending, now)
	apt.AdminID = u.ID
	u.Profile = AdminProfile{Apartment: apt}
	return u
}

// NewResident crea una cuenta RESIDENT. preRegistered indica que el contacto
// coincide con un miembro de hogar cargado por el admin: en ese caso la
// cuenta nace aprobada.
func NewResident(acc Account, p ResidentProfile, preRegistered bool, now time.Time) *User {
	status := StatusPending
	if preRegistered {
		status = StatusApproved
	}
	return newUser(RoleResident, acc, p, status, now)
}

// Approve lleva la cuenta a APPROVED.
func (u *User) Approve() error { return u.Transition(StatusApproved) }

// Reject lleva la cuenta a REJECTED.
func (u *User) Reject() error { return u.Transition(StatusRejected) }

// Transition cambia JoinStatus y sincroniza IsActive. Ningún otro campo cambia.
func (u *User) Transition(to JoinStatus) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if !CanTransition(u.JoinStatus, to) {
		return ErrInvalidTransition
	}
	if u.JoinStatus == to {
		return nil
	}
	u.JoinStatus = to
	u.IsActive = to == StatusApproved
	return nil
}

// UpdatePassword reemplaza el hash del secreto. El estado no cambia.
func (u *User) UpdatePassword(hash string) {
	u.PasswordHash = hash
}

// AdminApartment retorna el complejo si la cuenta es ADMIN.
func (u *User) AdminApartment() (Apartment, bool) {
	p, ok := u.Profile.(AdminProfile)
	if !ok {
		return Apartment{}, false
	}
	return p.Apartment, true
}

// ApartmentID retorna el complejo al que pertenece la cuenta (ADMIN o RESIDENT).
func (u *User) ApartmentID() string {
	switch p := u.Profile.(type) {
	case AdminProfile:
		return p.Apartment.ID
	case ResidentProfile:
		return p.ApartmentID
	}
	return ""
}

// Clone retorna una copia independiente del agregado.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Profile != nil {
		c.Profile = u.Profile.clone()
	}
	return &c
}
