package user

import (
	"fmt"
	"time"
)

// Record es la forma plana en que un agregado se persiste. Los adapters leen
// filas a Record y usan Restore para reconstruir el agregado.
type Record struct {
	ID           string
	Role         string
	Username     string
	PasswordHash string
	Name         string
	Email        string
	Contact      string
	AvatarURL    string
	JoinStatus   string
	IsActive     bool
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Solo para ADMIN.
	Apartment *Apartment
	// Solo para RESIDENT.
	Resident *ResidentProfile
}

// Restore reconstruye un agregado desde su forma persistida. Cada rol tiene
// su propia función de restauración.
func Restore(r Record) (*User, error) {
	role, err := ParseRole(r.Role)
	if err != nil {
		return nil, err
	}
	status := JoinStatus(r.JoinStatus)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, r.JoinStatus)
	}

	u := &User{
		ID:           r.ID,
		Role:         role,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		Email:        r.Email,
		Contact:      r.Contact,
		AvatarURL:    r.AvatarURL,
		JoinStatus:   status,
		IsActive:     status == StatusApproved,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}

	switch role {
	case RoleSuperAdmin:
		u.Profile, err = restoreSuperAdmin(r)
	case RoleAdmin:
		u.Profile, err = restoreAdmin(r)
	case RoleResident:
		u.Profile, err = restoreResident(r)
	}
	if err != nil {
		return nil, fmt.Errorf("restore user %s: %w", r.ID, err)
	}
	return u, nil
}

func restoreSuperAdmin(r Record) (Profile, error) {
	if r.Apartment != nil || r.Resident != nil {
		return nil, ErrProfileMismatch
	}
	return SuperAdminProfile{}, nil
}

func restoreAdmin(r Record) (Profile, error) {
	if r.Apartment == nil || r.Resident != nil {
		return nil, ErrProfileMismatch
	}
	return AdminProfile{Apartment: *r.Apartment}, nil
}

func restoreResident(r Record) (Profile, error) {
	if r.Resident == nil || r.Apartment != nil {
		return nil, ErrProfileMismatch
	}
	return *r.Resident, nil
}

// ToRecord aplana el agregado para persistirlo.
func (u *User) ToRecord() Record {
	r := Record{
		ID:           u.ID,
		Role:         string(u.Role),
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Email:        u.Email,
		Contact:      u.Contact,
		AvatarURL:    u.AvatarURL,
		JoinStatus:   string(u.JoinStatus),
		IsActive:     u.IsActive,
		Version:      u.Version,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	switch p := u.Profile.(type) {
	case AdminProfile:
		apt := p.Apartment
		r.Apartment = &apt
	case ResidentProfile:
		res := p
		r.Resident = &res
	}
	return r
}
