package user

import (
	"errors"
	"fmt"
	"strings"
)

// Role es el rol de una cuenta. Inmutable después de la creación.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleResident   Role = "RESIDENT"
)

// Valid indica si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleResident:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole acepta el nombre del rol sin distinguir mayúsculas.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// JoinStatus es el estado de admisión de una cuenta.
type JoinStatus string

const (
	StatusPending  JoinStatus = "PENDING"
	StatusApproved JoinStatus = "APPROVED"
	StatusRejected JoinStatus = "REJECTED"
)

func (s JoinStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s JoinStatus) String() string { return string(s) }

var (
	ErrInvalidRole       = errors.New("user: invalid role")
	ErrInvalidStatus     = errors.New("user: invalid join status")
	ErrInvalidTransition = errors.New("user: invalid join status transition")
	ErrProfileMismatch   = errors.New("user: profile does not match role")
)

// transitions lista los destinos válidos desde cada estado para el camino
// individual. Volver a PENDING no está permitido.
var transitions = map[JoinStatus]map[JoinStatus]struct{}{
	StatusPending: {
		StatusApproved: {},
		StatusRejected: {},
	},
	StatusApproved: {
		StatusRejected: {},
	},
	StatusRejected: {
		StatusApproved: {},
	},
}

// CanTransition indica si from -> to es válido. La misma transición (from == to)
// es válida y no produce cambios.
func CanTransition(from, to JoinStatus) bool {
	if from == to {
		return from.Valid()
	}
	_, ok := transitions[from][to]
	return ok
}

// BulkEligible indica si una fila puede ser tocada por una operación masiva.
// Solo las filas PENDING califican.
func BulkEligible(s JoinStatus) bool {
	return s == StatusPending
}
