package repository

import "fmt"

// LockMode es el bloqueo pesimista pedido antes de la lectura que gobierna
// una decisión. Solo tiene efecto dentro de una transacción.
type LockMode int

const (
	LockNone LockMode = iota
	// LockShare corresponde a FOR SHARE.
	LockShare
	// LockUpdate corresponde a FOR UPDATE.
	LockUpdate
)

func (m LockMode) String() string {
	switch m {
	case LockNone:
		return "none"
	case LockShare:
		return "share"
	case LockUpdate:
		return "update"
	}
	return fmt.Sprintf("LockMode(%d)", int(m))
}

// MustValid entra en pánico si el modo no es uno de los definidos. Un modo
// desconocido es un error de programación, no una condición de runtime.
func (m LockMode) MustValid() LockMode {
	switch m {
	case LockNone, LockShare, LockUpdate:
		return m
	}
	panic(fmt.Sprintf("repository: unsupported lock mode %d", int(m)))
}
