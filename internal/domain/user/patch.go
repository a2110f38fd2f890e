package user

// Patch es una actualización parcial. Los campos nil no se tocan.
type Patch struct {
	Name      *string
	Email     *string
	Contact   *string
	AvatarURL *string
	// Apartment solo aplica a cuentas ADMIN; se mezcla clave por clave.
	Apartment *ApartmentPatch
}

// ApartmentPatch es la parte del complejo que un ADMIN puede editar.
type ApartmentPatch struct {
	Name         *string
	Address      *string
	OfficeNumber *string
	Description  *string
}

func (p ApartmentPatch) empty() bool {
	return p.Name == nil && p.Address == nil && p.OfficeNumber == nil && p.Description == nil
}

// Empty indica que el patch no cambia nada.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Contact == nil && p.AvatarURL == nil &&
		(p.Apartment == nil || p.Apartment.empty())
}

// TouchesApartment indica si aplicar el patch modifica la fila del complejo.
func (p Patch) TouchesApartment() bool {
	return p.Apartment != nil && !p.Apartment.empty()
}

// UpdateProfile mezcla el patch sobre el agregado sin borrar claves ausentes.
// Un patch con sección de complejo sobre una cuenta que no es ADMIN falla con
// ErrProfileMismatch y no modifica nada.
func (u *User) UpdateProfile(p Patch) error {
	var apt *Apartment
	if p.TouchesApartment() {
		cur, ok := u.AdminApartment()
		if !ok {
			return ErrProfileMismatch
		}
		mergeString(&cur.Name, p.Apartment.Name)
		mergeString(&cur.Address, p.Apartment.Address)
		mergeString(&cur.OfficeNumber, p.Apartment.OfficeNumber)
		mergeString(&cur.Description, p.Apartment.Description)
		apt = &cur
	}

	mergeString(&u.Name, p.Name)
	mergeString(&u.Email, p.Email)
	mergeString(&u.Contact, p.Contact)
	mergeString(&u.AvatarURL, p.AvatarURL)
	if apt != nil {
		u.Profile = AdminProfile{Apartment: *apt}
	}
	return nil
}

func mergeString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
