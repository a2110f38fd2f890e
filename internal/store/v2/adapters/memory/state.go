package memory

import (
	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
)

// userRow es la fila de users. El complejo de un ADMIN vive en apartments y
// se referencia por apartmentID, como en el esquema relacional.
type userRow struct {
	rec         user.Record
	apartmentID string
}

type state struct {
	users      map[string]userRow
	apartments map[string]user.Apartment
	households map[string]repository.HouseholdMember
}

func newState() *state {
	return &state{
		users:      make(map[string]userRow),
		apartments: make(map[string]user.Apartment),
		households: make(map[string]repository.HouseholdMember),
	}
}

func (st *state) clone() *state {
	c := &state{
		users:      make(map[string]userRow, len(st.users)),
		apartments: make(map[string]user.Apartment, len(st.apartments)),
		households: make(map[string]repository.HouseholdMember, len(st.households)),
	}
	for k, v := range st.users {
		if v.rec.Resident != nil {
			res := *v.rec.Resident
			v.rec.Resident = &res
		}
		c.users[k] = v
	}
	for k, v := range st.apartments {
		c.apartments[k] = v
	}
	for k, v := range st.households {
		c.households[k] = v
	}
	return c
}

// restore arma el agregado desde la fila (y el complejo si es ADMIN).
func (st *state) restore(row userRow) (*user.User, error) {
	rec := row.rec
	if row.apartmentID != "" {
		apt, ok := st.apartments[row.apartmentID]
		if !ok {
			return nil, repository.NewTechnical(repository.KindUnknown, errDangling(row))
		}
		rec.Apartment = &apt
	}
	if rec.Resident != nil {
		res := *rec.Resident
		rec.Resident = &res
	}
	u, err := user.Restore(rec)
	if err != nil {
		return nil, repository.NewTechnical(repository.KindUnknown, err)
	}
	return u, nil
}

// uniqueUser verifica username, email y contact contra las demás filas.
// Los valores vacíos no participan (NULL en el esquema relacional).
func (st *state) uniqueUser(u *user.User) error {
	for id, row := range st.users {
		if id == u.ID {
			continue
		}
		switch {
		case u.Username != "" && row.rec.Username == u.Username:
			return repository.NewTechnical(repository.KindUniqueUsername, nil)
		case u.Email != "" && row.rec.Email == u.Email:
			return repository.NewTechnical(repository.KindUniqueEmail, nil)
		case u.Contact != "" && row.rec.Contact == u.Contact:
			return repository.NewTechnical(repository.KindUniqueContact, nil)
		}
	}
	return nil
}

// uniqueApartment verifica la clave natural contra los demás complejos.
func (st *state) uniqueApartment(a user.Apartment) error {
	for id, other := range st.apartments {
		if id != a.ID && other.Key() == a.Key() {
			return repository.NewTechnical(repository.KindUnique, nil)
		}
	}
	return nil
}

func matches(row userRow, f repository.JoinStatusFilter) bool {
	if string(f.Role) != row.rec.Role {
		return false
	}
	if f.ApartmentID == "" {
		return true
	}
	if row.apartmentID != "" {
		return row.apartmentID == f.ApartmentID
	}
	return row.rec.Resident != nil && row.rec.Resident.ApartmentID == f.ApartmentID
}
