package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
)

type apartmentsRepo struct{ s *scope }

func (r apartmentsRepo) FindByID(ctx context.Context, id string, lock repository.LockMode) (*user.Apartment, error) {
	lock.MustValid()
	var out *user.Apartment
	err := r.s.run(ctx, func(st *state) error {
		a, ok := st.apartments[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r apartmentsRepo) FindByNaturalKey(ctx context.Context, key user.NaturalKey, lock repository.LockMode) (*user.Apartment, error) {
	lock.MustValid()
	var out *user.Apartment
	err := r.s.run(ctx, func(st *state) error {
		for _, a := range st.apartments {
			if a.Key() == key {
				a := a
				out = &a
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r apartmentsRepo) Create(ctx context.Context, a *user.Apartment) error {
	return r.s.run(ctx, func(st *state) error {
		row := *a
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if err := st.uniqueApartment(row); err != nil {
			return err
		}
		st.apartments[row.ID] = row
		a.ID = row.ID
		return nil
	})
}

type householdsRepo struct{ s *scope }

func (r householdsRepo) Create(ctx context.Context, m *repository.HouseholdMember) error {
	return r.s.run(ctx, func(st *state) error {
		for _, other := range st.households {
			if other.Contact == m.Contact {
				return repository.NewTechnical(repository.KindUniqueContact, nil)
			}
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		st.households[m.ID] = *m
		return nil
	})
}

func (r householdsRepo) FindByContact(ctx context.Context, contact string, lock repository.LockMode) (*repository.HouseholdMember, error) {
	lock.MustValid()
	var out *repository.HouseholdMember
	err := r.s.run(ctx, func(st *state) error {
		for _, m := range st.households {
			if m.Contact == contact {
				m := m
				out = &m
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}
