package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
)

func errDangling(row userRow) error {
	return fmt.Errorf("memory: user %s references missing apartment %s", row.rec.ID, row.apartmentID)
}

type usersRepo struct{ s *scope }

func (r usersRepo) Create(ctx context.Context, u *user.User) error {
	return r.s.run(ctx, func(st *state) error {
		if _, exists := st.users[u.ID]; exists {
			return repository.NewTechnical(repository.KindUnique, fmt.Errorf("memory: duplicate user id %s", u.ID))
		}
		if err := st.uniqueUser(u); err != nil {
			return err
		}

		row := userRow{rec: u.ToRecord()}
		row.rec.Apartment = nil
		row.rec.Version = 1

		var (
			apt    *user.Apartment
			member *repository.HouseholdMember
		)
		switch p := u.Profile.(type) {
		case user.AdminProfile:
			a := p.Apartment
			a.AdminID = u.ID
			if a.ID == "" {
				a.ID = uuid.NewString()
				if err := st.uniqueApartment(a); err != nil {
					return err
				}
			} else {
				cur, ok := st.apartments[a.ID]
				if !ok {
					return repository.NewTechnical(repository.KindUnknown, fmt.Errorf("memory: apartment %s not found", a.ID))
				}
				if cur.Managed() {
					return repository.NewTechnical(repository.KindUnique, fmt.Errorf("memory: apartment %s already managed", a.ID))
				}
				a = cur
				a.AdminID = u.ID
			}
			apt = &a
			row.apartmentID = a.ID
		case user.ResidentProfile:
			if p.HouseholdMemberID != "" {
				m, ok := st.households[p.HouseholdMemberID]
				if !ok || m.UserID != "" {
					return repository.NewTechnical(repository.KindUniqueContact, fmt.Errorf("memory: household member %s unavailable", p.HouseholdMemberID))
				}
				m.UserID = u.ID
				member = &m
			}
		}

		// Validado todo, recién ahora se escribe.
		if apt != nil {
			st.apartments[apt.ID] = *apt
			u.Profile = user.AdminProfile{Apartment: *apt}
		}
		if member != nil {
			st.households[member.ID] = *member
		}
		st.users[u.ID] = row
		u.Version = 1
		return nil
	})
}

func (r usersRepo) FindByID(ctx context.Context, id string, lock repository.LockMode) (*user.User, error) {
	lock.MustValid()
	var out *user.User
	err := r.s.run(ctx, func(st *state) error {
		row, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u, err := st.restore(row)
		out = u
		return err
	})
	return out, err
}

func (r usersRepo) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	var out *user.User
	err := r.s.run(ctx, func(st *state) error {
		for _, row := range st.users {
			if row.rec.Username == username {
				u, err := st.restore(row)
				out = u
				return err
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r usersRepo) Update(ctx context.Context, u *user.User) error {
	return r.s.run(ctx, func(st *state) error {
		cur, ok := st.users[u.ID]
		if !ok || cur.rec.Version != u.Version {
			return repository.NewTechnical(repository.KindOptimisticLock, nil)
		}
		if err := st.uniqueUser(u); err != nil {
			return err
		}

		var apt *user.Apartment
		if a, ok := u.AdminApartment(); ok {
			a.ID = cur.apartmentID
			a.AdminID = u.ID
			if err := st.uniqueApartment(a); err != nil {
				return err
			}
			apt = &a
		}

		next := userRow{rec: u.ToRecord(), apartmentID: cur.apartmentID}
		next.rec.Apartment = nil
		next.rec.Role = cur.rec.Role
		next.rec.CreatedAt = cur.rec.CreatedAt
		next.rec.Version = cur.rec.Version + 1
		next.rec.UpdatedAt = r.s.db.now().UTC()

		if apt != nil {
			st.apartments[apt.ID] = *apt
		}
		st.users[u.ID] = next
		u.Version = next.rec.Version
		u.UpdatedAt = next.rec.UpdatedAt
		return nil
	})
}

func (r usersRepo) BulkUpdateJoinStatus(ctx context.Context, f repository.JoinStatusFilter, to user.JoinStatus) (int64, error) {
	if to != user.StatusApproved && to != user.StatusRejected {
		return 0, fmt.Errorf("memory: bulk update to %q: %w", to, user.ErrInvalidTransition)
	}
	var n int64
	err := r.s.run(ctx, func(st *state) error {
		now := r.s.db.now().UTC()
		for id, row := range st.users {
			if !matches(row, f) || !user.BulkEligible(user.JoinStatus(row.rec.JoinStatus)) {
				continue
			}
			row.rec.JoinStatus = string(to)
			row.rec.IsActive = to == user.StatusApproved
			row.rec.Version++
			row.rec.UpdatedAt = now
			st.users[id] = row
			n++
		}
		return nil
	})
	return n, err
}

func (r usersRepo) Delete(ctx context.Context, id string) error {
	return r.s.run(ctx, func(st *state) error {
		st.deleteUser(id)
		return nil
	})
}

func (r usersRepo) DeleteByStatus(ctx context.Context, f repository.JoinStatusFilter, status user.JoinStatus) ([]string, error) {
	var ids []string
	err := r.s.run(ctx, func(st *state) error {
		for id, row := range st.users {
			if matches(row, f) && row.rec.JoinStatus == string(status) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			st.deleteUser(id)
		}
		return nil
	})
	return ids, err
}

func (r usersRepo) LockByRole(ctx context.Context, _ repository.JoinStatusFilter, lock repository.LockMode) error {
	lock.MustValid()
	return r.s.run(ctx, func(*state) error { return nil })
}

// deleteUser replica ON DELETE SET NULL de las FKs que apuntan a users.
func (st *state) deleteUser(id string) {
	row, ok := st.users[id]
	if !ok {
		return
	}
	if row.apartmentID != "" {
		if a, ok := st.apartments[row.apartmentID]; ok && a.AdminID == id {
			a.AdminID = ""
			st.apartments[a.ID] = a
		}
	}
	for mid, m := range st.households {
		if m.UserID == id {
			m.UserID = ""
			st.households[mid] = m
		}
	}
	delete(st.users, id)
}
