package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
)

type userRepo struct {
	q querier
}

// nullIfEmpty: las columnas únicas opcionales guardan NULL, no ''.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const selectUser = `
SELECT u.id::text, u.role, u.username, u.password_hash, u.name,
       u.email, u.contact, u.avatar_url, u.join_status, u.is_active,
       u.version, u.created_at, u.updated_at,
       a.id::text, a.name, a.address, a.office_number, a.description,
       r.apartment_id::text, r.household_member_id::text, r.building, r.unit, r.is_householder
FROM users u
LEFT JOIN apartments a ON a.admin_id = u.id
LEFT JOIN residents r ON r.user_id = u.id`

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		rec            user.Record
		email, contact *string

		aptID, aptName, aptAddr, aptOffice, aptDesc *string

		resApt, resMember, resBuilding, resUnit *string
		resHouseholder                          *bool
	)
	err := row.Scan(
		&rec.ID, &rec.Role, &rec.Username, &rec.PasswordHash, &rec.Name,
		&email, &contact, &rec.AvatarURL, &rec.JoinStatus, &rec.IsActive,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
		&aptID, &aptName, &aptAddr, &aptOffice, &aptDesc,
		&resApt, &resMember, &resBuilding, &resUnit, &resHouseholder,
	)
	if err != nil {
		return nil, err
	}
	rec.Email, rec.Contact = deref(email), deref(contact)

	if aptID != nil {
		rec.Apartment = &user.Apartment{
			ID:           *aptID,
			Name:         deref(aptName),
			Address:      deref(aptAddr),
			OfficeNumber: deref(aptOffice),
			Description:  deref(aptDesc),
			AdminID:      rec.ID,
		}
	}
	if resApt != nil {
		rec.Resident = &user.ResidentProfile{
			ApartmentID:       *resApt,
			HouseholdMemberID: deref(resMember),
			Building:          deref(resBuilding),
			Unit:              deref(resUnit),
			IsHouseholder:     resHouseholder != nil && *resHouseholder,
		}
	}
	return user.Restore(rec)
}

// validID descarta ids que no son uuid antes de llegar al servidor, donde
// fallarían con un error de sintaxis en lugar de "no encontrado".
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *userRepo) FindByID(ctx context.Context, id string, lock repository.LockMode) (*user.User, error) {
	lock.MustValid()
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	if err := lockRow(ctx, r.q, "users", id, lock); err != nil {
		return nil, err
	}
	u, err := scanUser(r.q.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return u, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, selectUser+` WHERE u.username = $1`, username))
	if err != nil {
		return nil, mapReadError(err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	var created user.Apartment
	err := pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		const insertUser = `
			INSERT INTO users (id, role, username, password_hash, name, email, contact, avatar_url,
			                   join_status, is_active, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $11)`
		_, err := tx.Exec(ctx, insertUser,
			u.ID, string(u.Role), u.Username, u.PasswordHash, u.Name,
			nullIfEmpty(u.Email), nullIfEmpty(u.Contact), u.AvatarURL,
			string(u.JoinStatus), u.IsActive, u.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("pg: insert user: %w", err)
		}

		switch p := u.Profile.(type) {
		case user.AdminProfile:
			created, err = attachApartment(ctx, tx, u.ID, p.Apartment)
			return err
		case user.ResidentProfile:
			return insertResident(ctx, tx, u.ID, p)
		}
		return nil
	})
	if err != nil {
		return mapError(err)
	}

	if _, ok := u.Profile.(user.AdminProfile); ok {
		u.Profile = user.AdminProfile{Apartment: created}
	}
	u.Version = 1
	return nil
}

// attachApartment crea el complejo o, si ya existe, lo asigna al admin
// siempre que no tenga uno. Un complejo ya administrado es UNIQUE_VIOLATION.
func attachApartment(ctx context.Context, tx pgx.Tx, adminID string, a user.Apartment) (user.Apartment, error) {
	a.AdminID = adminID
	if a.ID == "" {
		a.ID = uuid.NewString()
		_, err := tx.Exec(ctx, `
			INSERT INTO apartments (id, name, address, office_number, description, admin_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, a.Name, a.Address, a.OfficeNumber, a.Description, adminID,
		)
		if err != nil {
			return a, fmt.Errorf("pg: insert apartment: %w", err)
		}
		return a, nil
	}

	err := tx.QueryRow(ctx, `
		UPDATE apartments SET admin_id = $2, updated_at = now()
		WHERE id = $1 AND admin_id IS NULL
		RETURNING name, address, office_number, description`,
		a.ID, adminID,
	).Scan(&a.Name, &a.Address, &a.OfficeNumber, &a.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, repository.NewTechnical(repository.KindUnique,
			fmt.Errorf("pg: apartment %s missing or already managed", a.ID))
	}
	if err != nil {
		return a, fmt.Errorf("pg: attach apartment: %w", err)
	}
	return a, nil
}

func insertResident(ctx context.Context, tx pgx.Tx, userID string, p user.ResidentProfile) error {
	if p.HouseholdMemberID != "" {
		tag, err := tx.Exec(ctx, `
			UPDATE household_members SET user_id = $2
			WHERE id = $1 AND user_id IS NULL`,
			p.HouseholdMemberID, userID,
		)
		if err != nil {
			return fmt.Errorf("pg: claim household member: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return repository.NewTechnical(repository.KindUniqueContact,
				fmt.Errorf("pg: household member %s already claimed", p.HouseholdMemberID))
		}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO residents (user_id, apartment_id, household_member_id, building, unit, is_householder)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, p.ApartmentID, nullIfEmpty(p.HouseholdMemberID), p.Building, p.Unit, p.IsHouseholder,
	)
	if err != nil {
		return fmt.Errorf("pg: insert resident: %w", err)
	}
	return nil
}

func (r *userRepo) Update(ctx context.Context, u *user.User) error {
	var (
		version   int64
		updatedAt time.Time
	)
	err := pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE users SET
			    username = $3, password_hash = $4, name = $5, email = $6, contact = $7,
			    avatar_url = $8, join_status = $9, is_active = $10,
			    version = version + 1, updated_at = now()
			WHERE id = $1 AND version = $2
			RETURNING version, updated_at`,
			u.ID, u.Version, u.Username, u.PasswordHash, u.Name,
			nullIfEmpty(u.Email), nullIfEmpty(u.Contact), u.AvatarURL,
			string(u.JoinStatus), u.IsActive,
		).Scan(&version, &updatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.NewTechnical(repository.KindOptimisticLock,
				fmt.Errorf("pg: user %s not at version %d", u.ID, u.Version))
		}
		if err != nil {
			return fmt.Errorf("pg: update user: %w", err)
		}

		if a, ok := u.AdminApartment(); ok {
			_, err = tx.Exec(ctx, `
				UPDATE apartments SET name = $2, address = $3, office_number = $4,
				    description = $5, updated_at = now()
				WHERE admin_id = $1`,
				u.ID, a.Name, a.Address, a.OfficeNumber, a.Description,
			)
			if err != nil {
				return fmt.Errorf("pg: update apartment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return mapError(err)
	}
	u.Version = version
	u.UpdatedAt = updatedAt
	return nil
}

func (r *userRepo) BulkUpdateJoinStatus(ctx context.Context, f repository.JoinStatusFilter, to user.JoinStatus) (int64, error) {
	if to != user.StatusApproved && to != user.StatusRejected {
		return 0, fmt.Errorf("pg: bulk update to %q: %w", to, user.ErrInvalidTransition)
	}
	where, args := filterClause(f, 4)
	tag, err := r.q.Exec(ctx, `
		UPDATE users u SET join_status = $1, is_active = $2,
		    version = u.version + 1, updated_at = now()
		WHERE u.join_status = $3 AND `+where,
		append([]any{string(to), to == user.StatusApproved, string(user.StatusPending)}, args...)...,
	)
	if err != nil {
		return 0, mapError(fmt.Errorf("pg: bulk update join status: %w", err))
	}
	return tag.RowsAffected(), nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return mapError(fmt.Errorf("pg: delete user: %w", err))
	}
	return nil
}

func (r *userRepo) DeleteByStatus(ctx context.Context, f repository.JoinStatusFilter, status user.JoinStatus) ([]string, error) {
	where, args := filterClause(f, 2)
	rows, err := r.q.Query(ctx,
		`DELETE FROM users u WHERE u.join_status = $1 AND `+where+` RETURNING u.id::text`,
		append([]any{string(status)}, args...)...,
	)
	if err != nil {
		return nil, mapError(fmt.Errorf("pg: delete users by status: %w", err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(fmt.Errorf("pg: delete users by status: %w", err))
	}
	return ids, nil
}
