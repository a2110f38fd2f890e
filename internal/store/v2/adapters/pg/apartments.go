package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
)

type apartmentRepo struct {
	q querier
}

const selectApartment = `
SELECT id::text, name, address, office_number, description, COALESCE(admin_id::text, '')
FROM apartments`

func scanApartment(row pgx.Row) (*user.Apartment, error) {
	var a user.Apartment
	if err := row.Scan(&a.ID, &a.Name, &a.Address, &a.OfficeNumber, &a.Description, &a.AdminID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *apartmentRepo) FindByID(ctx context.Context, id string, lock repository.LockMode) (*user.Apartment, error) {
	clause := lockClause(lock)
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	a, err := scanApartment(r.q.QueryRow(ctx, selectApartment+` WHERE id = $1`+clause, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return a, nil
}

func (r *apartmentRepo) FindByNaturalKey(ctx context.Context, key user.NaturalKey, lock repository.LockMode) (*user.Apartment, error) {
	a, err := scanApartment(r.q.QueryRow(ctx,
		selectApartment+` WHERE name = $1 AND address = $2 AND office_number = $3`+lockClause(lock),
		key.Name, key.Address, key.OfficeNumber,
	))
	if err != nil {
		return nil, mapReadError(err)
	}
	return a, nil
}

func (r *apartmentRepo) Create(ctx context.Context, a *user.Apartment) error {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO apartments (id, name, address, office_number, description, admin_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, a.Name, a.Address, a.OfficeNumber, a.Description, nullIfEmpty(a.AdminID),
	)
	if err != nil {
		return mapError(fmt.Errorf("pg: insert apartment: %w", err))
	}
	a.ID = id
	return nil
}

type householdRepo struct {
	q querier
}

func (r *householdRepo) Create(ctx context.Context, m *repository.HouseholdMember) error {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO household_members (id, apartment_id, building, unit, name, contact, is_householder)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, m.ApartmentID, m.Building, m.Unit, m.Name, m.Contact, m.IsHouseholder,
	)
	if err != nil {
		return mapError(fmt.Errorf("pg: insert household member: %w", err))
	}
	m.ID = id
	return nil
}

func (r *householdRepo) FindByContact(ctx context.Context, contact string, lock repository.LockMode) (*repository.HouseholdMember, error) {
	var m repository.HouseholdMember
	err := r.q.QueryRow(ctx, `
		SELECT id::text, apartment_id::text, building, unit, name, contact, is_householder,
		       COALESCE(user_id::text, '')
		FROM household_members
		WHERE contact = $1`+lockClause(lock), contact,
	).Scan(&m.ID, &m.ApartmentID, &m.Building, &m.Unit, &m.Name, &m.Contact, &m.IsHouseholder, &m.UserID)
	if err != nil {
		return nil, mapReadError(err)
	}
	return &m, nil
}
