package users

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/june5815/welive/internal/apperrors"
	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	"github.com/june5815/welive/internal/observability/logger"
	"github.com/june5815/welive/internal/security/password"
	store "github.com/june5815/welive/internal/store/v2"
)

// account normaliza y valida los datos comunes y hashea la contraseña.
func (s *service) account(in AccountInput) (user.Account, error) {
	acc := user.Account{
		Username:  strings.TrimSpace(in.Username),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Contact:   strings.TrimSpace(in.Contact),
		AvatarURL: strings.TrimSpace(in.AvatarURL),
	}

	var missing []string
	for field, v := range map[string]string{
		"username": acc.Username,
		"password": in.Password,
		"name":     acc.Name,
		"email":    acc.Email,
		"contact":  acc.Contact,
	} {
		if v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return user.Account{}, apperrors.ErrBadRequest.WithDetail("missing: " + strings.Join(missing, ", "))
	}

	if err := s.deps.Policy.Validate(in.Password); err != nil {
		return user.Account{}, weakPassword(err)
	}

	hash, err := s.deps.Hasher.Hash(in.Password)
	if err != nil {
		return user.Account{}, err
	}
	acc.PasswordHash = hash
	return acc, nil
}

func weakPassword(err error) *apperrors.AppError {
	var pe *password.PolicyError
	if errors.As(err, &pe) {
		return apperrors.ErrPasswordTooWeak.WithDetail(strings.Join(pe.Reasons, ", "))
	}
	return apperrors.ErrPasswordTooWeak.WithCause(err)
}

func apartmentFrom(in ApartmentInput) (user.Apartment, error) {
	a := user.Apartment{
		Name:         strings.TrimSpace(in.Name),
		Address:      strings.TrimSpace(in.Address),
		OfficeNumber: strings.TrimSpace(in.OfficeNumber),
		Description:  strings.TrimSpace(in.Description),
	}
	if a.Name == "" || a.Address == "" || a.OfficeNumber == "" {
		return user.Apartment{}, apperrors.ErrBadRequest.WithDetail("apartment name, address and office number are required")
	}
	return a, nil
}

// Create da de alta una cuenta ADMIN o RESIDENT.
//
// ADMIN: si ya hay un complejo con la misma clave natural y sin admin, la
// cuenta se asocia a él; si ya tiene admin, falla con DUPLICATE_PROPERTY.
// RESIDENT: si el contacto coincide con un miembro pre-registrado del mismo
// complejo, la cuenta se asocia a él y nace aprobada.
func (s *service) Create(ctx context.Context, in CreateInput) (*user.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op("Create"),
		logger.Role(in.Role.String()),
	)

	switch in.Role {
	case user.RoleAdmin:
		if in.Apartment == nil {
			return nil, apperrors.ErrBadRequest.WithDetail("apartment is required for ADMIN")
		}
	case user.RoleResident:
		if in.Resident == nil || strings.TrimSpace(in.Resident.ApartmentID) == "" {
			return nil, apperrors.ErrBadRequest.WithDetail("apartment id is required for RESIDENT")
		}
	case user.RoleSuperAdmin:
		return nil, apperrors.ErrForbidden.WithDetail("SUPER_ADMIN accounts are provisioned out of band")
	default:
		return nil, apperrors.ErrBadRequest.WithDetail("unknown role")
	}

	acc, err := s.account(in.AccountInput)
	if err != nil {
		return nil, err
	}

	var work func(ctx context.Context, sc store.Scope) (*user.User, error)
	if in.Role == user.RoleAdmin {
		apt, err := apartmentFrom(*in.Apartment)
		if err != nil {
			return nil, err
		}
		work = func(ctx context.Context, sc store.Scope) (*user.User, error) {
			return s.createAdmin(ctx, sc, acc, apt)
		}
	} else {
		res := *in.Resident
		work = func(ctx context.Context, sc store.Scope) (*user.User, error) {
			return s.createResident(ctx, sc, acc, res)
		}
	}

	u, err := store.Do(ctx, s.deps.UoW, s.txOpts(), work)
	if err != nil {
		log.Debug("create failed", logger.Err(err))
		return nil, remap(err)
	}
	log.Info("user created",
		logger.UserID(u.ID),
		logger.JoinStatus(u.JoinStatus.String()),
		logger.ApartmentID(u.ApartmentID()),
	)
	return u, nil
}

func (s *service) createAdmin(ctx context.Context, sc store.Scope, acc user.Account, apt user.Apartment) (*user.User, error) {
	existing, err := sc.Apartments().FindByNaturalKey(ctx, apt.Key(), repository.LockUpdate)
	switch {
	case err == nil:
		if existing.Managed() {
			return nil, apperrors.ErrDuplicateProperty
		}
		apt = *existing
	case repository.IsNotFound(err):
	default:
		return nil, err
	}

	u := user.NewAdmin(acc, apt, s.deps.Now())
	if err := sc.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) createResident(ctx context.Context, sc store.Scope, acc user.Account, in ResidentInput) (*user.User, error) {
	aptID := strings.TrimSpace(in.ApartmentID)
	if _, err := sc.Apartments().FindByID(ctx, aptID, repository.LockShare); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrNotFound.WithDetail("apartment")
		}
		return nil, err
	}

	p := user.ResidentProfile{
		ApartmentID:   aptID,
		Building:      strings.TrimSpace(in.Building),
		Unit:          strings.TrimSpace(in.Unit),
		IsHouseholder: in.IsHouseholder,
	}

	preRegistered := false
	m, err := sc.Households().FindByContact(ctx, acc.Contact, repository.LockUpdate)
	switch {
	case err == nil:
		if m.UserID != "" {
			return nil, apperrors.ErrDuplicateContact
		}
		if m.ApartmentID == aptID {
			preRegistered = true
			p.HouseholdMemberID = m.ID
			p.Building = m.Building
			p.Unit = m.Unit
			p.IsHouseholder = m.IsHouseholder
		}
	case repository.IsNotFound(err):
	default:
		return nil, err
	}

	u := user.NewResident(acc, p, preRegistered, s.deps.Now())
	if err := sc.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SeedSuperAdmin crea la cuenta SUPER_ADMIN (aprobada desde el alta). Si el
// username ya pertenece a un SUPER_ADMIN, retorna esa cuenta sin cambios.
func (s *service) SeedSuperAdmin(ctx context.Context, in AccountInput) (*user.User, error) {
	acc, err := s.account(in)
	if err != nil {
		return nil, err
	}

	u, err := store.Do(ctx, s.deps.UoW, s.txOpts(), func(ctx context.Context, sc store.Scope) (*user.User, error) {
		cur, err := sc.Users().FindByUsername(ctx, acc.Username)
		switch {
		case err == nil:
			if cur.Role != user.RoleSuperAdmin {
				return nil, apperrors.ErrDuplicateUsername
			}
			return cur, nil
		case !repository.IsNotFound(err):
			return nil, err
		}

		u := user.NewSuperAdmin(acc, s.deps.Now())
		if err := sc.Users().Create(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		return nil, remap(err)
	}
	logger.From(ctx).Info("super admin ready",
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op("SeedSuperAdmin"),
		logger.UserID(u.ID),
	)
	return u, nil
}

// CreateApartment registra un complejo sin admin. Solo SUPER_ADMIN.
func (s *service) CreateApartment(ctx context.Context, actor user.Actor, in ApartmentInput) (*user.Apartment, error) {
	apt, err := apartmentFrom(in)
	if err != nil {
		return nil, err
	}

	out, err := store.Do(ctx, s.deps.UoW, s.txOpts(), func(ctx context.Context, sc store.Scope) (*user.Apartment, error) {
		a, err := loadActor(ctx, sc, actor)
		if err != nil {
			return nil, err
		}
		if a.Role != user.RoleSuperAdmin {
			return nil, apperrors.ErrForbidden
		}
		if err := sc.Apartments().Create(ctx, &apt); err != nil {
			return nil, err
		}
		return &apt, nil
	})
	if err != nil {
		return nil, remap(err)
	}
	return out, nil
}

// PreRegister carga un miembro de hogar en el complejo del admin. Cuando un
// residente se registre con ese contacto quedará aprobado.
func (s *service) PreRegister(ctx context.Context, actor user.Actor, in HouseholdInput) (*repository.HouseholdMember, error) {
	m := repository.HouseholdMember{
		Building:      strings.TrimSpace(in.Building),
		Unit:          strings.TrimSpace(in.Unit),
		Name:          strings.TrimSpace(in.Name),
		Contact:       strings.TrimSpace(in.Contact),
		IsHouseholder: in.IsHouseholder,
	}
	if m.Contact == "" || m.Name == "" || m.Building == "" || m.Unit == "" {
		return nil, apperrors.ErrBadRequest.WithDetail("building, unit, name and contact are required")
	}

	out, err := store.Do(ctx, s.deps.UoW, s.txOpts(), func(ctx context.Context, sc store.Scope) (*repository.HouseholdMember, error) {
		a, err := loadActor(ctx, sc, actor)
		if err != nil {
			return nil, err
		}
		if a.Role != user.RoleAdmin || a.ApartmentID() == "" {
			return nil, apperrors.ErrForbidden
		}
		m.ApartmentID = a.ApartmentID()
		if err := sc.Households().Create(ctx, &m); err != nil {
			return nil, err
		}
		return &m, nil
	})
	if err != nil {
		return nil, remap(err)
	}
	return out, nil
}
