package users

import (
	"context"
	"sort"
	"strings"

	"github.com/june5815/welive/internal/apperrors"
	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	"github.com/june5815/welive/internal/observability/logger"
	store "github.com/june5815/welive/internal/store/v2"
)

// Get lee una cuenta sin transacción.
func (s *service) Get(ctx context.Context, actor user.Actor, id string) (*user.User, error) {
	u, err := store.Do(ctx, s.deps.UoW, store.NoTx(), func(ctx context.Context, sc store.Scope) (*user.User, error) {
		a, err := loadActor(ctx, sc, actor)
		if err != nil {
			return nil, err
		}
		u, err := sc.Users().FindByID(ctx, id, repository.LockNone)
		if err != nil {
			return nil, err
		}
		if !canRead(a, u) {
			return nil, apperrors.ErrForbidden
		}
		return u, nil
	})
	if err != nil {
		return nil, remap(err)
	}
	return u, nil
}

// UpdateProfile aplica un parche parcial sobre la propia cuenta con control
// optimista: la escritura exige la versión que el cliente leyó. Si el parche
// toca el complejo (dos tablas) corre en transacción.
func (s *service) UpdateProfile(ctx context.Context, actor user.Actor, in UpdateProfileInput) (*user.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op("UpdateProfile"),
		logger.UserID(in.UserID),
		logger.ExpectedVersion(in.Version),
	)

	if in.Patch.Empty() {
		return nil, apperrors.ErrBadRequest.WithDetail("nothing to update")
	}
	if actor.ID != in.UserID {
		return nil, apperrors.ErrForbidden
	}
	patch, err := cleanPatch(in.Patch)
	if err != nil {
		return nil, err
	}

	opts := store.Optimistic()
	if in.Patch.TouchesApartment() {
		opts.Tx = s.txOpts().Tx
	}

	u, err := store.Do(ctx, s.deps.UoW, opts, func(ctx context.Context, sc store.Scope) (*user.User, error) {
		u, err := sc.Users().FindByID(ctx, in.UserID, repository.LockNone)
		if err != nil {
			return nil, err
		}
		u.Version = in.Version
		if err := u.UpdateProfile(patch); err != nil {
			return nil, err
		}
		if err := sc.Users().Update(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		log.Debug("update profile failed", logger.Err(err))
		return nil, remap(err)
	}
	log.Info("profile updated", logger.Version(u.Version))
	return u, nil
}

// cleanPatch aplica al parche la misma normalización que el alta: recorta
// espacios, pasa el email a minúsculas y no deja vaciar campos obligatorios.
func cleanPatch(p user.Patch) (user.Patch, error) {
	var empty []string
	trim := func(field string, v *string, required bool) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		if required && t == "" {
			empty = append(empty, field)
		}
		return &t
	}

	out := user.Patch{
		Name:      trim("name", p.Name, true),
		Email:     trim("email", p.Email, true),
		Contact:   trim("contact", p.Contact, true),
		AvatarURL: trim("avatar_url", p.AvatarURL, false),
	}
	if out.Email != nil {
		*out.Email = strings.ToLower(*out.Email)
	}
	if p.Apartment != nil {
		out.Apartment = &user.ApartmentPatch{
			Name:         trim("apartment.name", p.Apartment.Name, true),
			Address:      trim("apartment.address", p.Apartment.Address, true),
			OfficeNumber: trim("apartment.office_number", p.Apartment.OfficeNumber, true),
			Description:  trim("apartment.description", p.Apartment.Description, false),
		}
	}
	if len(empty) > 0 {
		sort.Strings(empty)
		return user.Patch{}, apperrors.ErrBadRequest.WithDetail("empty: " + strings.Join(empty, ", "))
	}
	return out, nil
}

// ChangePassword verifica la contraseña actual, guarda la nueva con control
// optimista y corta todas las sesiones.
func (s *service) ChangePassword(ctx context.Context, actor user.Actor, in ChangePasswordInput) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op("ChangePassword"),
		logger.UserID(in.UserID),
	)

	if actor.ID != in.UserID {
		return apperrors.ErrForbidden
	}
	if err := s.deps.Policy.Validate(in.Next); err != nil {
		return weakPassword(err)
	}
	hash, err := s.deps.Hasher.Hash(in.Next)
	if err != nil {
		return err
	}

	err = s.deps.UoW.DoTx(ctx, store.Optimistic(), func(ctx context.Context, sc store.Scope) error {
		u, err := sc.Users().FindByID(ctx, in.UserID, repository.LockNone)
		if err != nil {
			return err
		}
		if !s.deps.Hasher.Compare(u.PasswordHash, in.Current) {
			return apperrors.ErrInvalidCredentials
		}
		u.Version = in.Version
		u.UpdatePassword(hash)
		return sc.Users().Update(ctx, u)
	})
	if err != nil {
		log.Debug("change password failed", logger.Err(err))
		return remap(err)
	}

	s.revoke(ctx, in.UserID)
	log.Info("password changed")
	return nil
}

// Delete borra una cuenta propia o administrada. Borrar una cuenta que ya no
// existe es éxito. Las cuentas SUPER_ADMIN no se borran.
func (s *service) Delete(ctx context.Context, actor user.Actor, id string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op("Delete"),
		logger.ActorID(actor.ID),
		logger.UserID(id),
	)

	err := s.deps.UoW.DoTx(ctx, s.txOpts(), func(ctx context.Context, sc store.Scope) error {
		u, err := sc.Users().FindByID(ctx, id, repository.LockUpdate)
		if repository.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		a, err := loadActor(ctx, sc, actor)
		if err != nil {
			return err
		}
		if u.Role == user.RoleSuperAdmin || (a.ID != u.ID && !manages(a, u)) {
			return apperrors.ErrForbidden
		}
		return sc.Users().Delete(ctx, u.ID)
	})
	if err != nil {
		log.Debug("delete failed", logger.Err(err))
		return remap(err)
	}

	s.revoke(ctx, id)
	log.Info("user deleted")
	return nil
}
