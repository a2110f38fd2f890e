package users

import (
	"context"

	"github.com/june5815/welive/internal/apperrors"
	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	store "github.com/june5815/welive/internal/store/v2"
)

// loadActor lee la cuenta del actor. Debe existir, estar aprobada y tener el
// rol que dice el token.
func loadActor(ctx context.Context, sc store.Scope, actor user.Actor) (*user.User, error) {
	u, err := sc.Users().FindByID(ctx, actor.ID, repository.LockNone)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrUnauthorizedSession.WithCause(err)
		}
		return nil, err
	}
	if u.Role != actor.Role || u.JoinStatus != user.StatusApproved {
		return nil, apperrors.ErrForbidden
	}
	return u, nil
}

// manages indica si actor administra la cuenta target: SUPER_ADMIN a los
// ADMIN, un ADMIN a los RESIDENT de su complejo. Nadie administra a un
// SUPER_ADMIN.
func manages(actor, target *user.User) bool {
	switch actor.Role {
	case user.RoleSuperAdmin:
		return target.Role == user.RoleAdmin
	case user.RoleAdmin:
		return target.Role == user.RoleResident &&
			actor.ApartmentID() != "" &&
			target.ApartmentID() == actor.ApartmentID()
	}
	return false
}

// canRead: uno mismo, quien lo administra o un SUPER_ADMIN.
func canRead(actor, target *user.User) bool {
	return actor.ID == target.ID || actor.Role == user.RoleSuperAdmin || manages(actor, target)
}

// bulkFilter arma el filtro de una operación masiva sobre role. Un ADMIN
// queda acotado a su complejo.
func bulkFilter(actor *user.User, role user.Role) (repository.JoinStatusFilter, error) {
	switch {
	case actor.Role == user.RoleSuperAdmin && role == user.RoleAdmin:
		return repository.JoinStatusFilter{Role: user.RoleAdmin}, nil
	case actor.Role == user.RoleAdmin && role == user.RoleResident:
		return repository.JoinStatusFilter{Role: user.RoleResident, ApartmentID: actor.ApartmentID()}, nil
	}
	return repository.JoinStatusFilter{}, apperrors.ErrForbidden
}
