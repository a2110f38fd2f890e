package users

import (
	"context"

	"github.com/june5815/welive/internal/apperrors"
	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	"github.com/june5815/welive/internal/observability/logger"
	store "github.com/june5815/welive/internal/store/v2"
)

// Approve aprueba una cuenta. Ver transition.
func (s *service) Approve(ctx context.Context, actor user.Actor, id string) (*user.User, error) {
	return s.transition(ctx, "Approve", actor, id, user.StatusApproved)
}

// Reject rechaza una cuenta. Ver transition.
func (s *service) Reject(ctx context.Context, actor user.Actor, id string) (*user.User, error) {
	return s.transition(ctx, "Reject", actor, id, user.StatusRejected)
}

// transition bloquea la fila (FOR UPDATE), valida permisos y la transición,
// y persiste. Repetir el estado actual no escribe ni cambia la versión.
func (s *service) transition(ctx context.Context, op string, actor user.Actor, id string, to user.JoinStatus) (*user.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op(op),
		logger.ActorID(actor.ID),
		logger.UserID(id),
	)

	u, err := store.Do(ctx, s.deps.UoW, s.txOpts(), func(ctx context.Context, sc store.Scope) (*user.User, error) {
		a, err := loadActor(ctx, sc, actor)
		if err != nil {
			return nil, err
		}
		u, err := sc.Users().FindByID(ctx, id, repository.LockUpdate)
		if err != nil {
			return nil, err
		}
		if !manages(a, u) {
			return nil, apperrors.ErrForbidden
		}

		from := u.JoinStatus
		if err := u.Transition(to); err != nil {
			return nil, err
		}
		if from == to {
			return u, nil
		}
		if err := sc.Users().Update(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		log.Debug("transition failed", logger.Err(err))
		return nil, remap(err)
	}
	log.Info("join status changed", logger.JoinStatus(u.JoinStatus.String()), logger.Version(u.Version))
	return u, nil
}

// BulkApprove aprueba todas las cuentas PENDING que el actor administra.
func (s *service) BulkApprove(ctx context.Context, actor user.Actor, role user.Role) (int64, error) {
	return s.bulkTransition(ctx, "BulkApprove", actor, role, user.StatusApproved)
}

// BulkReject rechaza todas las cuentas PENDING que el actor administra.
func (s *service) BulkReject(ctx context.Context, actor user.Actor, role user.Role) (int64, error) {
	return s.bulkTransition(ctx, "BulkReject", actor, role, user.StatusRejected)
}

// bulkTransition bloquea el conjunto de filas del rol y mueve las PENDING.
// Las filas APPROVED o REJECTED no se tocan. Si vence BulkTimeout, nada se
// aplica.
func (s *service) bulkTransition(ctx context.Context, op string, actor user.Actor, role user.Role, to user.JoinStatus) (int64, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op(op),
		logger.ActorID(actor.ID),
		logger.Role(role.String()),
	)

	n, err := store.Do(ctx, s.deps.UoW, s.bulkOpts(), func(ctx context.Context, sc store.Scope) (int64, error) {
		a, err := loadActor(ctx, sc, actor)
		if err != nil {
			return 0, err
		}
		f, err := bulkFilter(a, role)
		if err != nil {
			return 0, err
		}
		if err := sc.Users().LockByRole(ctx, f, repository.LockUpdate); err != nil {
			return 0, err
		}
		return sc.Users().BulkUpdateJoinStatus(ctx, f, to)
	})
	if err != nil {
		log.Warn("bulk transition failed", logger.Err(err))
		return 0, remap(err)
	}
	log.Info("bulk transition applied", logger.JoinStatus(to.String()), logger.Count(n))
	return n, nil
}

// DeleteRejected borra las cuentas REJECTED que el actor administra y corta
// sus sesiones. Retorna cuántas borró.
func (s *service) DeleteRejected(ctx context.Context, actor user.Actor, role user.Role) (int64, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("users"),
		logger.Op("DeleteRejected"),
		logger.ActorID(actor.ID),
		logger.Role(role.String()),
	)

	ids, err := store.Do(ctx, s.deps.UoW, s.bulkOpts(), func(ctx context.Context, sc store.Scope) ([]string, error) {
		a, err := loadActor(ctx, sc, actor)
		if err != nil {
			return nil, err
		}
		f, err := bulkFilter(a, role)
		if err != nil {
			return nil, err
		}
		if err := sc.Users().LockByRole(ctx, f, repository.LockUpdate); err != nil {
			return nil, err
		}
		return sc.Users().DeleteByStatus(ctx, f, user.StatusRejected)
	})
	if err != nil {
		log.Warn("delete rejected failed", logger.Err(err))
		return 0, remap(err)
	}

	for _, id := range ids {
		s.revoke(ctx, id)
	}
	log.Info("rejected accounts deleted", logger.Count(int64(len(ids))))
	return int64(len(ids)), nil
}

// revoke corta la sesión de id. Una falla se registra pero no revierte la
// operación ya confirmada.
func (s *service) revoke(ctx context.Context, id string) {
	if s.deps.Sessions == nil {
		return
	}
	if err := s.deps.Sessions.RevokeAll(ctx, id); err != nil {
		logger.From(ctx).Warn("session revoke failed",
			logger.Layer("service"),
			logger.Component("users"),
			logger.UserID(id),
			logger.Err(err),
		)
	}
}
