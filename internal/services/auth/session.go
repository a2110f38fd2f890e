package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/june5815/welive/internal/apperrors"
	"github.com/june5815/welive/internal/cache"
	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	jwtx "github.com/june5815/welive/internal/jwt"
	"github.com/june5815/welive/internal/observability/logger"
	"github.com/june5815/welive/internal/security/token"
	store "github.com/june5815/welive/internal/store/v2"
)

// gate traduce el estado de admisión a un error de negocio.
func gate(u *user.User) error {
	switch u.JoinStatus {
	case user.StatusApproved:
		return nil
	case user.StatusPending:
		return apperrors.ErrAccountPending
	case user.StatusRejected:
		return apperrors.ErrAccountRejected
	}
	return apperrors.ErrUnknownServer.WithCause(fmt.Errorf("auth: unexpected join status %q", u.JoinStatus))
}

// Login valida credenciales fuera de transacción y abre una sesión nueva,
// reemplazando cualquier sesión anterior del usuario.
func (s *service) Login(ctx context.Context, in LoginInput) (*Tokens, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.session"),
		logger.Op("Login"),
	)

	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		s.observe("login", "denied")
		return nil, apperrors.ErrInvalidCredentials
	}

	// Si el contador no responde se deja pasar: el límite no debe tumbar
	// el login.
	if res, err := s.deps.Limiter.Allow(ctx, "login:"+username); err != nil {
		log.Warn("login limiter unavailable", logger.Err(err))
	} else if !res.Allowed {
		s.observe("login", "throttled")
		return nil, apperrors.ErrTooManyAttempts.WithDetail(fmt.Sprintf("retry_after=%s", res.RetryAfter.Round(time.Second)))
	}

	u, err := store.Do(ctx, s.deps.UoW, store.NoTx(), func(ctx context.Context, sc store.Scope) (*user.User, error) {
		return sc.Users().FindByUsername(ctx, username)
	})
	if err != nil {
		if repository.IsNotFound(err) {
			s.observe("login", "denied")
			return nil, apperrors.ErrInvalidCredentials
		}
		s.observe("login", "error")
		log.Error("find user failed", logger.Err(err))
		return nil, apperrors.Remap(err)
	}

	if !s.deps.Hasher.Compare(u.PasswordHash, in.Password) {
		s.observe("login", "denied")
		log.Debug("password mismatch", logger.UserID(u.ID))
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := gate(u); err != nil {
		s.observe("login", "denied")
		log.Debug("login blocked by join status", logger.UserID(u.ID), logger.JoinStatus(u.JoinStatus.String()))
		return nil, err
	}

	out, err := s.openSession(ctx, u)
	if err != nil {
		s.observe("login", "error")
		log.Error("open session failed", logger.UserID(u.ID), logger.Err(err))
		return nil, err
	}
	s.observe("login", "ok")
	log.Info("login", logger.UserID(u.ID), logger.Role(u.Role.String()))
	return out, nil
}

// Refresh rota el refresh token. La fila del usuario se bloquea FOR UPDATE
// mientras se compara y reemplaza la sesión, así dos refresh concurrentes
// con el mismo token no pueden ganar ambos.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.session"),
		logger.Op("Refresh"),
	)

	refreshToken = strings.TrimSpace(refreshToken)
	claims, err := s.deps.Codec.Verify(refreshToken, jwtx.TypeRefresh)
	if err != nil {
		s.observe("refresh", "denied")
		log.Debug("refresh token rejected", logger.Err(err))
		return nil, apperrors.ErrUnauthorizedSession.WithCause(err)
	}
	log = log.With(logger.UserID(claims.Subject))

	out, err := store.Do(ctx, s.deps.UoW, store.InTx(store.ReadCommitted),
		func(ctx context.Context, sc store.Scope) (*Tokens, error) {
			u, err := sc.Users().FindByID(ctx, claims.Subject, repository.LockUpdate)
			if err != nil {
				if repository.IsNotFound(err) {
					return nil, apperrors.ErrUnauthorizedSession.WithCause(err)
				}
				return nil, err
			}

			stored, err := s.deps.Sessions.Get(ctx, sessionKey(u.ID))
			if err != nil {
				if cache.IsNotFound(err) {
					return nil, apperrors.ErrUnauthorizedSession
				}
				return nil, err
			}
			if !token.Equal(stored, token.Fingerprint(refreshToken)) {
				return nil, apperrors.ErrUnauthorizedSession
			}
			if err := gate(u); err != nil {
				return nil, err
			}
			return s.openSession(ctx, u)
		})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			s.observe("refresh", "denied")
			log.Debug("refresh denied", logger.Err(err))
		} else {
			s.observe("refresh", "error")
			log.Error("refresh failed", logger.Err(err))
		}
		return nil, apperrors.Remap(err)
	}
	s.observe("refresh", "ok")
	log.Debug("session rotated")
	return out, nil
}

// Logout es tolerante: un token ilegible, una sesión inexistente o de otro
// token terminan en éxito sin tocar nada. Solo borra si el token presentado
// es el vigente.
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.session"),
		logger.Op("Logout"),
	)

	refreshToken = strings.TrimSpace(refreshToken)
	claims, err := s.deps.Codec.Verify(refreshToken, jwtx.TypeRefresh)
	if err != nil {
		s.observe("logout", "noop")
		log.Debug("logout with unusable token", logger.Err(err))
		return nil
	}

	deleted, err := s.deps.Sessions.CompareAndDelete(ctx, sessionKey(claims.Subject), token.Fingerprint(refreshToken))
	if err != nil {
		s.observe("logout", "error")
		log.Error("session delete failed", logger.UserID(claims.Subject), logger.Err(err))
		return err
	}
	if !deleted {
		s.observe("logout", "noop")
		return nil
	}
	s.observe("logout", "ok")
	log.Info("logout", logger.UserID(claims.Subject))
	return nil
}

// RevokeAll borra la sesión del usuario. Se usa al cambiar la contraseña y al
// eliminar la cuenta.
func (s *service) RevokeAll(ctx context.Context, userID string) error {
	if err := s.deps.Sessions.Delete(ctx, sessionKey(userID)); err != nil {
		s.observe("revoke", "error")
		logger.From(ctx).Error("session revoke failed",
			logger.Layer("service"),
			logger.Component("auth.session"),
			logger.UserID(userID),
			logger.Err(err),
		)
		return err
	}
	s.observe("revoke", "ok")
	return nil
}

// Authenticate valida un access token. No consulta la sesión: el access
// token vive poco y no se revoca.
func (s *service) Authenticate(_ context.Context, accessToken string) (user.Actor, error) {
	claims, err := s.deps.Codec.Verify(strings.TrimSpace(accessToken), jwtx.TypeAccess)
	if err != nil {
		return user.Actor{}, apperrors.ErrUnauthorizedSession.WithCause(err)
	}
	role, err := user.ParseRole(claims.Role)
	if err != nil {
		return user.Actor{}, apperrors.ErrUnauthorizedSession.WithCause(err)
	}
	return user.Actor{ID: claims.Subject, Role: role}, nil
}

// openSession emite el par de tokens y guarda la huella del refresh con TTL
// nuevo. Una sesión anterior queda sobreescrita.
func (s *service) openSession(ctx context.Context, u *user.User) (*Tokens, error) {
	sub := jwtx.Subject{UserID: u.ID, Role: u.Role.String()}

	refresh, refreshExp, err := s.deps.Codec.Issue(jwtx.TypeRefresh, sub)
	if err != nil {
		return nil, err
	}
	access, accessExp, err := s.deps.Codec.Issue(jwtx.TypeAccess, sub)
	if err != nil {
		return nil, err
	}
	csrf, err := token.Opaque(32)
	if err != nil {
		return nil, err
	}

	if err := s.deps.Sessions.Set(ctx, sessionKey(u.ID), token.Fingerprint(refresh), s.deps.SessionTTL); err != nil {
		return nil, fmt.Errorf("auth: store session: %w", err)
	}

	return &Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		CSRFToken:        csrf,
		User:             u,
	}, nil
}
