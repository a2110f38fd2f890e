// Package auth maneja login, rotación de refresh y logout.
//
// La sesión canónica vive en el cache bajo refresh:<userID> y guarda la huella
// (sha256) del refresh vigente. Un refresh es válido solo si su huella
// coincide con la guardada; cada rotación la reemplaza, así el token anterior
// deja de servir aunque su firma y exp sigan siendo válidas.
package auth

import (
	"context"
	"time"

	"github.com/june5815/welive/internal/cache"
	"github.com/june5815/welive/internal/domain/user"
	jwtx "github.com/june5815/welive/internal/jwt"
	"github.com/june5815/welive/internal/rate"
	"github.com/june5815/welive/internal/security/password"
	store "github.com/june5815/welive/internal/store/v2"
)

// DefaultSessionTTL es la vida de la sesión de refresh.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Service define las operaciones de sesión.
type Service interface {
	Login(ctx context.Context, in LoginInput) (*Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	// RevokeAll borra la sesión del usuario sin condiciones.
	RevokeAll(ctx context.Context, userID string) error
	// Authenticate valida un access token y retorna el actor.
	Authenticate(ctx context.Context, accessToken string) (user.Actor, error)
}

// SessionObserver recibe eventos de sesión (ver internal/metrics).
type SessionObserver interface {
	ObserveSession(event, result string)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	UoW      store.UnitOfWork
	Sessions cache.Client
	Codec    *jwtx.Codec
	Hasher   password.Hasher
	// SessionTTL: 0 usa DefaultSessionTTL.
	SessionTTL time.Duration
	Observer   SessionObserver
	// Limiter acota los intentos de login por username. nil = sin límite.
	Limiter *rate.Limiter
}

// LoginInput son las credenciales de login.
type LoginInput struct {
	Username string
	Password string
}

// Tokens es el resultado de login y refresh.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	// CSRFToken acompaña al refresh cuando viaja en cookie.
	CSRFToken string
	User      *user.User
}

type service struct {
	deps Deps
}

// NewService crea el servicio de sesiones.
func NewService(deps Deps) Service {
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = DefaultSessionTTL
	}
	return &service{deps: deps}
}

func sessionKey(userID string) string { return "refresh:" + userID }

func (s *service) observe(event, result string) {
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveSession(event, result)
	}
}
