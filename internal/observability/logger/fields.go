package logger

import (
	"time"

	"go.uber.org/zap"
)

// ---- sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }

// Layer: handler, service, repository, uow.
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field            { return zap.Error(err) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Count(v int64) zap.Field            { return zap.Int64("count", v) }
func String(key, v string) zap.Field     { return zap.String(key, v) }
func Bool(key string, v bool) zap.Field  { return zap.Bool(key, v) }

// ---- negocio ----

// UserID identifica el usuario afectado por la operación.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// ActorID identifica quién ejecuta la operación (puede diferir de UserID).
func ActorID(v string) zap.Field { return zap.String("actor_id", v) }

func Role(v string) zap.Field        { return zap.String("role", v) }
func JoinStatus(v string) zap.Field  { return zap.String("join_status", v) }
func ApartmentID(v string) zap.Field { return zap.String("apartment_id", v) }
func Version(v int64) zap.Field      { return zap.Int64("version", v) }

// ExpectedVersion es la versión que el cliente leyó antes de escribir.
func ExpectedVersion(v int64) zap.Field { return zap.Int64("expected_version", v) }

// ---- unit of work ----

func Isolation(v string) zap.Field { return zap.String("isolation", v) }

// Strategy: "optimistic" o "pessimistic".
func Strategy(v string) zap.Field { return zap.String("strategy", v) }

func ErrorKind(v string) zap.Field { return zap.String("error_kind", v) }
