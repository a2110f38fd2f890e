// Package store define el Unit of Work y el registry de adapters de
// almacenamiento. Los adapters concretos (pg, memory) se registran en init().
package store

import (
	"context"
	"time"

	"github.com/june5815/welive/internal/domain/repository"
)

// IsolationLevel es el nivel de aislamiento de una transacción.
type IsolationLevel string

const (
	ReadCommitted  IsolationLevel = "READ COMMITTED"
	RepeatableRead IsolationLevel = "REPEATABLE READ"
	Serializable   IsolationLevel = "SERIALIZABLE"
)

// Valid indica si el nivel es uno de los soportados.
func (l IsolationLevel) Valid() bool {
	switch l {
	case ReadCommitted, RepeatableRead, Serializable:
		return true
	}
	return false
}

// OrDefault retorna ReadCommitted si l está vacío.
func (l IsolationLevel) OrDefault() IsolationLevel {
	if l == "" {
		return ReadCommitted
	}
	return l
}

// TxOptions controla si hay transacción, con qué aislamiento y por cuánto tiempo.
type TxOptions struct {
	UseTransaction bool
	Isolation      IsolationLevel
	// Timeout > 0 aborta (rollback) la unidad de trabajo al vencer.
	Timeout time.Duration
}

// Options es lo que cada caso de uso declara al abrir una unidad de trabajo.
type Options struct {
	Tx TxOptions
	// UseOptimisticLock marca que la unidad confía en el predicado de versión
	// de Update en lugar de bloqueos de fila. Es metadata: los repositorios
	// siempre incluyen la versión en el WHERE.
	UseOptimisticLock bool
}

// Strategy describe la estrategia de concurrencia para métricas y logs.
func (o Options) Strategy() string {
	switch {
	case o.UseOptimisticLock:
		return "optimistic"
	case o.Tx.UseTransaction:
		return "pessimistic"
	default:
		return "none"
	}
}

// Isolation retorna el nivel efectivo ("none" sin transacción).
func (o Options) Isolation() string {
	if !o.Tx.UseTransaction {
		return "none"
	}
	return string(o.Tx.Isolation.OrDefault())
}

// WithTimeout retorna una copia con el timeout dado.
func (o Options) WithTimeout(d time.Duration) Options {
	o.Tx.Timeout = d
	return o
}

// Optimistic: sin transacción, confiando en el predicado de versión.
func Optimistic() Options {
	return Options{UseOptimisticLock: true}
}

// NoTx: sin transacción ni estrategia (lecturas simples).
func NoTx() Options {
	return Options{}
}

// InTx: transacción con el aislamiento dado (ReadCommitted si vacío).
func InTx(iso IsolationLevel) Options {
	return Options{Tx: TxOptions{UseTransaction: true, Isolation: iso.OrDefault()}}
}

// Scope expone los repositorios ligados al handle de la unidad de trabajo
// (transacción o pool). No debe usarse después de que la función retorna.
type Scope interface {
	Users() repository.UserRepository
	Apartments() repository.ApartmentRepository
	Households() repository.HouseholdRepository
	Options() Options
}

// Work es el cuerpo de una unidad de trabajo.
type Work func(ctx context.Context, s Scope) error

// UnitOfWork ejecuta Work con las opciones dadas.
//
// Con UseTransaction, todo lo hecho por Work se confirma junto o se descarta
// junto; un error de Work (o un panic) provoca rollback y el error se
// propaga sin cambios. Sin transacción cada sentencia es atómica por sí misma.
type UnitOfWork interface {
	DoTx(ctx context.Context, opts Options, work Work) error
}

// Do es la variante de DoTx que retorna un valor.
func Do[T any](ctx context.Context, uow UnitOfWork, opts Options, fn func(ctx context.Context, s Scope) (T, error)) (T, error) {
	var out T
	err := uow.DoTx(ctx, opts, func(ctx context.Context, s Scope) error {
		v, err := fn(ctx, s)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// WithDeadline aplica opts.Tx.Timeout al contexto. Los adapters lo usan al
// abrir la unidad de trabajo.
func WithDeadline(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	if opts.Tx.Timeout > 0 {
		return context.WithTimeout(ctx, opts.Tx.Timeout)
	}
	return context.WithCancel(ctx)
}
