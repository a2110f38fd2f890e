// Package memory implementa store/v2 en memoria, para desarrollo y tests.
//
// Todas las sentencias y transacciones se serializan sobre un único
// semáforo: una transacción lo retiene de principio a fin y trabaja sobre una
// copia del estado que reemplaza al original solo en commit. Eso da
// aislamiento serializable y hace que los pedidos de lock sean no-ops.
package memory

import (
	"context"
	"time"

	"github.com/june5815/welive/internal/domain/repository"
	store "github.com/june5815/welive/internal/store/v2"
)

func init() {
	store.RegisterAdapter(memoryAdapter{})
}

type memoryAdapter struct{}

func (memoryAdapter) Name() string { return "memory" }

func (memoryAdapter) Connect(_ context.Context, _ store.AdapterConfig) (store.Connection, error) {
	return New(), nil
}

// DB es el almacenamiento en memoria. El valor cero no es usable; usar New.
type DB struct {
	sem   chan struct{}
	state *state
	now   func() time.Time
}

// New crea una base vacía.
func New() *DB {
	return &DB{
		sem:   make(chan struct{}, 1),
		state: newState(),
		now:   time.Now,
	}
}

// WithClock reemplaza el reloj usado para UpdatedAt. Solo para tests.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.now = now
	return db
}

func (db *DB) Name() string                 { return "memory" }
func (db *DB) Ping(context.Context) error   { return nil }
func (db *DB) Close() error                 { return nil }
func (db *DB) UnitOfWork() store.UnitOfWork { return db }

func (db *DB) acquire(ctx context.Context) error {
	select {
	case db.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return repository.NewTechnical(repository.KindUnknown, ctx.Err())
	}
}

func (db *DB) release() { <-db.sem }

// DoTx implementa store.UnitOfWork.
func (db *DB) DoTx(ctx context.Context, opts store.Options, work store.Work) (err error) {
	ctx, cancel := store.WithDeadline(ctx, opts)
	defer cancel()

	if !opts.Tx.UseTransaction {
		return work(ctx, &scope{db: db, opts: opts})
	}

	if err := db.acquire(ctx); err != nil {
		return err
	}
	defer db.release()

	working := db.state.clone()
	s := &scope{db: db, opts: opts, tx: working}

	// Un panic descarta la copia: no hay nada que deshacer sobre db.state.
	if err := work(ctx, s); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return repository.NewTechnical(repository.KindUnknown, err)
	}
	db.state = working
	return nil
}

// scope liga los repositorios a la transacción (tx != nil) o al estado vivo.
type scope struct {
	db   *DB
	opts store.Options
	tx   *state
}

func (s *scope) Users() repository.UserRepository           { return usersRepo{s} }
func (s *scope) Apartments() repository.ApartmentRepository { return apartmentsRepo{s} }
func (s *scope) Households() repository.HouseholdRepository { return householdsRepo{s} }
func (s *scope) Options() store.Options                     { return s.opts }

// run ejecuta fn sobre el estado que corresponde. Fuera de transacción cada
// llamada toma el semáforo, así cada sentencia es atómica.
func (s *scope) run(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return repository.NewTechnical(repository.KindUnknown, err)
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	if err := s.db.acquire(ctx); err != nil {
		return err
	}
	defer s.db.release()
	return fn(s.db.state)
}
