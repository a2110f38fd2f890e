// Package pg implementa store/v2 sobre PostgreSQL con pgxpool.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/june5815/welive/internal/domain/repository"
	store "github.com/june5815/welive/internal/store/v2"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = 2
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return NewConnection(pool), nil
}

// Connection es la conexión activa. Implementa store.Connection y
// store.UnitOfWork.
type Connection struct {
	pool *pgxpool.Pool
}

// NewConnection envuelve un pool ya abierto (tests de integración).
func NewConnection(pool *pgxpool.Pool) *Connection {
	return &Connection{pool: pool}
}

func (c *Connection) Name() string { return "postgres" }

func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

func (c *Connection) UnitOfWork() store.UnitOfWork { return c }

// Pool expone el pool para el migrador y los checks de salud.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

// querier es lo común entre *pgxpool.Pool y pgx.Tx. Begin sobre una pgx.Tx
// abre un savepoint, así las escrituras de varias sentencias son atómicas
// con o sin transacción externa.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ querier = (*pgxpool.Pool)(nil)
	_ querier = (pgx.Tx)(nil)
)

type scope struct {
	q    querier
	opts store.Options
}

func (s *scope) Users() repository.UserRepository           { return &userRepo{q: s.q} }
func (s *scope) Apartments() repository.ApartmentRepository { return &apartmentRepo{q: s.q} }
func (s *scope) Households() repository.HouseholdRepository { return &householdRepo{q: s.q} }
func (s *scope) Options() store.Options                     { return s.opts }

func isoLevel(l store.IsolationLevel) (pgx.TxIsoLevel, error) {
	switch l.OrDefault() {
	case store.ReadCommitted:
		return pgx.ReadCommitted, nil
	case store.RepeatableRead:
		return pgx.RepeatableRead, nil
	case store.Serializable:
		return pgx.Serializable, nil
	}
	return "", fmt.Errorf("pg: unsupported isolation level %q", l)
}

// DoTx implementa store.UnitOfWork.
func (c *Connection) DoTx(ctx context.Context, opts store.Options, work store.Work) error {
	ctx, cancel := store.WithDeadline(ctx, opts)
	defer cancel()

	if !opts.Tx.UseTransaction {
		return work(ctx, &scope{q: c.pool, opts: opts})
	}

	iso, err := isoLevel(opts.Tx.Isolation)
	if err != nil {
		return err
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return mapError(fmt.Errorf("pg: begin: %w", err))
	}

	// Rollback con un contexto sin deadline: si venció el timeout, el
	// rollback igual tiene que llegar al servidor.
	rollback := func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := work(ctx, &scope{q: tx, opts: opts}); err != nil {
		rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		rollback()
		return repository.NewTechnical(repository.KindUnknown, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("pg: commit: %w", err))
	}
	return nil
}
