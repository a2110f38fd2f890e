package store

import (
	"context"
	"errors"
	"time"

	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/observability/logger"
)

// Recorder recibe el resultado de cada unidad de trabajo.
// internal/metrics provee la implementación Prometheus.
type Recorder interface {
	ObserveUnitOfWork(isolation, strategy, result string, d time.Duration)
	ObserveRepositoryError(kind string)
}

// Instrument decora uow con logs y métricas. rec puede ser nil.
func Instrument(uow UnitOfWork, rec Recorder) UnitOfWork {
	return &instrumented{next: uow, rec: rec}
}

type instrumented struct {
	next UnitOfWork
	rec  Recorder
}

func (i *instrumented) DoTx(ctx context.Context, opts Options, work Work) error {
	start := time.Now()
	err := i.next.DoTx(ctx, opts, work)
	elapsed := time.Since(start)

	result := Result(err)
	if i.rec != nil {
		i.rec.ObserveUnitOfWork(opts.Isolation(), opts.Strategy(), result, elapsed)
		if te, ok := repository.AsTechnical(err); ok {
			i.rec.ObserveRepositoryError(string(te.Kind))
		}
	}

	if err != nil {
		log := logger.From(ctx).With(
			logger.Layer("uow"),
			logger.Isolation(opts.Isolation()),
			logger.Strategy(opts.Strategy()),
		)
		if te, ok := repository.AsTechnical(err); ok {
			log = log.With(logger.ErrorKind(string(te.Kind)))
		}
		log.Debug("unit of work failed",
			logger.String("result", result),
			logger.Duration(elapsed),
			logger.Err(err),
		)
	}
	return err
}

// Result clasifica el error de una unidad de trabajo para métricas.
func Result(err error) string {
	switch {
	case err == nil:
		return "commit"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case repository.IsOptimisticLock(err):
		return "conflict"
	default:
		return "rollback"
	}
}
