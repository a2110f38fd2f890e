package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/june5815/welive/internal/apperrors"
	"github.com/june5815/welive/internal/cache"
	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	jwtx "github.com/june5815/welive/internal/jwt"
	"github.com/june5815/welive/internal/security/password"
	"github.com/june5815/welive/internal/services/auth"
	store "github.com/june5815/welive/internal/store/v2"
)

// blockedFor indica si done sigue abierto después de d.
func blockedFor(done <-chan struct{}, d time.Duration) bool {
	select {
	case <-done:
		return false
	case <-time.After(d):
		return true
	}
}

// holdLock corre lock dentro de una transacción y la mantiene abierta hasta
// que se cierre release; después aplica write y confirma.
func holdLock(c *Connection, locked chan<- struct{}, release <-chan struct{},
	lock func(ctx context.Context, s store.Scope) error,
	write func(ctx context.Context, s store.Scope) error,
) error {
	return c.DoTx(context.Background(), store.InTx(store.ReadCommitted), func(ctx context.Context, s store.Scope) error {
		if err := lock(ctx, s); err != nil {
			return err
		}
		close(locked)
		<-release
		return write(ctx, s)
	})
}

func TestIntegration_RowLockSerializesWriters(t *testing.T) {
	c := setupDB(t)
	apt := seedApartment(t, c)
	u := newResident(apt.ID, "lee", "010-1")
	mustCreate(t, c, u)

	locked, release := make(chan struct{}), make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		var held *user.User
		return holdLock(c, locked, release,
			func(ctx context.Context, s store.Scope) (err error) {
				held, err = s.Users().FindByID(ctx, u.ID, repository.LockUpdate)
				return err
			},
			func(ctx context.Context, s store.Scope) error {
				if err := held.Approve(); err != nil {
					return err
				}
				return s.Users().Update(ctx, held)
			})
	})
	<-locked

	var seen *user.User
	bDone := make(chan struct{})
	g.Go(func() error {
		defer close(bDone)
		return c.DoTx(context.Background(), store.InTx(store.ReadCommitted), func(ctx context.Context, s store.Scope) error {
			got, err := s.Users().FindByID(ctx, u.ID, repository.LockUpdate)
			if err != nil {
				return err
			}
			seen = got.Clone()
			got.Name = "after"
			return s.Users().Update(ctx, got)
		})
	})

	assert.True(t, blockedFor(bDone, 300*time.Millisecond), "el segundo FOR UPDATE debe esperar")
	close(release)
	require.NoError(t, g.Wait())

	// B leyó la fila ya confirmada por A y escribió encima sin conflicto.
	require.NotNil(t, seen)
	assert.EqualValues(t, 2, seen.Version)
	assert.Equal(t, user.StatusApproved, seen.JoinStatus)

	final, err := store.Do(context.Background(), c, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, u.ID, repository.LockNone)
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, final.Version)
	assert.Equal(t, "after", final.Name)
	assert.Equal(t, user.StatusApproved, final.JoinStatus)
}

func TestIntegration_LockByRoleBlocksRowLock(t *testing.T) {
	c := setupDB(t)
	apt := seedApartment(t, c)
	a, b := newResident(apt.ID, "a", "010-1"), newResident(apt.ID, "b", "010-2")
	mustCreate(t, c, a)
	mustCreate(t, c, b)

	f := repository.JoinStatusFilter{Role: user.RoleResident, ApartmentID: apt.ID}
	locked, release := make(chan struct{}), make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		return holdLock(c, locked, release,
			func(ctx context.Context, s store.Scope) error {
				return s.Users().LockByRole(ctx, f, repository.LockUpdate)
			},
			func(ctx context.Context, s store.Scope) error {
				_, err := s.Users().BulkUpdateJoinStatus(ctx, f, user.StatusRejected)
				return err
			})
	})
	<-locked

	var seen *user.User
	bDone := make(chan struct{})
	g.Go(func() error {
		defer close(bDone)
		got, err := store.Do(context.Background(), c, store.InTx(store.ReadCommitted),
			func(ctx context.Context, s store.Scope) (*user.User, error) {
				return s.Users().FindByID(ctx, b.ID, repository.LockUpdate)
			})
		seen = got
		return err
	})

	assert.True(t, blockedFor(bDone, 300*time.Millisecond), "el lock por rol debe bloquear la fila")
	close(release)
	require.NoError(t, g.Wait())

	require.NotNil(t, seen)
	assert.Equal(t, user.StatusRejected, seen.JoinStatus)
	assert.EqualValues(t, 2, seen.Version)
}

func TestIntegration_ConcurrentRefreshOneWins(t *testing.T) {
	c := setupDB(t)
	ctx := context.Background()
	apt := seedApartment(t, c)

	hasher := password.Bcrypt{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)
	admin := user.NewAdmin(user.Account{
		Username: "kim", PasswordHash: hash, Name: "Kim", Email: "kim@welive.dev", Contact: "010-1",
	}, apt, t0)
	mustCreate(t, c, admin)
	require.NoError(t, admin.Approve())
	require.NoError(t, c.DoTx(ctx, store.Optimistic(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Update(ctx, admin)
	}))

	keys, err := jwtx.GenerateKeys()
	require.NoError(t, err)
	svc := auth.NewService(auth.Deps{
		UoW:      c,
		Sessions: cache.NewMemory("test:"),
		Codec:    jwtx.NewCodec("welive-test", keys),
		Hasher:   hasher,
	})

	tokens, err := svc.Login(ctx, auth.LoginInput{Username: "kim", Password: "s3cret-pass"})
	require.NoError(t, err)

	const n = 4
	errs := make([]error, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			_, errs[i] = svc.Refresh(ctx, tokens.RefreshToken)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperrors.ErrUnauthorizedSession):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
}
