package pg

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	store "github.com/june5815/welive/internal/store/v2"
)

// setupDB levanta PostgreSQL en un contenedor y aplica las migraciones.
func setupDB(t *testing.T) *Connection {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("integración deshabilitada: definir TEST_INTEGRATION=1")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("welive_test"),
		postgres.WithUsername("welive"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	res, err := Migrate(dsn, true, 0)
	require.NoError(t, err)
	require.False(t, res.Dirty)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewConnection(pool)
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func seedApartment(t *testing.T, c *Connection) user.Apartment {
	t.Helper()
	apt := user.Apartment{Name: "Sunrise", Address: "1 Main St", OfficeNumber: "02-123"}
	require.NoError(t, c.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
		return s.Apartments().Create(ctx, &apt)
	}))
	return apt
}

func newResident(aptID, username, contact string) *user.User {
	return user.NewResident(user.Account{
		Username:     username,
		PasswordHash: "x",
		Email:        username + "@welive.dev",
		Contact:      contact,
	}, user.ResidentProfile{ApartmentID: aptID, Building: "101", Unit: "1203"}, false, t0)
}

func mustCreate(t *testing.T, c *Connection, u *user.User) {
	t.Helper()
	require.NoError(t, c.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Create(ctx, u)
	}))
}

func TestIntegration_CreateFindUpdate(t *testing.T) {
	c := setupDB(t)
	ctx := context.Background()
	apt := seedApartment(t, c)

	admin := user.NewAdmin(user.Account{Username: "kim", PasswordHash: "x", Contact: "010-1"}, apt, t0)
	mustCreate(t, c, admin)

	got, err := store.Do(ctx, c, store.InTx(store.ReadCommitted), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, admin.ID, repository.LockUpdate)
	})
	require.NoError(t, err)
	gotApt, ok := got.AdminApartment()
	require.True(t, ok)
	assert.Equal(t, apt.ID, gotApt.ID)
	assert.EqualValues(t, 1, got.Version)

	desc := "renovated"
	require.NoError(t, got.UpdateProfile(user.Patch{Apartment: &user.ApartmentPatch{Description: &desc}}))
	require.NoError(t, c.DoTx(ctx, store.Optimistic(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Update(ctx, got)
	}))
	assert.EqualValues(t, 2, got.Version)

	again, err := store.Do(ctx, c, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByUsername(ctx, "kim")
	})
	require.NoError(t, err)
	againApt, _ := again.AdminApartment()
	assert.Equal(t, "renovated", againApt.Description)
	assert.Equal(t, "Sunrise", againApt.Name)

	// Un segundo admin sobre el mismo complejo: ya está administrado.
	other := user.NewAdmin(user.Account{Username: "choi", PasswordHash: "x", Contact: "010-2"}, apt, t0)
	err = c.DoTx(ctx, store.NoTx(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Create(ctx, other)
	})
	assert.ErrorIs(t, err, repository.ErrUnique)
}

func TestIntegration_UniqueViolations(t *testing.T) {
	c := setupDB(t)
	apt := seedApartment(t, c)
	mustCreate(t, c, newResident(apt.ID, "lee", "010-1"))

	dup := newResident(apt.ID, "lee", "010-2")
	err := c.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Create(ctx, dup)
	})
	assert.ErrorIs(t, err, repository.ErrUniqueUsername)

	dup = newResident(apt.ID, "park", "010-1")
	err = c.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Create(ctx, dup)
	})
	assert.ErrorIs(t, err, repository.ErrUniqueContact)
}

func TestIntegration_OptimisticConflict(t *testing.T) {
	c := setupDB(t)
	apt := seedApartment(t, c)
	u := newResident(apt.ID, "lee", "010-1")
	mustCreate(t, c, u)

	var ok, conflicts atomic.Int32
	g, ctx := errgroup.WithContext(context.Background())
	for _, name := range []string{"Alpha", "Beta"} {
		mine := u.Clone()
		mine.Name = name
		g.Go(func() error {
			err := c.DoTx(ctx, store.Optimistic(), func(ctx context.Context, s store.Scope) error {
				return s.Users().Update(ctx, mine)
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, repository.ErrOptimisticLock):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 1, conflicts.Load())
}

func TestIntegration_BulkApproveOnlyPending(t *testing.T) {
	c := setupDB(t)
	ctx := context.Background()
	apt := seedApartment(t, c)

	a, b, cc := newResident(apt.ID, "a", "010-1"), newResident(apt.ID, "b", "010-2"), newResident(apt.ID, "c", "010-3")
	for _, u := range []*user.User{a, b, cc} {
		mustCreate(t, c, u)
	}
	require.NoError(t, b.Approve())
	require.NoError(t, c.DoTx(ctx, store.Optimistic(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Update(ctx, b)
	}))

	f := repository.JoinStatusFilter{Role: user.RoleResident, ApartmentID: apt.ID}
	n, err := store.Do(ctx, c, store.InTx(store.ReadCommitted).WithTimeout(5*time.Second),
		func(ctx context.Context, s store.Scope) (int64, error) {
			if err := s.Users().LockByRole(ctx, f, repository.LockUpdate); err != nil {
				return 0, err
			}
			return s.Users().BulkUpdateJoinStatus(ctx, f, user.StatusApproved)
		})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	gotB, err := store.Do(ctx, c, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, b.ID, repository.LockNone)
	})
	require.NoError(t, err)
	assert.Equal(t, b.Version, gotB.Version)
}

func TestIntegration_DeleteIdempotentAndRollback(t *testing.T) {
	c := setupDB(t)
	ctx := context.Background()
	apt := seedApartment(t, c)
	u := newResident(apt.ID, "lee", "010-1")
	mustCreate(t, c, u)

	for i := 0; i < 2; i++ {
		require.NoError(t, c.DoTx(ctx, store.NoTx(), func(ctx context.Context, s store.Scope) error {
			return s.Users().Delete(ctx, u.ID)
		}))
	}

	boom := errors.New("boom")
	v := newResident(apt.ID, "park", "010-2")
	err := c.DoTx(ctx, store.InTx(store.Serializable), func(ctx context.Context, s store.Scope) error {
		if err := s.Users().Create(ctx, v); err != nil {
			return err
		}
		return boom
	})
	assert.Same(t, boom, err)

	_, err = store.Do(ctx, c, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, v.ID, repository.LockNone)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
