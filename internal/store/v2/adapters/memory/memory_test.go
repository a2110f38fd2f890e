package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	store "github.com/june5815/welive/internal/store/v2"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func resident(username, contact string) *user.User {
	return user.NewResident(user.Account{
		Username: username,
		Email:    username + "@welive.dev",
		Contact:  contact,
	}, user.ResidentProfile{ApartmentID: "apt-1", Building: "101", Unit: "1203"}, false, t0)
}

func create(t *testing.T, db *DB, u *user.User) {
	t.Helper()
	err := db.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Create(ctx, u)
	})
	require.NoError(t, err)
}

func find(t *testing.T, db *DB, id string) *user.User {
	t.Helper()
	u, err := store.Do(context.Background(), db, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, id, repository.LockNone)
	})
	require.NoError(t, err)
	return u
}

func TestUpdate_VersionIncrementsByOne(t *testing.T) {
	db := New()
	u := resident("lee", "010-1")
	create(t, db, u)
	require.EqualValues(t, 1, u.Version)

	for want := int64(2); want <= 4; want++ {
		name := "Lee " + string(rune('A'+want))
		require.NoError(t, u.UpdateProfile(user.Patch{Name: &name}))
		err := db.DoTx(context.Background(), store.Optimistic(), func(ctx context.Context, s store.Scope) error {
			return s.Users().Update(ctx, u)
		})
		require.NoError(t, err)
		assert.Equal(t, want, u.Version)
		assert.Equal(t, want, find(t, db, u.ID).Version)
	}
}

func TestUpdate_ConcurrentWritersFromSameVersion(t *testing.T) {
	db := New()
	u := resident("lee", "010-1")
	create(t, db, u)

	var ok, conflicts atomic.Int32
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 2; i++ {
		name := []string{"Alpha", "Beta"}[i]
		g.Go(func() error {
			// Ambos parten de la misma versión leída.
			mine := u.Clone()
			if err := mine.UpdateProfile(user.Patch{Name: &name}); err != nil {
				return err
			}
			err := db.DoTx(ctx, store.Optimistic(), func(ctx context.Context, s store.Scope) error {
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
	assert.EqualValues(t, 2, find(t, db, u.ID).Version)
}

func TestUpdate_MissingRowIsOptimisticLockFailure(t *testing.T) {
	db := New()
	ghost := resident("ghost", "010-9")

	err := db.DoTx(context.Background(), store.Optimistic(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Update(ctx, ghost)
	})
	te, ok := repository.AsTechnical(err)
	require.True(t, ok)
	assert.Equal(t, repository.KindOptimisticLock, te.Kind)
}

func TestCreate_UniqueViolationsByField(t *testing.T) {
	db := New()
	create(t, db, resident("lee", "010-1"))

	dupEmail := resident("kim", "010-3")
	dupEmail.Email = "lee@welive.dev"

	type testCase struct {
		u    *user.User
		kind repository.Kind
	}
	cases := map[string]testCase{
		"username": {resident("lee", "010-2"), repository.KindUniqueUsername},
		"email":    {dupEmail, repository.KindUniqueEmail},
		"contact":  {resident("park", "010-1"), repository.KindUniqueContact},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := db.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
				return s.Users().Create(ctx, tc.u)
			})
			te, ok := repository.AsTechnical(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tc.kind, te.Kind)
		})
	}
}

func TestDelete_Idempotent(t *testing.T) {
	db := New()
	u := resident("lee", "010-1")
	create(t, db, u)

	for i := 0; i < 2; i++ {
		err := db.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
			return s.Users().Delete(ctx, u.ID)
		})
		require.NoError(t, err)
	}

	_, err := store.Do(context.Background(), db, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, u.ID, repository.LockNone)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBulkUpdateJoinStatus_OnlyPendingRows(t *testing.T) {
	db := New()
	a, b, c := resident("a", "010-1"), resident("b", "010-2"), resident("c", "010-3")
	for _, u := range []*user.User{a, b, c} {
		create(t, db, u)
	}
	require.NoError(t, b.Approve())
	require.NoError(t, db.DoTx(context.Background(), store.Optimistic(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Update(ctx, b)
	}))
	bVersion := b.Version

	n, err := store.Do(context.Background(), db, store.InTx(store.ReadCommitted).WithTimeout(time.Second),
		func(ctx context.Context, s store.Scope) (int64, error) {
			f := repository.JoinStatusFilter{Role: user.RoleResident, ApartmentID: "apt-1"}
			if err := s.Users().LockByRole(ctx, f, repository.LockUpdate); err != nil {
				return 0, err
			}
			return s.Users().BulkUpdateJoinStatus(ctx, f, user.StatusApproved)
		})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, u := range []*user.User{a, c} {
		got := find(t, db, u.ID)
		assert.Equal(t, user.StatusApproved, got.JoinStatus)
		assert.True(t, got.IsActive)
		assert.EqualValues(t, 2, got.Version)
	}
	assert.Equal(t, bVersion, find(t, db, b.ID).Version, "B no se toca")
}

func TestDoTx_RollbackOnError(t *testing.T) {
	db := New()
	boom := errors.New("boom")
	u := resident("lee", "010-1")

	err := db.DoTx(context.Background(), store.InTx(store.Serializable), func(ctx context.Context, s store.Scope) error {
		if err := s.Users().Create(ctx, u); err != nil {
			return err
		}
		return boom
	})
	assert.Same(t, boom, err, "el error se propaga sin cambios")

	_, err = store.Do(context.Background(), db, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, u.ID, repository.LockNone)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDoTx_RollbackOnPanic(t *testing.T) {
	db := New()
	u := resident("lee", "010-1")

	assert.Panics(t, func() {
		_ = db.DoTx(context.Background(), store.InTx(""), func(ctx context.Context, s store.Scope) error {
			_ = s.Users().Create(ctx, u)
			panic("work exploded")
		})
	})

	// El semáforo quedó libre y no hay escritura visible.
	_, err := store.Do(context.Background(), db, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, u.ID, repository.LockNone)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDoTx_TimeoutRollsBack(t *testing.T) {
	db := New()
	u := resident("lee", "010-1")

	err := db.DoTx(context.Background(), store.InTx("").WithTimeout(20*time.Millisecond), func(ctx context.Context, s store.Scope) error {
		if err := s.Users().Create(ctx, u); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "timeout", store.Result(err))

	_, err = store.Do(context.Background(), db, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.User, error) {
		return s.Users().FindByID(ctx, u.ID, repository.LockNone)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLock_UnsupportedModePanics(t *testing.T) {
	db := New()
	assert.Panics(t, func() {
		_ = db.DoTx(context.Background(), store.InTx(""), func(ctx context.Context, s store.Scope) error {
			return s.Users().LockByRole(ctx, repository.JoinStatusFilter{Role: user.RoleResident}, repository.LockMode(42))
		})
	})
}

func TestCreateAdmin_AttachesToUnmanagedApartment(t *testing.T) {
	db := New()
	apt := user.Apartment{Name: "Sunrise", Address: "1 Main St", OfficeNumber: "02-123"}
	require.NoError(t, db.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
		return s.Apartments().Create(ctx, &apt)
	}))

	admin := user.NewAdmin(user.Account{Username: "kim", Email: "kim@welive.dev", Contact: "010-5"}, apt, t0)
	create(t, db, admin)

	got, err := store.Do(context.Background(), db, store.NoTx(), func(ctx context.Context, s store.Scope) (*user.Apartment, error) {
		return s.Apartments().FindByNaturalKey(ctx, apt.Key(), repository.LockNone)
	})
	require.NoError(t, err)
	assert.Equal(t, apt.ID, got.ID)
	assert.Equal(t, admin.ID, got.AdminID)

	other := user.NewAdmin(user.Account{Username: "choi", Contact: "010-6"}, *got, t0)
	err = db.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
		return s.Users().Create(ctx, other)
	})
	assert.ErrorIs(t, err, repository.ErrUnique)
}
