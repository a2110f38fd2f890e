package users

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/june5815/welive/internal/domain/repository"
	"github.com/june5815/welive/internal/domain/user"
	"github.com/june5815/welive/internal/security/password"
	store "github.com/june5815/welive/internal/store/v2"
	"github.com/june5815/welive/internal/store/v2/adapters/memory"
)

const pw = "s3cret-pass1"

type fakeRevoker struct {
	mu  sync.Mutex
	ids []string
}

func (r *fakeRevoker) RevokeAll(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

func (r *fakeRevoker) revoked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type fixture struct {
	svc     Service
	db      *memory.DB
	revoker *fakeRevoker
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{db: memory.New(), revoker: &fakeRevoker{}}
	deps := Deps{
		UoW:      f.db,
		Hasher:   password.Bcrypt{Cost: bcrypt.MinCost},
		Sessions: f.revoker,
	}
	for _, o := range opts {
		o(&deps)
	}
	f.svc = NewService(deps)
	return f
}

func account(name string) AccountInput {
	return AccountInput{
		Username: name,
		Password: pw,
		Name:     "User " + name,
		Email:    name + "@welive.test",
		Contact:  "010-" + name,
	}
}

func actorOf(u *user.User) user.Actor { return user.Actor{ID: u.ID, Role: u.Role} }

func (f *fixture) superAdmin(t *testing.T) *user.User {
	t.Helper()
	u, err := f.svc.SeedSuperAdmin(context.Background(), account("root"))
	require.NoError(t, err)
	return u
}

func (f *fixture) admin(t *testing.T, name string) *user.User {
	t.Helper()
	u, err := f.svc.Create(context.Background(), CreateInput{
		Role:         user.RoleAdmin,
		AccountInput: account(name),
		Apartment:    &ApartmentInput{Name: "Tower " + name, Address: "1 Main St", OfficeNumber: "02-" + name},
	})
	require.NoError(t, err)
	return u
}

// approvedAdmin crea un ADMIN aprobado por el SUPER_ADMIN dado.
func (f *fixture) approvedAdmin(t *testing.T, super *user.User, name string) *user.User {
	t.Helper()
	u := f.admin(t, name)
	u, err := f.svc.Approve(context.Background(), actorOf(super), u.ID)
	require.NoError(t, err)
	return u
}

func (f *fixture) resident(t *testing.T, aptID, name string) *user.User {
	t.Helper()
	u, err := f.svc.Create(context.Background(), CreateInput{
		Role:         user.RoleResident,
		AccountInput: account(name),
		Resident:     &ResidentInput{ApartmentID: aptID, Building: "101", Unit: "1001"},
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) get(t *testing.T, id string) *user.User {
	t.Helper()
	var out *user.User
	require.NoError(t, f.db.DoTx(context.Background(), store.NoTx(), func(ctx context.Context, s store.Scope) error {
		u, err := s.Users().FindByID(ctx, id, repository.LockNone)
		out = u
		return err
	}))
	return out
}
