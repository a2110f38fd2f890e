package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func TestNewSuperAdmin_IsApprovedAtVersionOne(t *testing.T) {
	u := NewSuperAdmin(Account{Username: "root", Email: "root@welive.dev", Contact: "010-0000-0000"}, t0)

	assert.Equal(t, RoleSuperAdmin, u.Role)
	assert.Equal(t, StatusApproved, u.JoinStatus)
	assert.True(t, u.IsActive)
	assert.EqualValues(t, 1, u.Version)
	assert.NotEmpty(t, u.ID)
	assert.IsType(t, SuperAdminProfile{}, u.Profile)
}

func TestNewAdmin_PendingAndOwnsApartment(t *testing.T) {
	apt := Apartment{ID: "apt-1", Name: "Sunrise", Address: "1 Main St", OfficeNumber: "02-123"}
	u := NewAdmin(Account{Username: "kim"}, apt, t0)

	assert.Equal(t, StatusPending, u.JoinStatus)
	assert.False(t, u.IsActive)

	got, ok := u.AdminApartment()
	require.True(t, ok)
	assert.Equal(t, u.ID, got.AdminID)
	assert.Equal(t, "apt-1", u.ApartmentID())
}

func TestNewResident_PreRegisteredIsApproved(t *testing.T) {
	pre := NewResident(Account{Username: "a"}, ResidentProfile{ApartmentID: "apt-1"}, true, t0)
	assert.Equal(t, StatusApproved, pre.JoinStatus)
	assert.True(t, pre.IsActive)

	walkIn := NewResident(Account{Username: "b"}, ResidentProfile{ApartmentID: "apt-1"}, false, t0)
	assert.Equal(t, StatusPending, walkIn.JoinStatus)
	assert.False(t, walkIn.IsActive)
}

func TestTransition_IsActiveMirrorsApproved(t *testing.T) {
	u := NewResident(Account{Username: "r"}, ResidentProfile{}, false, t0)
	before := *u

	require.NoError(t, u.Approve())
	assert.Equal(t, StatusApproved, u.JoinStatus)
	assert.True(t, u.IsActive)

	// Solo cambian estado e IsActive.
	before.JoinStatus, before.IsActive = u.JoinStatus, u.IsActive
	assert.Equal(t, before, *u)

	require.NoError(t, u.Reject())
	assert.False(t, u.IsActive)

	require.NoError(t, u.Reject(), "misma transición es no-op")
	assert.ErrorIs(t, u.Transition(StatusPending), ErrInvalidTransition)
	assert.ErrorIs(t, u.Transition("ARCHIVED"), ErrInvalidStatus)
}

func TestBulkEligible(t *testing.T) {
	assert.True(t, BulkEligible(StatusPending))
	assert.False(t, BulkEligible(StatusApproved))
	assert.False(t, BulkEligible(StatusRejected))
}

func TestUpdateProfile_PartialMergeKeepsAbsentKeys(t *testing.T) {
	apt := Apartment{ID: "apt-1", Name: "Sunrise", Address: "1 Main St", OfficeNumber: "02-123", Description: "old"}
	u := NewAdmin(Account{Username: "kim", Name: "Kim", Email: "kim@x.io"}, apt, t0)

	err := u.UpdateProfile(Patch{
		Email:     strp("kim@welive.dev"),
		Apartment: &ApartmentPatch{Description: strp("new")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Kim", u.Name)
	assert.Equal(t, "kim@welive.dev", u.Email)

	got, _ := u.AdminApartment()
	assert.Equal(t, "new", got.Description)
	assert.Equal(t, "Sunrise", got.Name)
	assert.Equal(t, "1 Main St", got.Address)
	assert.Equal(t, "02-123", got.OfficeNumber)
	assert.Equal(t, u.ID, got.AdminID)
}

func TestUpdateProfile_ApartmentOnNonAdmin(t *testing.T) {
	u := NewResident(Account{Username: "r", Name: "Lee"}, ResidentProfile{}, false, t0)

	err := u.UpdateProfile(Patch{Name: strp("Park"), Apartment: &ApartmentPatch{Name: strp("x")}})
	assert.ErrorIs(t, err, ErrProfileMismatch)
	assert.Equal(t, "Lee", u.Name, "un patch rechazado no aplica nada")
}

func TestPatchEmpty(t *testing.T) {
	assert.True(t, Patch{}.Empty())
	assert.True(t, Patch{Apartment: &ApartmentPatch{}}.Empty())
	assert.False(t, Patch{AvatarURL: strp("")}.Empty())
}

func TestRestore_PerRoleVariant(t *testing.T) {
	admin := NewAdmin(Account{Username: "kim"}, Apartment{ID: "apt-1", Name: "S"}, t0)
	resident := NewResident(Account{Username: "lee"}, ResidentProfile{ApartmentID: "apt-1", Building: "101", Unit: "1203"}, true, t0)
	root := NewSuperAdmin(Account{Username: "root"}, t0)

	for _, u := range []*User{admin, resident, root} {
		got, err := Restore(u.ToRecord())
		require.NoError(t, err)
		assert.Equal(t, u, got)
	}
}

func TestRestore_RejectsMismatchedProfile(t *testing.T) {
	rec := NewSuperAdmin(Account{Username: "root"}, t0).ToRecord()
	rec.Role = string(RoleAdmin)

	_, err := Restore(rec)
	assert.ErrorIs(t, err, ErrProfileMismatch)

	rec.Role = "janitor"
	_, err = Restore(rec)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestClone_IsIndependent(t *testing.T) {
	u := NewAdmin(Account{Username: "kim"}, Apartment{ID: "apt-1", Name: "S"}, t0)
	c := u.Clone()
	require.NoError(t, c.UpdateProfile(Patch{Apartment: &ApartmentPatch{Name: strp("T")}}))

	orig, _ := u.AdminApartment()
	assert.Equal(t, "S", orig.Name)
}
