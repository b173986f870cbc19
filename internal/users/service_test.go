package users

import (
	"context"
	"testing"
	"time"

	"ms-venues/internal/apperr"
	"ms-venues/internal/db"
	"ms-venues/internal/db/dbtest"
	"ms-venues/internal/logger"
	"ms-venues/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	s := NewService(dbtest.New(t), logger.Discard())
	s.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func mustIdentity(t *testing.T, s *Service, email string) *models.Identity {
	i, err := s.CreateIdentity(context.Background(), CreateIdentityInput{Email: email})
	require.NoError(t, err)
	return i
}

func TestCreateIdentity(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	i, err := s.CreateIdentity(ctx, CreateIdentityInput{Email: "  Anna@Example.COM "})
	require.NoError(t, err)
	assert.Equal(t, "Anna@example.com", i.Email)
	assert.True(t, i.IsActive)
	assert.False(t, i.IsStaff)

	_, err = s.CreateIdentity(ctx, CreateIdentityInput{Email: "Anna@example.com"})
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "email", apperr.FieldOf(err))

	_, err = s.CreateIdentity(ctx, CreateIdentityInput{Email: "not-an-email"})
	assert.True(t, apperr.IsValidation(err))
}

func TestAssignRoleIsAdditive(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a := mustIdentity(t, s, "a@example.com")
	b := mustIdentity(t, s, "b@example.com")

	n, err := s.AssignRole(ctx, models.RoleOwner, []string{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.AssignRole(ctx, models.RoleOwner, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "existing profiles are skipped")

	n, err = s.AssignRole(ctx, models.RoleRenter, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetIdentity(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleRenter, models.RoleOwner}, got.Roles())

	label, err := s.RoleOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRenter.Label(), label)

	label, err = s.RoleOf(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner.Label(), label)
}

func TestAssignRoleUnknownIdentityWritesNothing(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a := mustIdentity(t, s, "a@example.com")

	_, err := s.AssignRole(ctx, models.RoleSpecialist, []string{a.ID, "missing"})
	assert.True(t, apperr.IsNotFound(err))

	has, err := s.IsSpecialist(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.AssignRole(ctx, models.Role("admin"), []string{a.ID})
	assert.True(t, apperr.IsValidation(err))
}

func TestRoleOfWithoutProfile(t *testing.T) {
	s := setupService(t)
	a := mustIdentity(t, s, "a@example.com")

	label, err := s.RoleOf(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NoRoleLabel, label)
}

func TestListIdentitiesByRole(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a := mustIdentity(t, s, "owner@example.com")
	mustIdentity(t, s, "plain@example.com")
	_, err := s.AssignRole(ctx, models.RoleOwner, []string{a.ID})
	require.NoError(t, err)

	owners, total, err := s.ListIdentities(ctx, db.IdentityFilter{Role: "owner"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, owners, 1)
	assert.Equal(t, a.ID, owners[0].ID)
	assert.Equal(t, models.RoleOwner.Label(), owners[0].RoleLabel)

	none, total, err := s.ListIdentities(ctx, db.IdentityFilter{Role: "none"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "plain@example.com", none[0].Email)

	matched, _, err := s.ListIdentities(ctx, db.IdentityFilter{Query: "PLAIN"})
	require.NoError(t, err)
	assert.Len(t, matched, 1)

	_, _, err = s.ListIdentities(ctx, db.IdentityFilter{Role: "admin"})
	assert.True(t, apperr.IsValidation(err))
}

func TestIsStaffEmail(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a := mustIdentity(t, s, "staff@example.com")

	ok, err := s.IsStaffEmail(ctx, "staff@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.SetStaff(ctx, a.ID, true)
	require.NoError(t, err)
	ok, err = s.IsStaffEmail(ctx, "staff@EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.SetActive(ctx, a.ID, false)
	require.NoError(t, err)
	ok, err = s.IsStaffEmail(ctx, "staff@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "inactive staff is rejected")

	ok, err = s.IsStaffEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateOwnerRating(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a := mustIdentity(t, s, "owner@example.com")
	_, err := s.AssignRole(ctx, models.RoleOwner, []string{a.ID})
	require.NoError(t, err)

	verified := true
	rating := decimal.RequireFromString("4.75")
	o, err := s.UpdateOwner(ctx, a.ID, OwnerUpdate{Verified: &verified, Rating: &rating})
	require.NoError(t, err)
	assert.True(t, o.Verified)

	got, err := s.GetOwner(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Rating.Equal(rating))

	bad := decimal.RequireFromString("10")
	_, err = s.UpdateOwner(ctx, a.ID, OwnerUpdate{Rating: &bad})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.UpdateSpecialist(ctx, a.ID, SpecialistUpdate{})
	assert.True(t, apperr.IsNotFound(err))
}

func TestListSpecialistsCarriesEmail(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a := mustIdentity(t, s, "dj@example.com")
	_, err := s.AssignRole(ctx, models.RoleSpecialist, []string{a.ID})
	require.NoError(t, err)
	city := "Казань"
	_, err = s.UpdateSpecialist(ctx, a.ID, SpecialistUpdate{City: &city})
	require.NoError(t, err)

	views, total, err := s.ListSpecialists(ctx, db.ProfileFilter{City: "Казань"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "dj@example.com", views[0].Email)
}

func TestDeleteIdentityRemovesProfiles(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a := mustIdentity(t, s, "a@example.com")
	_, err := s.AssignRole(ctx, models.RoleRenter, []string{a.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteIdentity(ctx, a.ID))

	_, err = s.GetIdentity(ctx, a.ID)
	assert.True(t, apperr.IsNotFound(err))
	_, err = s.GetRenter(ctx, a.ID)
	assert.True(t, apperr.IsNotFound(err))

	assert.True(t, apperr.IsNotFound(s.DeleteIdentity(ctx, a.ID)))
}

func TestDeleteIdentityProtectedWhileHired(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	now := s.Now()
	dj := mustIdentity(t, s, "dj@example.com")
	renter := mustIdentity(t, s, "renter@example.com")
	_, err := s.AssignRole(ctx, models.RoleSpecialist, []string{dj.ID})
	require.NoError(t, err)
	_, err = s.AssignRole(ctx, models.RoleRenter, []string{renter.ID})
	require.NoError(t, err)

	eventID := uuid.NewString()
	require.NoError(t, s.DB.CreateEvent(ctx, &models.Event{
		ID: eventID, RenterID: renter.ID, Title: "Юбилей", Date: now,
		Theme: models.ThemeParty, Status: models.EventPlanned, CreatedAt: now, UpdatedAt: now,
	}))
	hireID := uuid.NewString()
	require.NoError(t, s.DB.CreateHire(ctx, &models.Hire{
		ID: hireID, EventID: eventID, SpecialistID: dj.ID, RenterID: renter.ID,
		StartDatetime: now.Add(time.Hour), EndDatetime: now.Add(4 * time.Hour),
		Status: models.ReservationConfirmed, CreatedAt: now, UpdatedAt: now,
	}))

	err = s.DeleteIdentity(ctx, dj.ID)
	assert.True(t, apperr.IsConstraint(err), "got %v", err)
	_, err = s.GetSpecialist(ctx, dj.ID)
	assert.NoError(t, err, "profile kept")
	assert.True(t, apperr.IsConstraint(s.DeleteIdentity(ctx, renter.ID)))

	require.NoError(t, s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		return tx.DeleteHires(ctx, hireID)
	}))
	require.NoError(t, s.DeleteIdentity(ctx, dj.ID))
	_, err = s.GetIdentity(ctx, dj.ID)
	assert.True(t, apperr.IsNotFound(err))
}
