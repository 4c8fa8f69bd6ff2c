package services

import (
	"context"
	"testing"

	"github.com/senyabanana/order-bidding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultBidPolicy)

	admin, err := env.users.SeedAdmin(ctx, "Admin", "admin@example.com", "secret")
	require.NoError(t, err)
	again, err := env.users.SeedAdmin(ctx, "Admin", "admin@example.com", "rotated")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	stored, err := env.store.GetUserByTokenHash(ctx, HashToken("rotated"))
	require.NoError(t, err)
	assert.Equal(t, models.AdminRole, stored.Role)

	_, err = env.store.GetUserByTokenHash(ctx, HashToken("secret"))
	assert.Error(t, err)

	skipped, err := env.users.SeedAdmin(ctx, "Admin", "admin@example.com", "")
	require.NoError(t, err)
	assert.Nil(t, skipped)
}

func TestListUsers_AdminOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultBidPolicy)

	_, err := env.users.ListUsers(ctx, env.exporter)
	assert.ErrorIs(t, err, models.ErrForbidden)

	admin, err := env.users.SeedAdmin(ctx, "Admin", "admin@example.com", "secret")
	require.NoError(t, err)
	users, err := env.users.ListUsers(ctx, models.PrincipalOf(admin))
	require.NoError(t, err)
	assert.Len(t, users, 6)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultBidPolicy)

	user, err := env.users.Profile(ctx, env.makerA)
	require.NoError(t, err)
	assert.Equal(t, "maker-a@example.com", user.Email)
	assert.Equal(t, models.ManufacturerRole, user.Role)

	_, err = env.users.Profile(ctx, models.Principal{ID: "ghost"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

type recordingCache struct {
	forgotten []string
}

func (c *recordingCache) ForgetUser(userId string) {
	c.forgotten = append(c.forgotten, userId)
}

func newUserServiceWithCache(env *testEnv) (*UserService, *recordingCache) {
	cache := &recordingCache{}
	return NewUserService(env.store, env.store, env.store, OwnershipPolicy{}, cache), cache
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultBidPolicy)
	users, cache := newUserServiceWithCache(env)
	admin, err := users.SeedAdmin(ctx, "Admin", "admin@example.com", "secret")
	require.NoError(t, err)
	adminPrincipal := models.PrincipalOf(admin)

	req := models.UserRequest{Name: "Dana", Email: "dana@example.com", Role: models.ManufacturerRole, Token: "dana-token"}

	_, err = users.CreateUser(ctx, env.exporter, req)
	assert.ErrorIs(t, err, models.ErrForbidden)

	invalid := []models.UserRequest{
		{Email: "dana@example.com", Role: models.ManufacturerRole, Token: "t"},
		{Name: "Dana", Role: models.ManufacturerRole, Token: "t"},
		{Name: "Dana", Email: "dana@example.com", Role: models.ManufacturerRole},
		{Name: "Dana", Email: "dana@example.com", Role: "owner", Token: "t"},
	}
	for _, r := range invalid {
		_, err = users.CreateUser(ctx, adminPrincipal, r)
		assert.ErrorIs(t, err, models.ErrValidation)
	}

	_, err = users.CreateUser(ctx, adminPrincipal, models.UserRequest{
		Name: "Eli", Email: "eli@example.com", Role: models.ExporterRole, Token: "maker-a-token",
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	user, err := users.CreateUser(ctx, adminPrincipal, req)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Contains(t, cache.forgotten, user.ID)

	stored, err := env.store.GetUserByTokenHash(ctx, HashToken("dana-token"))
	require.NoError(t, err)
	assert.Equal(t, models.ManufacturerRole, stored.Role)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultBidPolicy)
	users, cache := newUserServiceWithCache(env)

	company := "Acme"
	updated, err := users.UpdateProfile(ctx, env.makerA, models.ProfilePatch{
		Name:        "  Maker Alpha ",
		CompanyName: &company,
		Token:       "fresh-token",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maker Alpha", updated.Name)
	assert.Equal(t, "maker-a@example.com", updated.Email)
	assert.Equal(t, "Acme", updated.CompanyName)
	assert.Equal(t, []string{env.makerA.ID}, cache.forgotten)

	_, err = env.store.GetUserByTokenHash(ctx, HashToken("maker-a-token"))
	assert.Error(t, err)
	stored, err := env.store.GetUserByTokenHash(ctx, HashToken("fresh-token"))
	require.NoError(t, err)
	assert.Equal(t, env.makerA.ID, stored.ID)

	_, err = users.UpdateProfile(ctx, env.makerA, models.ProfilePatch{Email: "maker-b@example.com"})
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Len(t, cache.forgotten, 1)

	_, err = users.UpdateProfile(ctx, models.Principal{ID: "ghost"}, models.ProfilePatch{Name: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultBidPolicy)
	users, cache := newUserServiceWithCache(env)
	admin, err := users.SeedAdmin(ctx, "Admin", "admin@example.com", "secret")
	require.NoError(t, err)
	adminPrincipal := models.PrincipalOf(admin)

	order := env.createOrder(t, 10)
	winner := env.createBid(t, env.makerA, order.ID, "2")
	env.createBid(t, env.makerB, order.ID, "3")
	_, err = env.bids.AcceptBid(ctx, env.exporter, winner.ID)
	require.NoError(t, err)

	_, err = users.DeleteUser(ctx, env.exporter, env.makerB.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = users.DeleteUser(ctx, adminPrincipal, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = users.DeleteUser(ctx, adminPrincipal, env.makerA.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	_, err = env.store.GetUser(ctx, env.makerA.ID)
	require.NoError(t, err)

	result, err := users.DeleteUser(ctx, adminPrincipal, env.exporter.ID)
	require.NoError(t, err)
	assert.Equal(t, "User and their orders removed", result.Message)
	assert.Equal(t, []string{env.exporter.ID}, cache.forgotten[len(cache.forgotten)-1:])

	_, err = env.store.GetOrder(ctx, order.ID)
	assert.Error(t, err)
	_, err = env.store.GetBid(ctx, winner.ID)
	assert.Error(t, err)

	pending, err := env.store.GetPendingOutbox(ctx, 0)
	require.NoError(t, err)
	last := pending[len(pending)-1]
	assert.Equal(t, models.UserDeletedEvent, last.Type)
	assert.Equal(t, env.exporter.ID, last.Key)
}
