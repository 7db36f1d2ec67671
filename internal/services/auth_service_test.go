package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, g.db, models.RoleModerator)

	resp, err := g.auth.Login(ctx, &dto.LoginRequest{Email: "  " + user.Email + " ", Password: testutil.Password})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, "moderator", resp.User.Role)

	identity, err := g.gate.Authorize(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)

	_, err = g.auth.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = g.auth.Login(ctx, &dto.LoginRequest{Email: "nobody@example.test", Password: testutil.Password})
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = g.auth.Login(ctx, &dto.LoginRequest{Email: "", Password: ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRefresh_RotatesToken(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, g.db, models.RoleUser)

	first, err := g.auth.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testutil.Password})
	require.NoError(t, err)

	second, err := g.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = g.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: first.RefreshToken})
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestRefresh_RejectsStaleEpoch(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, g.db, models.RoleAdmin)
	user := testutil.CreateUser(t, g.db, models.RoleUser)

	resp, err := g.auth.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testutil.Password})
	require.NoError(t, err)

	_, err = g.enforcement.Warn(ctx, user.ID, admin.ID, "warnings keep the session", nil)
	require.NoError(t, err)
	resp, err = g.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)

	_, err = g.enforcement.Restrict(ctx, user.ID, admin.ID, RestrictInput{
		Reason: "spam", ActionTaken: models.ActionAccountBanned,
	})
	require.NoError(t, err)

	_, err = g.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestRefresh_Expired(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, g.db, models.RoleUser)

	resp, err := g.auth.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testutil.Password})
	require.NoError(t, err)

	g.auth.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, err = g.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	g := newGateFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, g.db, models.RoleUser)

	resp, err := g.auth.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testutil.Password})
	require.NoError(t, err)

	require.NoError(t, g.auth.Logout(ctx, &dto.LogoutRequest{RefreshToken: resp.RefreshToken}))

	_, err = g.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrAuthentication)
}
