package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"medledger/m/domain"
	"medledger/m/internal/testutil"
)

func newCredentials(t *testing.T) *Credentials {
	c := NewCredentials(testutil.NewDB(t), nil)
	c.Cost = bcrypt.MinCost
	return c
}

func TestCreateUserAndLogin(t *testing.T) {
	c := newCredentials(t)
	ctx := context.Background()

	u, err := c.CreateUser(ctx, NewUser{Username: " clerk ", Password: "s3cret", Role: domain.RoleUser, Email: "Clerk@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "clerk", u.Username)
	assert.Equal(t, "clerk@example.com", u.Email)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	got, err := c.ValidateLogin(ctx, "clerk", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, domain.RoleUser, got.Role)

	got, err = c.ValidateLogin(ctx, "clerk", "wrong")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.ValidateLogin(ctx, "nobody", "s3cret")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateUserErrors(t *testing.T) {
	c := newCredentials(t)
	ctx := context.Background()

	_, err := c.CreateUser(ctx, NewUser{Username: "a", Password: "p", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = c.CreateUser(ctx, NewUser{Username: "a", Password: "q", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = c.CreateUser(ctx, NewUser{Username: "", Password: "p", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = c.CreateUser(ctx, NewUser{Username: "b", Password: "", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = c.CreateUser(ctx, NewUser{Username: "b", Password: "p", Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEnsureAdminOnlyOnEmptyTable(t *testing.T) {
	c := newCredentials(t)
	ctx := context.Background()

	created, err := c.EnsureAdmin(ctx, "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.EnsureAdmin(ctx, "other")
	require.NoError(t, err)
	assert.False(t, created)

	users, err := c.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, DefaultAdmin, users[0].Username)
	assert.Equal(t, domain.RoleAdmin, users[0].Role)

	admin, err := c.ValidateLogin(ctx, DefaultAdmin, "admin123")
	require.NoError(t, err)
	assert.NotNil(t, admin)
}

func TestSessionsRoundTrip(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)
	token, err := s.Issue(domain.User{ID: 7, Username: "clerk", Role: domain.RoleUser})
	require.NoError(t, err)

	actor, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: 7, Role: domain.RoleUser}, actor)
}

func TestSessionsRejectBadTokens(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)
	token, err := s.Issue(domain.User{ID: 1, Username: "admin", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = NewSessions("other-secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	expired := NewSessions("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(token)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.Parse("not-a-token")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	forged, err := s.Issue(domain.User{ID: 2, Role: "owner"})
	require.NoError(t, err)
	_, err = s.Parse(forged)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
