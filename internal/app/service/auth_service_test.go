package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/common/security"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/platform/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc     *AuthService
	mock    sqlmock.Sqlmock
	users   *fakeUserRepo
	admins  *fakeAdminRepo
	revoker *fakeRevoker
	mailer  *fakeMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()

	db, mock := newTxDB(t)
	f := &authFixture{
		mock:    mock,
		users:   newFakeUserRepo(),
		admins:  &fakeAdminRepo{},
		revoker: &fakeRevoker{},
		mailer:  &fakeMailer{},
	}
	identities := NewIdentityService(f.users, f.admins)
	f.svc = NewAuthService(f.users, identities, f.revoker, f.mailer, "https://hunt.test", db)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return f
}

func confirmationToken(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestSignupConfirmLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.svc.Signup(ctx, SignupRequest{Name: "Ann", Email: " Ann@Example.com ", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", resp.User.Email)
	assert.Empty(t, resp.User.HashedPassword)
	require.Len(t, f.mailer.links, 1)
	assert.True(t, strings.HasPrefix(f.mailer.links[0], "https://hunt.test/api/v1/auth/confirm?token="))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, common.ErrEmailNotConfirmed)

	require.NoError(t, f.svc.ConfirmEmail(ctx, confirmationToken(t, f.mailer.links[0])))

	auth, err := f.svc.Login(ctx, LoginRequest{Email: "ANN@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, model.Individual("Ann"), auth.Identity.DisplayName)
	assert.False(t, auth.Identity.IsAdmin)
	assert.Empty(t, auth.Identity.User.HashedPassword)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = f.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSignupTeam(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.svc.Signup(ctx, SignupRequest{Name: "The Gnomes", Email: "gnomes@example.com", Password: "secret1", IsTeam: true})
	require.NoError(t, err)
	team, err := f.users.FindTeamByUserID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Gnomes", team.Name)

	f.admins.admins = map[string]bool{resp.User.ID: true}
	identity, err := f.svc.identities.Resolve(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TeamName("The Gnomes"), identity.DisplayName)
	assert.True(t, identity.IsAdmin)
}

func TestSignupRejections(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.svc.Signup(ctx, SignupRequest{Name: "Ann", Email: "not-an-email", Password: "hunter22"})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = f.svc.Signup(ctx, SignupRequest{Name: "Ann", Email: "ann@example.com", Password: "123"})
	assert.ErrorIs(t, err, common.ErrValidation)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Signup(ctx, SignupRequest{Name: "Ann", Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Signup(ctx, SignupRequest{Name: "Ann Again", Email: "ANN@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestResendConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.mailer.err = errors.New("smtp: connection refused")
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.Signup(ctx, SignupRequest{Name: "Ann", Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.Empty(t, f.mailer.links, "first mail was lost")

	f.mailer.err = nil
	require.NoError(t, f.svc.ResendConfirmation(ctx, ResendConfirmationRequest{Email: " ANN@example.com"}))
	require.Len(t, f.mailer.links, 1)
	assert.Equal(t, []string{"ann@example.com"}, f.mailer.to)

	require.NoError(t, f.svc.ConfirmEmail(ctx, confirmationToken(t, f.mailer.links[0])))
	_, err = f.svc.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)

	// Confirmed and unknown addresses look the same to the caller and send nothing.
	assert.NoError(t, f.svc.ResendConfirmation(ctx, ResendConfirmationRequest{Email: "ann@example.com"}))
	assert.NoError(t, f.svc.ResendConfirmation(ctx, ResendConfirmationRequest{Email: "nobody@example.com"}))
	assert.Len(t, f.mailer.links, 1)

	assert.ErrorIs(t, f.svc.ResendConfirmation(ctx, ResendConfirmationRequest{Email: "nope"}), common.ErrValidation)
}

func TestConfirmEmailRejectsOtherTokens(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	session, err := security.GenerateToken("u1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ConfirmEmail(ctx, session), common.ErrBadRequest)
	assert.ErrorIs(t, f.svc.ConfirmEmail(ctx, "garbage"), common.ErrBadRequest)
	assert.ErrorIs(t, f.svc.ConfirmEmail(ctx, ""), common.ErrBadRequest)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	exp := time.Now().Add(time.Hour)

	require.NoError(t, f.svc.Logout(ctx, "jti-1", exp))
	revoked, err := f.revoker.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.ErrorIs(t, f.svc.Logout(ctx, "", exp), common.ErrBadRequest)
}

func TestUpdateName(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	resp, err := f.svc.Signup(ctx, SignupRequest{Name: "Gnomes", Email: "g@example.com", Password: "secret1", IsTeam: true})
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	identity, err := f.svc.UpdateName(ctx, resp.User.ID, UpdateNameRequest{Name: "  Garden Gnomes "})
	require.NoError(t, err)
	assert.Equal(t, "Garden Gnomes", identity.User.Name)
	assert.Equal(t, model.TeamName("Garden Gnomes"), identity.DisplayName)

	_, err = f.svc.UpdateName(ctx, resp.User.ID, UpdateNameRequest{Name: "   "})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = f.svc.UpdateName(ctx, "missing", UpdateNameRequest{Name: "x"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIdentityResolveMissingUser(t *testing.T) {
	svc := NewIdentityService(newFakeUserRepo(), &fakeAdminRepo{})
	_, err := svc.Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
