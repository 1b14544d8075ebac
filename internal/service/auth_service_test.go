package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	config "github.com/maheshrc27/tupae-api/configs"
	"github.com/maheshrc27/tupae-api/internal/models"
	"github.com/maheshrc27/tupae-api/internal/repository"
	"github.com/maheshrc27/tupae-api/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeUserRepo struct {
	users   map[int64]*models.User
	nextID  int64
	updates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*models.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, bool, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, false, nil
	}
	c := *u
	return &c, true, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, true, nil
		}
	}
	return nil, false, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) (int64, error) {
	r.nextID++
	c := *user
	c.ID = r.nextID
	r.users[c.ID] = &c
	return c.ID, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.updates++
	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) Remove(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func testAuthConfig() config.Config {
	return config.Config{
		GoogleClientID:     "client",
		GoogleClientSecret: "secret",
		GoogleRedirectURI:  "http://localhost:3000/api/auth/google/callback",
		SecretKey:          "jwt-secret",
		TokenTTL:           time.Hour,
	}
}

// newTestAuthService points the token exchange at a local server that accepts
// the code "good".
func newTestAuthService(t *testing.T, users *fakeUserRepo, profile *transfer.GoogleUserInfo) *authService {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)

	svc := NewAuthService(testAuthConfig(), users).(*authService)
	svc.oauth.Endpoint = oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"}
	svc.fetchUser = func(ctx context.Context, src oauth2.TokenSource) (*transfer.GoogleUserInfo, error) {
		tok, err := src.Token()
		if err != nil {
			return nil, err
		}
		if tok.AccessToken != "access" {
			return nil, errors.New("unexpected access token")
		}
		return profile, nil
	}
	return svc
}

func TestAuthService_LoginCallbackCreatesThenUpdatesUser(t *testing.T) {
	users := newFakeUserRepo()
	profile := &transfer.GoogleUserInfo{ID: "g-1", Email: "ana@example.com", Name: "Ana", Picture: "https://img/1"}
	svc := newTestAuthService(t, users, profile)
	ctx := context.Background()

	id, err := svc.LoginCallback(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "Ana", users.users[1].Name)

	again, err := svc.LoginCallback(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Zero(t, users.updates)

	profile.Picture = "https://img/2"
	_, err = svc.LoginCallback(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, 1, users.updates)
	assert.Equal(t, "https://img/2", users.users[1].ProfileImage)
	assert.Len(t, users.users, 1)
}

func TestAuthService_LoginCallbackFailures(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAuthService(t, users, &transfer.GoogleUserInfo{ID: "g-1"})
	ctx := context.Background()

	_, err := svc.LoginCallback(ctx, "")
	requireValidation(t, err, "code", "")

	_, err = svc.LoginCallback(ctx, "bad")
	var collab *CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, "identity provider", collab.Collaborator)

	_, err = svc.LoginCallback(ctx, "good")
	requireValidation(t, err, "email", "")
	assert.Empty(t, users.users)

	cfg := testAuthConfig()
	cfg.GoogleClientSecret = ""
	_, err = NewAuthService(cfg, users).LoginCallback(ctx, "good")
	assert.Error(t, err)
}

func TestAuthService_AuthCodeURL(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), newFakeUserRepo())

	raw := svc.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}

func TestAuthService_Tokens(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), newFakeUserRepo())

	token, err := svc.IssueToken(42)
	require.NoError(t, err)

	id, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = svc.ParseToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	other := testAuthConfig()
	other.SecretKey = "another-secret"
	_, err = NewAuthService(other, newFakeUserRepo()).ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_GetUserInfo(t *testing.T) {
	users := newFakeUserRepo()
	id, err := users.Create(context.Background(), &models.User{Email: "ana@example.com"})
	require.NoError(t, err)
	svc := NewUserService(users, nil)

	user, err := svc.GetUserInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)

	_, err = svc.GetUserInfo(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingPurger struct{}

func (failingPurger) RemoveAllForUser(context.Context, int64) (int, error) {
	return 0, errors.New("store down")
}

func TestUserService_RemoveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := newFakeUserRepo()
	id, err := users.Create(ctx, &models.User{Email: "ana@example.com"})
	require.NoError(t, err)
	require.Equal(t, owner, id)

	first := f.create(t, "first", models.PlatformInstagram)
	first, err = f.svc.AttachMedia(ctx, first.ID, owner, []transfer.MediaFile{{Filename: "a.png", Data: pngBytes}})
	require.NoError(t, err)
	second := f.create(t, "second", models.PlatformTwitter)
	second, err = f.svc.AttachMedia(ctx, second.ID, owner, []transfer.MediaFile{{Filename: "b.gif", Data: gifBytes}})
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, intruder, creation("not mine", "", models.PlatformTwitter))
	require.NoError(t, err)
	f.media.failDelete[second.Media[0].URL] = true

	svc := NewUserService(users, f.svc)
	require.NoError(t, svc.RemoveUser(ctx, owner))

	_, err = svc.GetUserInfo(ctx, owner)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, postID := range []string{first.ID, second.ID} {
		_, err = f.svc.Get(ctx, postID, owner)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Contains(t, f.media.deleted, first.Media[0].URL)
	assert.Equal(t, []string{second.Media[0].URL}, f.cleanup.urls)
	assert.Contains(t, f.cache.invalidated, owner)

	_, err = f.svc.Get(ctx, other.ID, intruder)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.RemoveUser(ctx, owner), ErrNotFound)
}

func TestUserService_RemoveUserKeepsAccountWhenPostsFail(t *testing.T) {
	users := newFakeUserRepo()
	id, err := users.Create(context.Background(), &models.User{Email: "ana@example.com"})
	require.NoError(t, err)

	svc := NewUserService(users, failingPurger{})
	require.Error(t, svc.RemoveUser(context.Background(), id))

	_, err = svc.GetUserInfo(context.Background(), id)
	assert.NoError(t, err)
}
