package auth

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/jwt"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/password"
)

func init() {
	password.Cost = bcrypt.MinCost
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*user.User
	logins int
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ListSubAdmins(context.Context, uuid.UUID) ([]*user.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) UpdateProfile(context.Context, uuid.UUID, string, string) error { return nil }
func (f *fakeUserRepo) UpdatePassword(context.Context, uuid.UUID, string) error        { return nil }
func (f *fakeUserRepo) UpdateStatus(context.Context, uuid.UUID, user.Status) error     { return nil }
func (f *fakeUserRepo) UpdateLastLogin(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return nil
}

func (f *fakeUserRepo) UpdatePasscode(context.Context, uuid.UUID, sql.NullString) error {
	return nil
}

func newTestService(t *testing.T, signup bool, users ...*user.User) (*Service, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo(users...)
	return NewService(repo, jwt.NewService("secret", time.Minute, time.Hour), NewMemoryTokenStore(), signup), repo
}

func newUser(t *testing.T, email, pass string, role user.Role, status user.Status) *user.User {
	t.Helper()
	hash, err := password.Hash(pass)
	require.NoError(t, err)
	return &user.User{ID: uuid.New(), Email: email, PasswordHash: hash, Role: role, Status: status, CreatedAt: time.Now()}
}

func TestRegisterCreatesAdmin(t *testing.T) {
	svc, repo := newTestService(t, true)

	res, err := svc.Register(context.Background(), &RegisterRequest{Email: " Boss@Example.com", Password: "password123", Name: "Boss"})
	require.NoError(t, err)

	assert.Equal(t, "boss@example.com", res.User.Email)
	assert.Equal(t, user.RoleAdmin, res.User.Role)
	assert.Nil(t, res.User.AdminID)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.Equal(t, 60, res.Tokens.ExpiresIn)
	assert.Len(t, repo.users, 1)

	_, err = svc.Register(context.Background(), &RegisterRequest{Email: "boss@example.com", Password: "password123", Name: "Again"})
	assert.ErrorIs(t, err, user.ErrEmailAlreadyExists)
}

func TestRegisterDisabled(t *testing.T) {
	svc, _ := newTestService(t, false)
	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "a@b.c", Password: "password123", Name: "A"})
	assert.ErrorIs(t, err, user.ErrSignupDisabled)
}

func TestLogin(t *testing.T) {
	active := newUser(t, "on@example.com", "password123", user.RoleAdmin, user.StatusActive)
	inactive := newUser(t, "off@example.com", "password123", user.RoleAdmin, user.StatusInactive)
	svc, repo := newTestService(t, true, active, inactive)
	ctx := context.Background()

	res, err := svc.Login(ctx, &LoginRequest{Email: "ON@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, active.ID, res.User.ID)
	assert.Equal(t, 1, repo.logins)

	_, err = svc.Login(ctx, &LoginRequest{Email: "on@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginRequest{Email: "off@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestSubAdminTokenCarriesOwner(t *testing.T) {
	adminID := uuid.New()
	sub := newUser(t, "sub@example.com", "password123", user.RoleSubAdmin, user.StatusActive)
	sub.AdminID = uuid.NullUUID{UUID: adminID, Valid: true}
	jwtService := jwt.NewService("secret", time.Minute, time.Hour)
	svc := NewService(newFakeUserRepo(sub), jwtService, NewMemoryTokenStore(), false)

	res, err := svc.Login(context.Background(), &LoginRequest{Email: sub.Email, Password: "password123"})
	require.NoError(t, err)

	claims, err := jwtService.ValidateAccessToken(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "subadmin", claims.Role)
	require.NotNil(t, claims.AdminID)
	assert.Equal(t, adminID, *claims.AdminID)
}

func TestRefreshRotatesToken(t *testing.T) {
	u := newUser(t, "r@example.com", "password123", user.RoleAdmin, user.StatusActive)
	svc, _ := newTestService(t, true, u)
	ctx := context.Background()

	first, err := svc.Login(ctx, &LoginRequest{Email: u.Email, Password: "password123"})
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	_, err = svc.Refresh(ctx, first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrRefreshTokenRequired)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	u := newUser(t, "d@example.com", "password123", user.RoleAdmin, user.StatusActive)
	svc, _ := newTestService(t, true, u)
	ctx := context.Background()

	res, err := svc.Login(ctx, &LoginRequest{Email: u.Email, Password: "password123"})
	require.NoError(t, err)

	u.Status = user.StatusInactive
	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	u := newUser(t, "l@example.com", "password123", user.RoleAdmin, user.StatusActive)
	svc, _ := newTestService(t, true, u)
	ctx := context.Background()

	res, err := svc.Login(ctx, &LoginRequest{Email: u.Email, Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Tokens.RefreshToken))
	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRedisTokenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewTokenStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Save(ctx, "abc", id, time.Hour))
	assert.True(t, mr.Exists("refresh:abc"))

	got, err := store.Take(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.False(t, mr.Exists("refresh:abc"))

	_, err = store.Take(ctx, "abc")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, store.Save(ctx, "ttl", id, time.Minute))
	mr.FastForward(2 * time.Minute)
	_, err = store.Take(ctx, "ttl")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestMemoryTokenStoreExpiry(t *testing.T) {
	store := NewMemoryTokenStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "h", uuid.New(), time.Minute))
	now = now.Add(time.Minute)
	_, err := store.Take(ctx, "h")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
