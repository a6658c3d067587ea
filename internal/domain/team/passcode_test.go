package team

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
)

func newSubAdmin(admin *user.User) *user.User {
	return &user.User{
		ID:      uuid.New(),
		Email:   "sub@example.com",
		Role:    user.RoleSubAdmin,
		Status:  user.StatusActive,
		AdminID: uuid.NullUUID{UUID: admin.ID, Valid: true},
	}
}

func TestPasscodeLifecycle(t *testing.T) {
	ctx := context.Background()
	admin := newAdmin()
	sub := newSubAdmin(admin)
	repo := newMemoryRepo(admin, sub)
	svc := NewService(repo, nil, 10)

	assert.ErrorIs(t, svc.VerifyPasscode(ctx, sub.ID, "1234"), user.ErrPasscodeNotSet)
	assert.ErrorIs(t, svc.SetPasscode(ctx, sub.ID, "12a4"), user.ErrInvalidPasscode)
	assert.ErrorIs(t, svc.SetPasscode(ctx, sub.ID, "12345"), user.ErrInvalidPasscode)

	require.NoError(t, svc.SetPasscode(ctx, sub.ID, "1234"))
	stored, _ := repo.GetByID(ctx, sub.ID)
	require.True(t, stored.HasPasscode())
	assert.NotEqual(t, "1234", stored.PasscodeHash.String)

	assert.ErrorIs(t, svc.SetPasscode(ctx, sub.ID, "9999"), user.ErrPasscodeAlreadySet)
	assert.NoError(t, svc.VerifyPasscode(ctx, sub.ID, "1234"))
	assert.ErrorIs(t, svc.VerifyPasscode(ctx, sub.ID, "4321"), user.ErrWrongPasscode)

	assert.ErrorIs(t, svc.ChangePasscode(ctx, sub.ID, "0000", "5678"), user.ErrWrongPasscode)
	require.NoError(t, svc.ChangePasscode(ctx, sub.ID, "1234", "5678"))
	assert.ErrorIs(t, svc.VerifyPasscode(ctx, sub.ID, "1234"), user.ErrWrongPasscode)
	assert.NoError(t, svc.VerifyPasscode(ctx, sub.ID, "5678"))

	assert.ErrorIs(t, svc.DeletePasscode(ctx, sub.ID, "1234"), user.ErrWrongPasscode)
	require.NoError(t, svc.DeletePasscode(ctx, sub.ID, "5678"))
	stored, _ = repo.GetByID(ctx, sub.ID)
	assert.False(t, stored.HasPasscode())
	assert.ErrorIs(t, svc.DeletePasscode(ctx, sub.ID, "5678"), user.ErrPasscodeNotSet)
}

func TestPasscodeIsSubAdminOnly(t *testing.T) {
	admin := newAdmin()
	svc := NewService(newMemoryRepo(admin), nil, 10)

	assert.ErrorIs(t, svc.SetPasscode(context.Background(), admin.ID, "1234"), user.ErrPasscodeSubAdmin)
}

func TestPasscodeHandlers(t *testing.T) {
	admin := newAdmin()
	sub := newSubAdmin(admin)
	h := NewHandler(NewService(newMemoryRepo(admin, sub), nil, 10))

	rec := serve(t, h, admin, http.MethodGet, "/users/me/passcode", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin, got %d", rec.Code)
	}

	rec = serve(t, h, sub, http.MethodPut, "/users/me/passcode", map[string]string{"passcode": "12"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for short passcode, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, sub, http.MethodPut, "/users/me/passcode", map[string]string{"passcode": "2468"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, sub, http.MethodPut, "/users/me/passcode", map[string]string{"passcode": "1357"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second set, got %d", rec.Code)
	}

	rec = serve(t, h, sub, http.MethodPost, "/users/me/passcode/verify", map[string]string{"passcode": "1357"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong passcode, got %d", rec.Code)
	}

	rec = serve(t, h, sub, http.MethodPost, "/users/me/passcode/change",
		map[string]string{"current_passcode": "2468", "new_passcode": "1357"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on change, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, sub, http.MethodDelete, "/users/me/passcode", map[string]string{"current_passcode": "1357"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, sub, http.MethodGet, "/users/me/passcode", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
