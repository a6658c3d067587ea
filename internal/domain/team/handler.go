package team

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/errorhandler"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/validator"
)

var errorMappings = []errorhandler.Mapping{
	{Err: user.ErrUserNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Err: user.ErrEmailAlreadyExists, Status: http.StatusConflict, Code: "EMAIL_EXISTS", Message: "Email already registered"},
	{Err: user.ErrAdminOnly, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"},
	{Err: user.ErrNotOwner, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"},
	{Err: user.ErrNotSubAdmin, Status: http.StatusBadRequest, Code: "NOT_SUB_ADMIN"},
	{Err: user.ErrInvalidStatus, Status: http.StatusBadRequest, Code: "INVALID_STATUS"},
	{Err: user.ErrWrongPassword, Status: http.StatusBadRequest, Code: "WRONG_PASSWORD"},
	{Err: user.ErrInvalidPasscode, Status: http.StatusBadRequest, Code: "INVALID_PASSCODE"},
	{Err: user.ErrWrongPasscode, Status: http.StatusBadRequest, Code: "WRONG_PASSCODE"},
	{Err: user.ErrPasscodeNotSet, Status: http.StatusNotFound, Code: "PASSCODE_NOT_SET"},
	{Err: user.ErrPasscodeAlreadySet, Status: http.StatusConflict, Code: "PASSCODE_EXISTS"},
	{Err: user.ErrPasscodeSubAdmin, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"},
}

// Handler handles user management HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListSubAdmins handles GET /users/subadmins
func (h *Handler) ListSubAdmins(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	users, err := h.service.ListSubAdmins(r.Context(), actor)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.WithMeta(w, user.NewResponseList(users), response.Meta{Total: len(users)})
}

// CreateSubAdmin handles POST /users/subadmins
func (h *Handler) CreateSubAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateSubAdminRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	created, err := h.service.CreateSubAdmin(r.Context(), actor, &req)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.Created(w, created)
}

// SetStatus handles PATCH /users/subadmins/{id}/status
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req UpdateStatusRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	u, err := h.service.SetSubAdminStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, user.NewResponse(u))
}

// UpdateMe handles PATCH /users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateProfileRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, user.NewResponse(u))
}

// ChangePassword handles POST /users/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ChangePasswordRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.NoContent(w)
}

// GetPasscode handles GET /users/me/passcode
func (h *Handler) GetPasscode(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, PasscodeStatus{HasPasscode: u.HasPasscode()})
}

// SetPasscode handles PUT /users/me/passcode
func (h *Handler) SetPasscode(w http.ResponseWriter, r *http.Request) {
	var req PasscodeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.service.SetPasscode(r.Context(), middleware.GetUserID(r.Context()), req.Passcode); err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.NoContent(w)
}

// VerifyPasscode handles POST /users/me/passcode/verify
func (h *Handler) VerifyPasscode(w http.ResponseWriter, r *http.Request) {
	var req PasscodeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.service.VerifyPasscode(r.Context(), middleware.GetUserID(r.Context()), req.Passcode); err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.NoContent(w)
}

// ChangePasscode handles POST /users/me/passcode/change
func (h *Handler) ChangePasscode(w http.ResponseWriter, r *http.Request) {
	var req ChangePasscodeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	err := h.service.ChangePasscode(r.Context(), middleware.GetUserID(r.Context()), req.CurrentPasscode, req.NewPasscode)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.NoContent(w)
}

// DeletePasscode handles DELETE /users/me/passcode
func (h *Handler) DeletePasscode(w http.ResponseWriter, r *http.Request) {
	var req DeletePasscodeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.service.DeletePasscode(r.Context(), middleware.GetUserID(r.Context()), req.CurrentPasscode); err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.NoContent(w)
}

func decodeValid(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := response.DecodeJSON(r.Body, v); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	if errs := validator.Validate(v); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return false
	}
	return true
}
