package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperror"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

type detailsReq struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Email       string `json:"email"`
	PhoneNo     string `json:"phoneNo"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// toggleEmailReq keeps status untyped so a JSON boolean is reported as an
// invalid value rather than a bind failure.
type toggleEmailReq struct {
	Status any `json:"status"`
}

// AddDetails replaces the profile fields of the authenticated user.
func (h *AccountHandler) AddDetails(c echo.Context) error {
	var req detailsReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = model.NormalizeEmail(req.Email)
	req.PhoneNo = strings.TrimSpace(req.PhoneNo)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	if req.FirstName == "" || req.LastName == "" || req.DateOfBirth == "" || req.Email == "" || req.PhoneNo == "" {
		return apperror.Validation(msgFillAllFields)
	}
	if err := checkLengths(
		field{"firstName", req.FirstName, model.MaxNameLen},
		field{"lastName", req.LastName, model.MaxNameLen},
		field{"email", req.Email, model.MaxEmailLen},
		field{"phoneNo", req.PhoneNo, model.MaxPhoneLen},
	); err != nil {
		return err
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return apperror.Validation(msgInvalidDOB)
	}
	id, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if _, err := h.findUser(ctx, id); err != nil {
		return err
	}
	name := model.FullName(req.FirstName, req.LastName)
	u, err := h.Users.UpdateByID(ctx, id, model.UserPatch{
		Name:        &name,
		FirstName:   &req.FirstName,
		LastName:    &req.LastName,
		DateOfBirth: &dob,
		Email:       &req.Email,
		PhoneNo:     &req.PhoneNo,
	})
	if err != nil {
		return updateError(err)
	}
	return respond(c, http.StatusOK, u, "User details added successfully")
}

// ChangePassword replaces the password after verifying the current one.
// Existing sessions stay valid until they expire.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return apperror.Validation(msgFillAllFields)
	}
	if req.CurrentPassword == req.NewPassword {
		return apperror.Validation(msgSamePassword)
	}
	if req.NewPassword != req.ConfirmPassword {
		return apperror.Validation(msgPasswordsMismatch)
	}
	if len(req.NewPassword) > utils.MaxPasswordBytes {
		return apperror.Validation(msgPasswordTooLong)
	}
	id, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	u, err := lookupUser(ctx, repository.Authoritative(h.Users), id)
	if err != nil {
		return err
	}
	ok, err := h.Hasher.Verify(req.CurrentPassword, u.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Authentication(msgInvalidCreds)
	}
	hash, err := h.Hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	u, err = h.Users.UpdateByID(ctx, id, model.UserPatch{PasswordHash: &hash})
	if err != nil {
		return updateError(err)
	}

	h.publish(c, queue.EventPasswordChanged, u)
	return respond(c, http.StatusOK, u, "Password changed successfully")
}

// GetUser returns the authenticated user's profile.
func (h *AccountHandler) GetUser(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	u, err := h.findUser(ctx, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, u, "User fetched successfully!!")
}

// ToggleEmail sets the email-notification preference from the strings
// "true" or "false".
func (h *AccountHandler) ToggleEmail(c echo.Context) error {
	var req toggleEmailReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	var enabled bool
	switch v := req.Status.(type) {
	case nil:
		return apperror.Validation(msgFillAllFields)
	case string:
		switch v {
		case "":
			return apperror.Validation(msgFillAllFields)
		case "true":
			enabled = true
		case "false":
			enabled = false
		default:
			return apperror.Validation(msgInvalidStatus)
		}
	default:
		return apperror.Validation(msgInvalidStatus)
	}
	id, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if _, err := h.findUser(ctx, id); err != nil {
		return err
	}
	u, err := h.Users.UpdateByID(ctx, id, model.UserPatch{EmailNotifications: &enabled})
	if err != nil {
		return updateError(err)
	}

	h.publish(c, queue.EventEmailNotificationsChanged, u)
	return respond(c, http.StatusOK, u, "Email notification updated successfully")
}

func currentUserID(c echo.Context) (string, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return "", apperror.Authentication("Unauthorized request")
	}
	return id, nil
}

func (h *AccountHandler) findUser(ctx context.Context, id string) (model.User, error) {
	return lookupUser(ctx, h.Users, id)
}

// lookupUser reads id from store, mapping a miss to a 404.
func lookupUser(ctx context.Context, store repository.UserStore, id string) (model.User, error) {
	u, err := store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperror.NotFound(msgUserNotFound)
		}
		return model.User{}, apperror.Storage("find_by_id", err)
	}
	return u, nil
}

func updateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound(msgUserNotFound)
	case errors.Is(err, repository.ErrConflict):
		return apperror.Conflict(msgUserExists)
	}
	return apperror.Storage("update_by_id", err)
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
