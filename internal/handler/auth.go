package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperror"
	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/metrics"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

// OAuthEmailKey is the echo context key under which an upstream OAuth
// provider middleware stores the authenticated email.
const OAuthEmailKey = "oauth_email"

// storeTimeout bounds each store call made while serving a request.
const storeTimeout = 5 * time.Second

const (
	msgFillAllFields     = "Please fill all fields"
	msgUserExists        = "User already exists"
	msgUserNotFound      = "User not found"
	msgInvalidCreds      = "Invalid credentials"
	msgTokenFailed       = "token generation failed"
	msgPasswordTooLong   = "Password must be at most 72 bytes"
	msgSamePassword      = "New password cannot be same as current password"
	msgPasswordsMismatch = "Passwords do not match"
	msgInvalidStatus     = "Invalid status value"
	msgInvalidDOB        = "Invalid date of birth"
)

// field is a named request value checked against a maximum length.
type field struct {
	name  string
	value string
	max   int
}

// checkLengths rejects the first field longer than its column allows.
func checkLengths(fields ...field) error {
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > f.max {
			return apperror.Validation(fmt.Sprintf("%s must be at most %d characters", f.name, f.max))
		}
	}
	return nil
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

// Issuer signs session tokens.
type Issuer interface {
	Issue(u model.User) (utils.SessionToken, error)
}

// Publisher emits account events. Failures never fail the request.
type Publisher interface {
	Publish(ctx context.Context, ev queue.AccountEvent) error
}

// AccountHandler bundles dependencies for the account endpoints. Events and
// Metrics are optional.
type AccountHandler struct {
	Users     repository.UserStore
	Hasher    Hasher
	Tokens    Issuer
	Events    Publisher
	Metrics   *metrics.Metrics
	Cookies   config.CookieConfig
	ClientURL string
	Logger    *slog.Logger
}

func NewAccountHandler(cfg config.Config, users repository.UserStore, hasher Hasher, tokens Issuer) *AccountHandler {
	return &AccountHandler{
		Users:     users,
		Hasher:    hasher,
		Tokens:    tokens,
		Cookies:   cfg.Cookie,
		ClientURL: cfg.ClientURL,
		Logger:    slog.Default(),
	}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account with the default role. No session is issued.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = model.NormalizeEmail(req.Email)
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		h.Metrics.Registration(metrics.OutcomeInvalid)
		return apperror.Validation(msgFillAllFields + ".")
	}
	if len(req.Password) > utils.MaxPasswordBytes {
		h.Metrics.Registration(metrics.OutcomeInvalid)
		return apperror.Validation(msgPasswordTooLong)
	}
	if err := checkLengths(
		field{"firstName", req.FirstName, model.MaxNameLen},
		field{"lastName", req.LastName, model.MaxNameLen},
		field{"email", req.Email, model.MaxEmailLen},
	); err != nil {
		h.Metrics.Registration(metrics.OutcomeInvalid)
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	// Fast path for a clear message; the unique index below is authoritative.
	if _, err := h.Users.FindByEmail(ctx, req.Email); err == nil {
		h.Metrics.Registration(metrics.OutcomeConflict)
		return apperror.Conflict(msgUserExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.Metrics.Registration(metrics.OutcomeError)
		return apperror.Storage("find_by_email", err)
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		h.Metrics.Registration(metrics.OutcomeError)
		return err
	}

	u, err := h.Users.Create(ctx, model.User{
		Name:               model.FullName(req.FirstName, req.LastName),
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		PasswordHash:       hash,
		Roles:              []string{model.DefaultRole},
		EmailNotifications: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			h.Metrics.Registration(metrics.OutcomeConflict)
			return apperror.Conflict(msgUserExists)
		}
		h.Metrics.Registration(metrics.OutcomeError)
		return apperror.Storage("create", err)
	}

	h.Metrics.Registration(metrics.OutcomeSuccess)
	h.publish(c, queue.EventUserRegistered, u)
	return respond(c, http.StatusCreated, u, "User created successfully")
}

// Login verifies credentials and sets the token and role cookies.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Email = model.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		h.Metrics.Login(metrics.OutcomeInvalid)
		return apperror.Validation(msgFillAllFields)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	u, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.Metrics.Login(metrics.OutcomeNotFound)
			return apperror.NotFound(msgUserNotFound)
		}
		h.Metrics.Login(metrics.OutcomeError)
		return apperror.Storage("find_by_email", err)
	}

	// bcrypt ignores input past 72 bytes; a longer password never matches.
	if len(req.Password) > utils.MaxPasswordBytes {
		h.Metrics.Login(metrics.OutcomeDenied)
		return apperror.Authentication(msgInvalidCreds)
	}
	ok, err := h.Hasher.Verify(req.Password, u.PasswordHash)
	if err != nil {
		h.Metrics.Login(metrics.OutcomeError)
		return err
	}
	if !ok {
		h.Metrics.Login(metrics.OutcomeDenied)
		return apperror.Authentication(msgInvalidCreds)
	}

	if err := h.startSession(c, u); err != nil {
		h.Metrics.Login(metrics.OutcomeError)
		return err
	}
	h.Metrics.Login(metrics.OutcomeSuccess)
	return respond(c, http.StatusOK, nil, "User logged in successfully")
}

// Logout clears the session cookies. It needs no authentication and always
// succeeds.
func (h *AccountHandler) Logout(c echo.Context) error {
	h.clearSessionCookies(c)
	h.Metrics.Logout()
	return respond(c, http.StatusOK, nil, "User logged out successfully")
}

// OAuthCallback redirects to the client landing page. When a provider
// middleware has put a verified email in the context and it belongs to a
// known account, session cookies are issued first.
func (h *AccountHandler) OAuthCallback(c echo.Context) error {
	if email, ok := c.Get(OAuthEmailKey).(string); ok && email != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
		defer cancel()
		u, err := h.Users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			if err := h.startSession(c, u); err != nil {
				h.Logger.WarnContext(ctx, "oauth session issue failed", "user_id", u.ID, "error", err)
			}
		case !errors.Is(err, repository.ErrNotFound):
			h.Logger.WarnContext(ctx, "oauth user lookup failed", "error", err)
		}
	}
	return c.Redirect(http.StatusFound, h.ClientURL+"/landingPage")
}

// startSession issues a token for u and attaches both cookies.
func (h *AccountHandler) startSession(c echo.Context, u model.User) error {
	tok, err := h.Tokens.Issue(u)
	if err != nil {
		return apperror.Internal(msgTokenFailed, err)
	}
	h.setSessionCookies(c, tok, u)
	return nil
}

// publish emits an account event in the background of the request. The
// response does not wait on the broker.
func (h *AccountHandler) publish(c echo.Context, eventType string, u model.User) {
	if h.Events == nil {
		return
	}
	ev := queue.AccountEvent{
		Type:               eventType,
		UserID:             u.ID,
		Email:              u.Email,
		Name:               u.Name,
		EmailNotifications: u.EmailNotifications,
		OccurredAt:         time.Now().UTC(),
	}
	ctx := context.WithoutCancel(c.Request().Context())
	go func() {
		ctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		_ = h.Events.Publish(ctx, ev)
	}()
}
