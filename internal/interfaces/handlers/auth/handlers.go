package auth

import (
	"context"
	"errors"
	"time"

	authsvc "estate-backend/internal/application/auth"
	"estate-backend/internal/domain"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
	JWTSecret  string
	Clock      func() time.Time
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// authenticate parses the credentials body and resolves the user. On failure it has already written the response.
func (h *Handlers) authenticate(c *fiber.Ctx) (*domain.User, bool, error) {
	if h.UserFinder == nil {
		return nil, false, response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return nil, false, response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	user, err := h.UserFinder.FindByEmailAndPassword(req.Email, req.Password)
	switch {
	case err == nil:
		return user, true, nil
	case errors.Is(err, authsvc.ErrEmailPasswordRequired):
		return nil, false, response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
		return nil, false, response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	default:
		log.Error().Err(err).Msg("login lookup failed")
		return nil, false, response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

func sessionUserOf(u *domain.User) middleware.SessionUser {
	return middleware.SessionUser{
		UserID:    u.UserID.String(),
		Fullname:  u.Fullname,
		Email:     u.Email,
		Role:      u.Role,
		PartnerID: nilString(u.PartnerID),
		CompanyID: nilString(u.CompanyID),
	}
}

// Login POST /api/v1/auth/login: authenticate, start a Redis session, track it under user_sessions:<user_id>, set the cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	user, ok, err := h.authenticate(c)
	if !ok {
		return err
	}

	sessionID := middleware.RegenerateSessionID(c)
	su := sessionUserOf(user)
	middleware.SetSessionUser(c, su)

	if err := h.Rdb.SAdd(context.Background(), userSessionsPrefix+su.UserID, sessionID).Err(); err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	log.Info().Str("user_id", su.UserID).Str("role", su.Role).Msg("login")
	return response.Success(c, "Login successful", fiber.Map{"user": su.Map()}, nil)
}

// Token POST /api/v1/auth/token: authenticate and return a bearer token instead of a session.
func (h *Handlers) Token(c *fiber.Ctx) error {
	if h.JWTSecret == "" {
		return response.Error(c, "Token issuing is not configured", fiber.StatusServiceUnavailable, nil)
	}
	user, ok, err := h.authenticate(c)
	if !ok {
		return err
	}
	token, exp, err := middleware.IssueToken(h.JWTSecret, sessionUserOf(user), h.now())
	if err != nil {
		log.Error().Err(err).Msg("token signing failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Token issued", fiber.Map{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": exp.UTC(),
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	sessionUser := middleware.GetUser(c)
	user, err := authsvc.VerifyUser(sessionUser)
	if err != nil {
		log.Debug().Str("path", "/auth/me").
			Bool("session_id_present", middleware.GetSessionID(c) != "").
			Bool("session_user_nil", sessionUser == nil).
			Msg("auth/me: not authenticated")
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout: forget the session in Redis and expire the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := context.Background()

	if actor, ok := middleware.GetActor(c); ok && sessionID != "" {
		_ = h.Rdb.SRem(ctx, userSessionsPrefix+actor.UserID.String(), sessionID).Err()
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	if h.Config.IsProduction && !h.Config.AllowCrossSiteDev && h.Config.CookieDomain != "" {
		cookie.Domain = h.Config.CookieDomain
	}
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

func nilString(u *uuid.UUID) *string {
	if u == nil {
		return nil
	}
	s := u.String()
	return &s
}
