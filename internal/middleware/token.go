package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of issued API tokens.
const TokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("Token is invalid")

// TokenClaims carries the session user inside an API token.
type TokenClaims struct {
	Fullname  string  `json:"fullname"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	PartnerID *string `json:"partner_id,omitempty"`
	CompanyID *string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for user valid for TokenTTL from now.
func IssueToken(secret string, user SessionUser, now time.Time) (string, time.Time, error) {
	exp := now.Add(TokenTTL)
	claims := TokenClaims{
		Fullname:  user.Fullname,
		Email:     user.Email,
		Role:      user.Role,
		PartnerID: user.PartnerID,
		CompanyID: user.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseToken validates an HS256 token and returns its user.
func ParseToken(secret, raw string) (SessionUser, error) {
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return SessionUser{}, ErrInvalidToken
	}
	return SessionUser{
		UserID:    claims.Subject,
		Fullname:  claims.Fullname,
		Email:     claims.Email,
		Role:      claims.Role,
		PartnerID: claims.PartnerID,
		CompanyID: claims.CompanyID,
	}, nil
}

// BearerAuth accepts "Authorization: Bearer <token>" as an alternative to the session cookie.
// Requests without the header pass through untouched; an invalid token is rejected with 401.
func BearerAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || secret == "" {
			return c.Next()
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status": "error",
				"error":  fiber.Map{"message": "Token format is invalid", "statusCode": 401, "details": fiber.Map{}},
			})
		}
		user, err := ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status": "error",
				"error":  fiber.Map{"message": err.Error(), "statusCode": 401, "details": fiber.Map{}},
			})
		}
		c.Locals(userLocal, user.Map())
		return c.Next()
	}
}
