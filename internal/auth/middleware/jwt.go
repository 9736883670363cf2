package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// CtxStaffIDKey holds the authenticated staff id (int64) in echo.Context.
	CtxStaffIDKey = "auth_staff_id"

	cookieName = "tracker_access_token"
	issuer     = "tree-tracker"
)

// NewJWT returns an Echo middleware that validates HS256 access JWTs and
// stores the staff id from the "sub" claim in the context.
func NewJWT(signingKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")

			// If no Authorization header, fall back to cookie-based session token
			if auth == "" {
				if cookie, err := c.Cookie(cookieName); err == nil && cookie != nil && cookie.Value != "" {
					auth = "Bearer " + cookie.Value
				}
			}

			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			tokStr := strings.TrimPrefix(auth, "Bearer ")

			id, err := ParseStaffToken(signingKey, tokStr)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			c.Set(CtxStaffIDKey, id)
			return next(c)
		}
	}
}

// ParseStaffToken validates tokStr and returns the numeric staff id in "sub".
func ParseStaffToken(signingKey, tokStr string) (int64, error) {
	tok, err := jwt.Parse(tokStr, func(token *jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithIssuedAt(), jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil || !tok.Valid {
		return 0, errors.New("invalid token")
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

// MintStaffToken signs an access token for staffID valid for ttl.
func MintStaffToken(signingKey string, staffID int64, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(staffID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
}

// StaffID returns the authenticated staff member's id from context.
func StaffID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxStaffIDKey).(int64)
	return id, ok && id > 0
}
