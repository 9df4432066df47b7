package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/handler"
)

const ContextOwnerID = "owner_id"

// Claims carries the therapist id in "id"; "sub" is accepted as well.
type Claims struct {
	ID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) ownerID() (uuid.UUID, error) {
	raw := c.ID
	if raw == "" {
		raw = c.Subject
	}
	if raw == "" {
		return uuid.Nil, errors.New("token carries no owner id")
	}
	return uuid.Parse(raw)
}

type AuthMiddleware struct {
	secret []byte
	issuer string
}

func NewAuthMiddleware(secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), issuer: issuer}
}

// Authenticate verifies the bearer token and stores the owner id in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		owner, err := m.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}

		c.Set(ContextOwnerID, owner.String())
		c.Next()
	}
}

func (m *AuthMiddleware) ParseToken(token string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...); err != nil {
		return uuid.Nil, err
	}
	return claims.ownerID()
}

// IssueToken signs a token for owner. Used by tooling and tests; session
// issuance itself lives outside this service.
func (m *AuthMiddleware) IssueToken(owner uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID: owner.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   owner.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// OwnerID returns the authenticated owner.
func OwnerID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(ContextOwnerID)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	return id, err == nil
}
