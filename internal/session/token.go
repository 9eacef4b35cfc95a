package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"alcyxob/flexcoach/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token or missing claims")
	ErrTokenExpired = errors.New("token has expired")
)

// tokenIssuer identifies tokens minted by IssueToken.
const tokenIssuer = "flexcoach"

// Claims is the JWT payload identifying an actor. Client tokens also carry
// the id of the coach whose data they belong to.
type Claims struct {
	UserID  string      `json:"uid"`
	Role    domain.Role `json:"role"`
	CoachID string      `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for userID. The external auth service normally
// does this; the bridge uses it for local development logins.
func IssueToken(secret, userID string, role domain.Role, coachID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := &Claims{
		UserID:  userID,
		Role:    role,
		CoachID: coachID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies tokenString and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	if claims.Role == domain.RoleClient && claims.CoachID == "" {
		return nil, fmt.Errorf("%w: client token without coach", ErrInvalidToken)
	}
	return claims, nil
}
