package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles recognised by the API.
const (
	RoleAdmin    = "admin"
	RoleHospital = "hospital"
	RoleDonor    = "donor"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by access tokens issued by the identity service.
type Claims struct {
	UserID  int64  `json:"uid"`
	DonorID int64  `json:"did,omitempty"`
	Role    string `json:"role"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTService verifies HS256 access tokens. Issuing is done upstream; Generate
// exists for operator tooling and tests.
type JWTService struct {
	secret []byte
	issuer string
}

func NewJWTService(secret, issuer string) *JWTService {
	return &JWTService{secret: []byte(secret), issuer: issuer}
}

func (s *JWTService) Generate(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
