package service

import (
	"errors"
	"quizprogress/internal/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService validates the LMS access tokens the UI sends
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new auth service sharing the LMS signing secret
func NewAuthService(secret string) *AuthService {
	return &AuthService{
		jwtSecret: []byte(secret),
	}
}

// ValidateUserToken validates an access token and returns the caller
func (s *AuthService) ValidateUserToken(tokenString string) (*model.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid || claims.Identity() == "" {
		return nil, ErrInvalidToken
	}

	return &model.User{
		ID:    claims.Identity(),
		Role:  claims.Role,
		Token: tokenString,
	}, nil
}

// GenerateUserToken signs an access token. The LMS normally issues these;
// this is used by tooling and tests.
func (s *AuthService) GenerateUserToken(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &model.UserClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
