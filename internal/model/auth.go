package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are the claims of an LMS-issued access token
type UserClaims struct {
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the user id, falling back to the subject claim
func (c *UserClaims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// User is the authenticated caller. Token is forwarded to the LMS as-is.
type User struct {
	ID    string
	Role  string
	Token string
}
