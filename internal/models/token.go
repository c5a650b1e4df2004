package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the identity payload extracted from a verified access token.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	SchoolID string `json:"school_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
