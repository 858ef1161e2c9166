package jwt

import "github.com/golang-jwt/jwt"

// Payload holds the claims of a session token. The registered fields sit at
// the top level of the token body, next to the user fields.
type Payload struct {
	jwt.StandardClaims

	UserID string `json:"uid"`
	Name   string `json:"name,omitempty"`
}
