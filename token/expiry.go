package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessExpiry reads the exp claim of a JWT access token without verifying
// its signature. It is informational only; opaque tokens return false.
func AccessExpiry(access string) (time.Time, bool) {
	if access == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
