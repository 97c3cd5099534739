package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errNoToken = errors.New("no access token")

// AccessClaims is the payload of the hosted auth provider's access token.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func accessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(AccessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (g *Guard) parseAccessToken(raw string) (*AccessClaims, error) {
	if raw == "" {
		return nil, errNoToken
	}
	if len(g.opts.JWTSecret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}

	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return g.opts.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// SignAccessToken issues a token the guard accepts. Used by local tooling and tests.
func SignAccessToken(secret []byte, claims AccessClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
