// Package jwtprovider is an example authprovider.Provider that treats a
// single "bearer" credential as a github.com/golang-jwt/jwt/v5 token and
// maps its verified claims to an authprovider.Identity.
package jwtprovider

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/coreremoting/coreremoting/authprovider"
)

// Claims is the JWT payload this provider understands.
type Claims struct {
	Name   string   `json:"name"`
	Domain string   `json:"domain"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Provider validates bearer tokens signed with an HMAC secret.
type Provider struct {
	secret []byte
	issuer string
}

// New builds a Provider. secret must be at least 32 bytes, matching the
// teacher's JWTConfig.Secret validation.
func New(secret []byte, issuer string) (*Provider, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwtprovider: secret must be at least 32 bytes")
	}
	return &Provider{secret: secret, issuer: issuer}, nil
}

// CanHandle reports whether creds carries a credential named "bearer".
func (p *Provider) CanHandle(creds []authprovider.Credential) bool {
	for _, c := range creds {
		if c.Name == "bearer" {
			return true
		}
	}
	return false
}

// Authenticate parses and verifies the bearer token, mapping its claims
// to an Identity.
func (p *Provider) Authenticate(ctx context.Context, creds []authprovider.Credential) (*authprovider.Identity, error) {
	var tokenString string
	for _, c := range creds {
		if c.Name == "bearer" {
			tokenString = c.Value
			break
		}
	}
	if tokenString == "" {
		return nil, authprovider.ErrUnsupportedMechanism
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authprovider.ErrAuthFailed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, authprovider.ErrAuthFailed
	}

	return &authprovider.Identity{
		Name:               claims.Name,
		Domain:             claims.Domain,
		Roles:              claims.Roles,
		AuthenticationType: "jwt",
	}, nil
}

// Name identifies this provider for logging.
func (p *Provider) Name() string {
	return "jwt"
}

var _ authprovider.Provider = (*Provider)(nil)
