// Package auth verifies bearer credentials issued by a Cognito user pool.
//
// Tokens are RS256 JWTs validated against the pool's published JWKS. The
// verified subject claim is the stable user identifier the rest of the
// system trusts; the email claim is only a hint for deriving a first handle.
package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/memestall/memestall/apperr"
)

// Identity is the result of a successful credential verification.
type Identity struct {
	Subject string
	Email   string
}

// Verifier validates Cognito JWTs against the pool JWKS.
type Verifier struct {
	issuer     string
	jwksURL    string
	httpClient *http.Client

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

// NewCognito creates a Verifier for the given user pool.
func NewCognito(region, userPoolID string) *Verifier {
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
	return &Verifier{
		issuer:     issuer,
		jwksURL:    issuer + "/.well-known/jwks.json",
		httpClient: http.DefaultClient,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// NewWithJWKS creates a Verifier against an explicit JWKS endpoint.
// Issuer validation is skipped when issuer is empty.
func NewWithJWKS(issuer, jwksURL string, client *http.Client) *Verifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Verifier{
		issuer:     issuer,
		jwksURL:    jwksURL,
		httpClient: client,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// Verify validates the token and returns the identity it asserts.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.signingKey(ctx, kid)
	}, opts...)
	if err != nil {
		return nil, apperr.Unauthorized("invalid credential")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.Unauthorized("invalid credential")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, apperr.Unauthorized("credential has no subject")
	}
	email, _ := claims["email"].(string)

	return &Identity{Subject: sub, Email: email}, nil
}

// signingKey returns the cached public key for kid, refreshing the JWKS on
// a miss (key rotation).
func (v *Verifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	v.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no signing key with kid %q", kid)
	}
	return key, nil
}
