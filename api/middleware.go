package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/memestall/memestall/apperr"
	"github.com/memestall/memestall/auth"
)

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"}

// identityFrom returns the verified identity attached to the request, if any.
func identityFrom(ctx context.Context) (*auth.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*auth.Identity)
	return ident, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// requireAuth rejects requests without a valid bearer credential and
// attaches the verified identity to the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, apperr.Unauthorized("missing bearer credential"))
			return
		}
		ident, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, ident)))
	})
}

// optionalAuth attaches an identity when a valid credential is presented
// but lets anonymous requests through. A presented-but-invalid credential
// is still rejected.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		ident, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, ident)))
	})
}
