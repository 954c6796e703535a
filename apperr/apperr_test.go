package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/memestall/memestall/apperr"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  *apperr.Error
		want int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Conflict("taken"), http.StatusConflict},
		{apperr.AllocationExhausted("full"), http.StatusConflict},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.Unauthorized("who"), http.StatusUnauthorized},
		{apperr.Store("broke", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.err.Code, tt.want, got)
		}
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := apperr.NotFound("item not found")
	if !errors.Is(err, apperr.NotFound("")) {
		t.Error("expected NotFound errors to match by code")
	}
	if errors.Is(err, apperr.Conflict("")) {
		t.Error("expected different codes not to match")
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if !errors.Is(wrapped, apperr.NotFound("")) {
		t.Error("expected match through wrapping")
	}
}

func TestStoreWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperr.Store("get item", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause reachable through Unwrap")
	}
	if err.Error() != "get item: connection reset" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	if got := apperr.CodeOf(apperr.Forbidden("no")); got != apperr.CodeForbidden {
		t.Errorf("expected FORBIDDEN, got %s", got)
	}
	if got := apperr.CodeOf(errors.New("plain")); got != apperr.CodeStore {
		t.Errorf("expected STORE fallback, got %s", got)
	}
}
