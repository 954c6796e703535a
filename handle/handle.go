// Package handle owns global uniqueness of user-chosen handles.
//
// A handle is held by whoever wins the conditional put on its row. That
// single-key write is the only uniqueness mechanism in the system; there is
// no scan, no lock, and no transaction.
package handle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/memestall/memestall/apperr"
	"github.com/memestall/memestall/store"
)

// allocateAttempts bounds the suffix search in AllocateUnique.
const allocateAttempts = 5

// Reservation maps a handle to the user holding it.
type Reservation struct {
	Handle    string `dynamodbav:"handle" json:"handle"`
	UserID    string `dynamodbav:"user_id" json:"userId"`
	CreatedAt string `dynamodbav:"created_at" json:"createdAt"`
}

// Registry provides handle reservation over the store.
type Registry struct {
	handles *store.Table[Reservation]

	now    func() time.Time
	suffix func() string
}

// New creates a Registry.
func New(handles *store.Table[Reservation]) *Registry {
	return &Registry{
		handles: handles,
		now:     time.Now,
		suffix:  func() string { return fmt.Sprintf("%04d", rand.Intn(10000)) },
	}
}

// Reserve claims the handle for the user. Returns false if any user
// (including this one under a different spelling) already holds it.
func (r *Registry) Reserve(ctx context.Context, userID, handle string) (bool, error) {
	ok, err := r.handles.PutIfAbsent(ctx, Reservation{
		Handle:    handle,
		UserID:    userID,
		CreatedAt: r.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, apperr.Store("reserve handle", err)
	}
	return ok, nil
}

// Release frees the handle unconditionally.
func (r *Registry) Release(ctx context.Context, handle string) error {
	if err := r.handles.Delete(ctx, store.Key{Hash: handle}); err != nil {
		return apperr.Store("release handle", err)
	}
	return nil
}

// Lookup returns the reservation for a handle, or NotFound.
func (r *Registry) Lookup(ctx context.Context, handle string) (*Reservation, error) {
	res, err := r.handles.Get(ctx, store.Key{Hash: handle})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("handle not reserved")
		}
		return nil, apperr.Store("lookup handle", err)
	}
	return res, nil
}

// AllocateUnique reserves baseHandle, or baseHandle plus a random 4-digit
// suffix when taken. Gives up with AllocationExhausted after five
// candidates in a row collide.
func (r *Registry) AllocateUnique(ctx context.Context, userID, baseHandle string) (string, error) {
	candidate := baseHandle
	for i := 0; i < allocateAttempts; i++ {
		ok, err := r.Reserve(ctx, userID, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
		candidate = baseHandle + r.suffix()
	}
	return "", apperr.AllocationExhausted("could not allocate a unique handle for " + baseHandle)
}
