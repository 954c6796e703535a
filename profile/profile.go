// Package profile owns per-user profile records.
//
// Every handle stored in a profile is backed by a reservation in the handle
// registry naming the same user. Handle changes follow a strict ordering:
// reserve the new handle, persist the profile, release the old handle. A
// failed reservation therefore never costs the user their current handle.
// A crash between persisting and releasing leaves the old reservation
// orphaned; that gap is accepted, not silently healed.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/memestall/memestall/apperr"
	"github.com/memestall/memestall/store"
)

// Profile is a per-user profile record.
type Profile struct {
	UserID    string `dynamodbav:"user_id" json:"userId"`
	Handle    string `dynamodbav:"handle" json:"handle"`
	AvatarRef string `dynamodbav:"avatar_ref,omitempty" json:"avatarRef,omitempty"`
	CreatedAt string `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt string `dynamodbav:"updated_at" json:"updatedAt"`
}

// Update carries the optional profile fields a user may change.
type Update struct {
	Handle    *string
	AvatarRef *string
}

// HandleRegistry is the slice of the handle registry the profile store needs.
type HandleRegistry interface {
	Reserve(ctx context.Context, userID, handle string) (bool, error)
	Release(ctx context.Context, handle string) error
	AllocateUnique(ctx context.Context, userID, baseHandle string) (string, error)
}

// Store provides profile operations.
type Store struct {
	profiles *store.Table[Profile]
	handles  HandleRegistry
	logger   *slog.Logger

	now func() time.Time
}

// New creates a profile Store.
func New(profiles *store.Table[Profile], handles HandleRegistry, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		profiles: profiles,
		handles:  handles,
		logger:   logger,
		now:      time.Now,
	}
}

// baseHandle derives the initial handle candidate: the email local part, or
// a fallback from the user id when no usable email is available.
func baseHandle(userID, emailHint string) string {
	if at := strings.IndexByte(emailHint, '@'); at > 0 {
		return emailHint[:at]
	}
	if len(userID) > 8 {
		return "user-" + userID[:8]
	}
	return "user-" + userID
}

// GetOrCreate returns the stored profile, materializing it with a freshly
// allocated unique handle on first access. Losing the materialization race
// releases the surplus reservation and returns the winner's profile.
func (s *Store) GetOrCreate(ctx context.Context, userID, emailHint string) (*Profile, error) {
	prof, err := s.profiles.Get(ctx, store.Key{Hash: userID})
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Store("get profile", err)
	}

	h, err := s.handles.AllocateUnique(ctx, userID, baseHandle(userID, emailHint))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	fresh := Profile{
		UserID:    userID,
		Handle:    h,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ok, err := s.profiles.PutIfAbsent(ctx, fresh)
	if err != nil {
		return nil, apperr.Store("create profile", err)
	}
	if !ok {
		// A concurrent first request won. Give back our reservation and
		// hand out the stored profile.
		if relErr := s.handles.Release(ctx, h); relErr != nil {
			s.logger.Warn("failed to release surplus handle", "handle", h, "error", relErr)
		}
		prof, err := s.profiles.Get(ctx, store.Key{Hash: userID})
		if err != nil {
			return nil, apperr.Store("get profile", err)
		}
		return prof, nil
	}
	return &fresh, nil
}

// Apply updates the profile. A handle change reserves the new handle before
// the profile write and releases the old one only after the write succeeds.
func (s *Store) Apply(ctx context.Context, userID, emailHint string, upd Update) (*Profile, error) {
	prof, err := s.GetOrCreate(ctx, userID, emailHint)
	if err != nil {
		return nil, err
	}

	previous := prof.Handle
	if upd.Handle != nil {
		desired := strings.TrimSpace(*upd.Handle)
		if desired == "" {
			return nil, apperr.Validation("handle must not be empty")
		}
		if desired != previous {
			ok, err := s.handles.Reserve(ctx, userID, desired)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, apperr.Conflict("handle already taken")
			}
			prof.Handle = desired
		}
	}
	if upd.AvatarRef != nil {
		prof.AvatarRef = *upd.AvatarRef
	}
	prof.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.profiles.Put(ctx, *prof); err != nil {
		return nil, apperr.Store("update profile", err)
	}

	// Release strictly after the persisted profile points at the new
	// handle. A failure here orphans the old reservation; log and move on.
	if prof.Handle != previous && previous != "" {
		if err := s.handles.Release(ctx, previous); err != nil {
			s.logger.Warn("failed to release previous handle",
				"userID", userID, "handle", previous, "error", err)
		}
	}
	return prof, nil
}

// Get returns the profile for a user id, or NotFound.
func (s *Store) Get(ctx context.Context, userID string) (*Profile, error) {
	prof, err := s.profiles.Get(ctx, store.Key{Hash: userID})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Store("get profile", err)
	}
	return prof, nil
}
