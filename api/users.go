package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memestall/memestall/profile"
)

type profileResponse struct {
	UserID    string `json:"userId"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type publicProfileResponse struct {
	UserID    string `json:"userId"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func (s *Server) profileResponse(p profile.Profile) profileResponse {
	resp := profileResponse{
		UserID:    p.UserID,
		Handle:    p.Handle,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.AvatarRef != "" {
		resp.AvatarURL = s.blobs.PublicURL(p.AvatarRef)
	}
	return resp
}

func (s *Server) handleMyProfile(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	prof, err := s.profiles.GetOrCreate(r.Context(), ident.Subject, ident.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.profileResponse(*prof))
}

type updateProfileRequest struct {
	Handle    *string `json:"handle" validate:"omitempty,min=1,max=32"`
	AvatarKey *string `json:"avatarKey" validate:"omitempty,min=1"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	var req updateProfileRequest
	if err := s.decodeValid(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	prof, err := s.profiles.Apply(r.Context(), ident.Subject, ident.Email, profile.Update{
		Handle:    req.Handle,
		AvatarRef: req.AvatarKey,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.profileResponse(*prof))
}

func (s *Server) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := publicProfileResponse{
		UserID: prof.UserID,
		Handle: prof.Handle,
	}
	if prof.AvatarRef != "" {
		resp.AvatarURL = s.blobs.PublicURL(prof.AvatarRef)
	}
	writeJSON(w, http.StatusOK, resp)
}
