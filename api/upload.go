package api

import (
	"net/http"

	"github.com/google/uuid"
)

type uploadURLRequest struct {
	ContentType string `json:"contentType" validate:"required"`
}

type uploadURLResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
}

// handleUploadURL issues a short-lived presigned PUT URL. Keys are
// namespaced by the uploading subject so users cannot overwrite each
// other's objects.
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	var req uploadURLRequest
	if err := s.decodeValid(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	key := ident.Subject + "/" + uuid.NewString()
	url, err := s.blobs.PresignUpload(r.Context(), key, req.ContentType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadURLResponse{Key: key, UploadURL: url})
}
