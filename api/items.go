package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memestall/memestall/catalog"
)

type itemResponse struct {
	catalog.Item
	MediaURL string `json:"mediaUrl"`
}

type itemDetailResponse struct {
	itemResponse
	Liked     *bool `json:"liked,omitempty"`
	Purchased *bool `json:"purchased,omitempty"`
}

func (s *Server) itemResponse(item catalog.Item) itemResponse {
	return itemResponse{Item: item, MediaURL: s.blobs.PublicURL(item.MediaRef)}
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, s.itemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := itemDetailResponse{itemResponse: s.itemResponse(*item)}
	if ident, ok := identityFrom(r.Context()); ok {
		liked, err := s.ledger.HasLiked(r.Context(), ident.Subject, item.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		purchased, err := s.ledger.HasPurchased(r.Context(), ident.Subject, item.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Liked = &liked
		resp.Purchased = &purchased
	}
	writeJSON(w, http.StatusOK, resp)
}

type createItemRequest struct {
	Title string   `json:"title" validate:"required,max=200"`
	Key   string   `json:"key" validate:"required"`
	Tags  []string `json:"tags" validate:"omitempty,dive,required,max=50"`
	Price int64    `json:"price" validate:"gte=0"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	var req createItemRequest
	if err := s.decodeValid(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.catalog.Create(r.Context(), catalog.Item{
		Title:      req.Title,
		MediaRef:   req.Key,
		Tags:       req.Tags,
		Price:      req.Price,
		UploadedBy: ident.Subject,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.itemResponse(*item))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	err := s.catalog.Delete(r.Context(), id, ident.Subject, s.cfg.IsAdmin(ident.Subject))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := s.catalog.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.ledger.Like(r.Context(), ident.Subject, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": true})
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := s.catalog.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.ledger.Unlike(r.Context(), ident.Subject, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": false})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	item, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.RecordDownload(r.Context(), ident.Subject, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": s.blobs.PublicURL(item.MediaRef)})
}

func (s *Server) handleDownloadCount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.catalog.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	count, err := s.ledger.CountDownloadsForItem(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"downloads": count})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := s.catalog.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	first, err := s.ledger.RecordPurchase(r.Context(), ident.Subject, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if first {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"purchased": true})
}

func (s *Server) handleLikedItems(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	items, err := s.ledger.ListLikedItems(r.Context(), ident.Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, s.itemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

type downloadResponse struct {
	Item         itemResponse `json:"item"`
	DownloadedAt string       `json:"downloadedAt"`
}

func (s *Server) handleUserDownloads(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r.Context())

	downloads, err := s.ledger.ListDownloadsForUser(r.Context(), ident.Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]downloadResponse, 0, len(downloads))
	for _, d := range downloads {
		out = append(out, downloadResponse{
			Item:         s.itemResponse(d.Item),
			DownloadedAt: d.DownloadedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
