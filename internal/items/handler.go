// Package items implements the thin marketplace CRUD surface over the
// listing and media stores.
package items

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arjun/nft-marketplace/backend/internal/httpx"
	"github.com/arjun/nft-marketplace/backend/internal/middleware"
	"github.com/arjun/nft-marketplace/backend/internal/models"
	"github.com/arjun/nft-marketplace/backend/internal/store"
	"github.com/arjun/nft-marketplace/backend/internal/validate"
)

// ListingStore defines the listing persistence the handler needs.
type ListingStore interface {
	Insert(ctx context.Context, nft *models.NFT) (string, error)
	SetMediaKey(ctx context.Context, id, key string) error
	GetByID(ctx context.Context, id string) (*models.NFT, error)
	Delete(ctx context.Context, id string) error
	ListByCreator(ctx context.Context, creatorID string) ([]models.NFT, error)
}

// FileStore defines the media storage the handler needs.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds listing HTTP handlers.
type Handler struct {
	listings ListingStore
	media    FileStore
	log      *slog.Logger
}

func NewHandler(listings ListingStore, media FileStore, log *slog.Logger) *Handler {
	return &Handler{listings: listings, media: media, log: log}
}

// Create accepts a multipart request with a "metadata" JSON part and a
// "media" file part, validates both, uploads the media, and inserts the
// listing.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	if err := r.ParseMultipartForm(validate.MaxFileSize + 1<<20); err != nil {
		http.Error(w, `{"error":"invalid multipart body"}`, http.StatusBadRequest)
		return
	}

	var req models.CreateNFTRequest
	if err := json.Unmarshal([]byte(r.FormValue("metadata")), &req); err != nil {
		http.Error(w, `{"error":"metadata must be a JSON object"}`, http.StatusBadRequest)
		return
	}

	var fields []string
	if req.Name == "" {
		fields = append(fields, "name is required")
	}
	if res := validate.EthPrice(req.PriceEth); !res.Valid {
		fields = append(fields, res.Errors...)
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		fields = append(fields, "media file is required")
	}
	var data []byte
	contentType := ""
	if err == nil {
		defer file.Close()
		contentType = header.Header.Get("Content-Type")
		if res := validate.NFTFile(header.Size, contentType); !res.Valid {
			fields = append(fields, res.Errors...)
		} else if data, err = io.ReadAll(file); err != nil {
			http.Error(w, `{"error":"failed to read media"}`, http.StatusBadRequest)
			return
		}
	}
	if len(fields) > 0 {
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "validation failed", "fields": fields,
		})
		return
	}

	price, _ := strconv.ParseFloat(req.PriceEth, 64)
	nft := &models.NFT{
		Name:        validate.Sanitize(req.Name),
		Description: validate.Sanitize(req.Description),
		PriceEth:    price,
		Category:    validate.Sanitize(req.Category),
		CreatorID:   sess.UserID,
		OwnerID:     sess.UserID,
		IsAuction:   req.IsAuction,
		Attributes:  req.Attributes,
	}

	id, err := h.listings.Insert(r.Context(), nft)
	if err != nil {
		h.log.Error("listing insert failed", "error", err)
		http.Error(w, `{"error":"failed to save listing"}`, http.StatusInternalServerError)
		return
	}

	mediaKey := fmt.Sprintf("%s/%s", sess.UserID, id)
	if err := h.media.Upload(r.Context(), mediaKey, data, contentType); err != nil {
		h.log.Warn("media upload failed", "listing_id", id, "error", err)
		mediaKey = ""
	}
	if mediaKey != "" {
		if err := h.listings.SetMediaKey(r.Context(), id, mediaKey); err != nil {
			h.log.Warn("media key update failed", "listing_id", id, "error", err)
		}
	}
	nft.MediaKey = mediaKey

	saved, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		saved = nft
	}
	saved.MediaKey = mediaKey
	httpx.WriteJSON(w, http.StatusCreated, saved)
}

// Get returns a single listing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	nft, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nft)
}

// Mine lists the current user's listings, newest first.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	nfts, err := h.listings.ListByCreator(r.Context(), sess.UserID)
	if err != nil {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if nfts == nil {
		nfts = []models.NFT{}
	}
	httpx.WriteJSON(w, http.StatusOK, nfts)
}

// Delete removes a listing and its media. Only the creator may delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	id := chi.URLParam(r, "id")

	nft, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	if nft.CreatorID != sess.UserID {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	if nft.MediaKey != "" {
		if err := h.media.Remove(r.Context(), nft.MediaKey); err != nil {
			h.log.Warn("media cleanup failed", "listing_id", id, "error", err)
		}
	}
	if err := h.listings.Delete(r.Context(), id); err != nil {
		http.Error(w, `{"error":"delete failed"}`, http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Media streams the listing's stored media.
func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	nft, err := h.listings.GetByID(r.Context(), id)
	if err != nil || nft.MediaKey == "" {
		http.Error(w, `{"error":"media not available"}`, http.StatusNotFound)
		return
	}

	data, ct, err := h.media.Download(r.Context(), nft.MediaKey)
	if err != nil {
		http.Error(w, `{"error":"download failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Write(data)
}

var _ ListingStore = (*store.MongoStore)(nil)
var _ FileStore = (*store.MinioStore)(nil)
