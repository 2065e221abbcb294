package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/arjun/nft-marketplace/backend/internal/httpx"
	"github.com/arjun/nft-marketplace/backend/internal/middleware"
	"github.com/arjun/nft-marketplace/backend/internal/models"
)

// Handler exposes the search orchestrator over HTTP. One orchestrator is
// kept per authenticated user so filter state and debounce survive across
// requests.
type Handler struct {
	store     ListingStore
	recent    RecentStore
	pageSize  int
	debounce  time.Duration
	maxRecent int64
	log       *slog.Logger

	mu     sync.Mutex
	byUser map[string]*Orchestrator
}

func NewHandler(store ListingStore, recent RecentStore, pageSize int, debounce time.Duration, maxRecent int64, log *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		recent:    recent,
		pageSize:  pageSize,
		debounce:  debounce,
		maxRecent: maxRecent,
		log:       log,
		byUser:    make(map[string]*Orchestrator),
	}
}

func (h *Handler) orchestrator(userID string) *Orchestrator {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.byUser[userID]
	if !ok {
		o = New(h.store, h.recent, userID, h.pageSize, h.debounce, h.maxRecent, h.log)
		h.byUser[userID] = o
	}
	return o
}

type searchRequest struct {
	Filters Filters `json:"filters"`
	Page    int     `json:"page"`
}

// Run replaces the filters and page wholesale and executes immediately.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	o := h.orchestrator(sess.UserID)
	o.ReplaceFilters(req.Filters, req.Page)
	httpx.WriteJSON(w, http.StatusOK, o.Search(r.Context()))
}

type filterPatchRequest struct {
	Query      *string               `json:"query"`
	Category   *string               `json:"category"`
	PriceMin   *string               `json:"price_min"`
	PriceMax   *string               `json:"price_max"`
	SortBy     *string               `json:"sort_by"`
	SortOrder  *string               `json:"sort_order"`
	Creator    *string               `json:"creator"`
	IsAuction  *bool                 `json:"is_auction"`
	AnyAuction bool                  `json:"any_auction"` // true clears the auction filter
	Attributes *[]models.TraitFilter `json:"attributes"`
}

// PatchFilters merges a partial filter edit and schedules a debounced
// re-search; rapid successive patches collapse into one execution.
func (h *Handler) PatchFilters(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	var req filterPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	patch := FilterPatch{
		Query:      req.Query,
		Category:   req.Category,
		PriceMin:   req.PriceMin,
		PriceMax:   req.PriceMax,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
		Creator:    req.Creator,
		Attributes: req.Attributes,
	}
	if req.AnyAuction {
		var cleared *bool
		patch.IsAuction = &cleared
	} else if req.IsAuction != nil {
		patch.IsAuction = &req.IsAuction
	}

	o := h.orchestrator(sess.UserID)
	o.UpdateFilters(patch)
	httpx.WriteJSON(w, http.StatusAccepted, o.State())
}

// Clear resets filters to defaults.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	o := h.orchestrator(sess.UserID)
	o.ClearFilters()
	httpx.WriteJSON(w, http.StatusAccepted, o.State())
}

type pageRequest struct {
	Page int `json:"page"`
}

// Page moves pagination; the fetch itself runs through the debounce watcher.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	o := h.orchestrator(sess.UserID)
	o.SetPage(req.Page)
	httpx.WriteJSON(w, http.StatusAccepted, o.State())
}

// State returns the current public search state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, h.orchestrator(sess.UserID).State())
}

// Stream pushes state snapshots to the client as server-sent events until
// the connection closes.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}
	sess, _ := middleware.SessionFromContext(r.Context())
	o := h.orchestrator(sess.UserID)
	ch := o.Subscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case st, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(st)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// Suggestions returns name completions for queries of 2+ characters.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	q := r.URL.Query().Get("q")
	names := h.orchestrator(sess.UserID).Suggestions(r.Context(), q)
	if names == nil {
		names = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{"suggestions": names})
}

// Recent returns the user's persisted recent searches, newest first.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	queries := h.orchestrator(sess.UserID).Recent(r.Context())
	if queries == nil {
		queries = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{"recent": queries})
}
