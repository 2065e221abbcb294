// Package search implements the marketplace search orchestrator: filter
// state, debounced query execution with last-write-wins ordering, pagination,
// recent-search history, and the degraded fallback page used when the listing
// store is unreachable.
package search

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/arjun/nft-marketplace/backend/internal/models"
)

// ListingStore is the filterable, sortable, paginated listing query surface.
type ListingStore interface {
	Search(ctx context.Context, q models.ListingQuery) ([]models.NFT, int64, error)
	Suggest(ctx context.Context, prefix string, limit int64) ([]string, error)
}

// RecentStore persists the capped recent-search history.
type RecentStore interface {
	PushRecentSearch(ctx context.Context, userID, query string, max int64) error
	RecentSearches(ctx context.Context, userID string) ([]string, error)
}

// Status is the orchestrator's lifecycle phase.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusPopulated Status = "populated"
)

// Filters captures the current query intent. Price bounds are numeric
// strings as entered; empty means unbounded.
type Filters struct {
	Query      string               `json:"query"`
	Category   string               `json:"category"`
	PriceMin   string               `json:"price_min"`
	PriceMax   string               `json:"price_max"`
	SortBy     string               `json:"sort_by"`
	SortOrder  string               `json:"sort_order"` // asc|desc
	Creator    string               `json:"creator"`
	IsAuction  *bool                `json:"is_auction"`
	Attributes []models.TraitFilter `json:"attributes"`
}

// FilterPatch is a partial filter edit; nil fields are left alone.
type FilterPatch struct {
	Query      *string
	Category   *string
	PriceMin   *string
	PriceMax   *string
	SortBy     *string
	SortOrder  *string
	Creator    *string
	IsAuction  **bool
	Attributes *[]models.TraitFilter
}

// State is one public snapshot of the orchestrator. Results are replaced
// wholesale on every applied search; Degraded marks a fallback page so
// placeholder rows are never mistaken for inventory.
type State struct {
	Status      Status       `json:"status"`
	Filters     Filters      `json:"filters"`
	Results     []models.NFT `json:"results"`
	TotalCount  int64        `json:"total_count"`
	CurrentPage int          `json:"current_page"`
	TotalPages  int          `json:"total_pages"`
	Degraded    bool         `json:"degraded"`
}

func defaultFilters() Filters {
	return Filters{SortBy: models.SortByCreatedAt, SortOrder: "desc"}
}

// Orchestrator owns the search state for one client. Filter and page changes
// schedule a debounced execution; results are applied last-write-wins by
// issuance order, tracked with a monotonic request token.
type Orchestrator struct {
	store     ListingStore
	recent    RecentStore
	ownerID   string
	pageSize  int
	debounce  time.Duration
	maxRecent int64
	log       *slog.Logger

	mu           sync.Mutex
	state        State
	timer        *time.Timer
	nextToken    uint64
	appliedToken uint64
	subs         []chan State
	closed       bool
}

// New constructs an orchestrator for one client. ownerID scopes the
// recent-search history; empty disables persistence of history.
func New(store ListingStore, recent RecentStore, ownerID string, pageSize int, debounce time.Duration, maxRecent int64, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		recent:    recent,
		ownerID:   ownerID,
		pageSize:  pageSize,
		debounce:  debounce,
		maxRecent: maxRecent,
		log:       log,
		state: State{
			Status:      StatusIdle,
			Filters:     defaultFilters(),
			CurrentPage: 1,
			TotalPages:  1,
		},
	}
}

// State returns a snapshot of the current public state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Subscribe registers an observer. Each applied state transition is sent on
// the returned channel; slow consumers miss intermediate snapshots rather
// than blocking the orchestrator.
func (o *Orchestrator) Subscribe() <-chan State {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch := make(chan State, 4)
	o.subs = append(o.subs, ch)
	return ch
}

// UpdateFilters merges the patch into the current filters, resets the page
// to 1, and schedules a debounced search.
func (o *Orchestrator) UpdateFilters(patch FilterPatch) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f := &o.state.Filters
	if patch.Query != nil {
		f.Query = *patch.Query
	}
	if patch.Category != nil {
		f.Category = *patch.Category
	}
	if patch.PriceMin != nil {
		f.PriceMin = *patch.PriceMin
	}
	if patch.PriceMax != nil {
		f.PriceMax = *patch.PriceMax
	}
	if patch.SortBy != nil {
		f.SortBy = *patch.SortBy
	}
	if patch.SortOrder != nil {
		f.SortOrder = *patch.SortOrder
	}
	if patch.Creator != nil {
		f.Creator = *patch.Creator
	}
	if patch.IsAuction != nil {
		f.IsAuction = *patch.IsAuction
	}
	if patch.Attributes != nil {
		f.Attributes = *patch.Attributes
	}
	o.state.CurrentPage = 1
	o.scheduleLocked()
}

// ReplaceFilters swaps the filters and page wholesale without scheduling;
// used by callers that follow up with an immediate Search.
func (o *Orchestrator) ReplaceFilters(f Filters, page int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f.SortBy == "" {
		f.SortBy = models.SortByCreatedAt
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
	if page < 1 {
		page = 1
	}
	o.state.Filters = f
	o.state.CurrentPage = page
}

// ClearFilters resets filters to defaults and the page to 1, then schedules
// a debounced search.
func (o *Orchestrator) ClearFilters() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Filters = defaultFilters()
	o.state.CurrentPage = 1
	o.scheduleLocked()
}

// SetPage moves to page n and schedules a debounced search.
func (o *Orchestrator) SetPage(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n < 1 {
		n = 1
	}
	o.state.CurrentPage = n
	o.scheduleLocked()
}

// Search executes immediately with the current filters and page, cancelling
// any pending debounce. Blocks until the result is applied or superseded.
func (o *Orchestrator) Search(ctx context.Context) State {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	token := o.issueLocked()
	filters := o.state.Filters
	page := o.state.CurrentPage
	o.mu.Unlock()

	o.execute(ctx, token, filters, page)
	return o.State()
}

// Suggestions returns up to 5 listing names matching the query prefix.
// Queries under 2 characters and store failures both yield an empty list.
func (o *Orchestrator) Suggestions(ctx context.Context, query string) []string {
	if len([]rune(query)) < 2 {
		return nil
	}
	names, err := o.store.Suggest(ctx, query, 5)
	if err != nil {
		o.log.Warn("suggestion query failed", "error", err)
		return nil
	}
	return names
}

// Recent returns the persisted recent-search history, newest first.
func (o *Orchestrator) Recent(ctx context.Context) []string {
	if o.ownerID == "" {
		return nil
	}
	queries, err := o.recent.RecentSearches(ctx, o.ownerID)
	if err != nil {
		o.log.Warn("recent-search read failed", "error", err)
		return nil
	}
	return queries
}

// Close cancels any pending debounce and closes subscriber channels.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	for _, ch := range o.subs {
		close(ch)
	}
	o.subs = nil
}

// scheduleLocked restarts the debounce timer; the search runs after the
// quiet period with whatever filters are current at that point. Caller holds
// the lock.
func (o *Orchestrator) scheduleLocked() {
	if o.closed {
		return
	}
	o.state.Status = StatusSearching
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.debounce, func() {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		token := o.issueLocked()
		filters := o.state.Filters
		page := o.state.CurrentPage
		o.mu.Unlock()

		o.execute(context.Background(), token, filters, page)
	})
	o.notifyLocked()
}

// issueLocked mints the next request token. Caller holds the lock.
func (o *Orchestrator) issueLocked() uint64 {
	o.nextToken++
	return o.nextToken
}

// execute runs one search and applies the outcome unless a later-issued
// request has already been applied. Store failures degrade to a deterministic
// placeholder page instead of surfacing an error.
func (o *Orchestrator) execute(ctx context.Context, token uint64, filters Filters, page int) {
	query := buildQuery(filters, page, o.pageSize)

	items, total, err := o.store.Search(ctx, query)
	degraded := false
	if err != nil {
		o.log.Warn("listing store unavailable, serving fallback page", "error", err)
		items, total = fallbackPage(filters, page, o.pageSize)
		degraded = true
	}

	o.mu.Lock()
	if token <= o.appliedToken || o.closed {
		// Superseded by a later-issued request; discard.
		o.mu.Unlock()
		return
	}
	o.appliedToken = token

	totalPages := int((total + int64(o.pageSize) - 1) / int64(o.pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	current := page
	if len(items) > 0 {
		if current > totalPages {
			current = totalPages
		}
		if current < 1 {
			current = 1
		}
	}

	o.state.Status = StatusPopulated
	o.state.Results = items
	o.state.TotalCount = total
	o.state.CurrentPage = current
	o.state.TotalPages = totalPages
	o.state.Degraded = degraded
	o.notifyLocked()
	o.mu.Unlock()

	if filters.Query != "" && o.ownerID != "" {
		if err := o.recent.PushRecentSearch(ctx, o.ownerID, filters.Query, o.maxRecent); err != nil {
			o.log.Warn("recent-search write failed", "error", err)
		}
	}
}

// snapshotLocked copies state so callers cannot alias internal slices.
func (o *Orchestrator) snapshotLocked() State {
	st := o.state
	st.Results = append([]models.NFT(nil), o.state.Results...)
	st.Filters.Attributes = append([]models.TraitFilter(nil), o.state.Filters.Attributes...)
	return st
}

func (o *Orchestrator) notifyLocked() {
	st := o.snapshotLocked()
	for _, ch := range o.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

func buildQuery(f Filters, page, pageSize int) models.ListingQuery {
	q := models.ListingQuery{
		Text:       f.Query,
		Category:   f.Category,
		Creator:    f.Creator,
		IsAuction:  f.IsAuction,
		Attributes: f.Attributes,
		SortBy:     sortKey(f.SortBy),
		SortDesc:   f.SortOrder != "asc",
		Offset:     int64(page-1) * int64(pageSize),
		Limit:      int64(pageSize),
	}
	if v, err := strconv.ParseFloat(f.PriceMin, 64); err == nil {
		q.PriceMin = &v
	}
	if v, err := strconv.ParseFloat(f.PriceMax, 64); err == nil {
		q.PriceMax = &v
	}
	return q
}

func sortKey(s string) string {
	switch s {
	case models.SortByPrice, models.SortByName, models.SortByLikes, models.SortByViews:
		return s
	default:
		return models.SortByCreatedAt
	}
}
