package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/pkg/metrics"
)

const (
	usersView = "users"

	DefaultSearchDebounce = 300 * time.Millisecond
)

// ListOptions tunes a list controller.
type ListOptions struct {
	PageSize int
	Debounce time.Duration
}

func (o ListOptions) withDefaults() ListOptions {
	if o.PageSize <= 0 {
		o.PageSize = domain.DefaultPageSize
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultSearchDebounce
	}
	return o
}

// UserListState is a point-in-time snapshot of the user list view.
type UserListState struct {
	Query             domain.SearchQuery        `json:"query"`
	Page              *domain.Page[domain.User] `json:"page,omitempty"`
	Loading           bool                      `json:"loading"`
	Error             string                    `json:"error,omitempty"`
	Selected          []int64                   `json:"selected"`
	AllOnPageSelected bool                      `json:"allOnPageSelected"`
}

// UserListController drives the paged, filtered, selectable user list.
//
// Every fetch takes a sequence number; a response whose number is no longer
// the latest is dropped, so a slow earlier query never overwrites a newer
// one. The last applied page survives a failed fetch.
type UserListController struct {
	api    ports.UserAPI
	runner ports.TaskRunner
	log    zerolog.Logger
	search *Debouncer

	mu        sync.Mutex
	query     domain.SearchQuery
	page      *domain.Page[domain.User]
	loading   bool
	errMsg    string
	selection *SelectionSet
	seen      map[int64]struct{}
	seq       uint64
}

func NewUserListController(api ports.UserAPI, runner ports.TaskRunner, scheduler ports.Scheduler, opts ListOptions, log zerolog.Logger) *UserListController {
	opts = opts.withDefaults()
	c := &UserListController{
		api:       api,
		runner:    runner,
		log:       log.With().Str("view", usersView).Logger(),
		query:     domain.SearchQuery{Page: 0, PageSize: opts.PageSize},
		selection: NewSelectionSet(),
		seen:      make(map[int64]struct{}),
	}
	c.search = NewDebouncer(opts.Debounce, scheduler, "", c.enqueueSearch)
	return c
}

// State returns a snapshot of the view.
func (c *UserListController) State() UserListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return UserListState{
		Query:             c.query,
		Page:              c.page,
		Loading:           c.loading,
		Error:             c.errMsg,
		Selected:          c.selection.IDs(),
		AllOnPageSelected: c.selection.AllSelected(c.pageIDs()),
	}
}

// Reset drops the page, the selection, any pending search and every
// filter, keeping only the page size. A fetch still in flight is discarded
// when it returns.
func (c *UserListController) Reset() {
	c.search.Cancel()
	c.search.Reset("")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.query = domain.SearchQuery{Page: 0, PageSize: c.query.PageSize}
	c.page = nil
	c.loading = false
	c.errMsg = ""
	c.selection.Clear()
	clear(c.seen)
}

// Refresh re-fetches the current query.
func (c *UserListController) Refresh(ctx context.Context) error {
	return c.fetch(ctx)
}

// Search feeds one keystroke of the free-text search. Only the value left
// after a quiet period is committed, and only if it differs from the last
// committed term.
func (c *UserListController) Search(term string) {
	c.search.Input(term)
}

// SubmitSearch commits term at once, dropping any pending keystroke.
func (c *UserListController) SubmitSearch(ctx context.Context, term string) error {
	c.search.Cancel()
	c.search.Reset(term)
	return c.commitSearch(ctx, term)
}

func (c *UserListController) enqueueSearch(term string) {
	c.runner.Submit(usersView+":search", func(ctx context.Context) {
		if err := c.commitSearch(ctx, term); err != nil {
			c.log.Debug().Err(err).Str("term", term).Msg("debounced search fetch failed")
		}
	})
}

func (c *UserListController) commitSearch(ctx context.Context, term string) error {
	c.mu.Lock()
	if c.query.SearchTerm == term && c.page != nil {
		c.mu.Unlock()
		return nil
	}
	c.query.SearchTerm = term
	c.query.Page = 0
	c.mu.Unlock()
	return c.fetch(ctx)
}

// SetRoleFilter filters by role name; "" means any role.
func (c *UserListController) SetRoleFilter(ctx context.Context, role string) error {
	return c.changeQuery(ctx, func(q *domain.SearchQuery) bool {
		if q.RoleFilter == role {
			return false
		}
		q.RoleFilter = role
		return true
	})
}

// SetStatusFilter filters by enabled state.
func (c *UserListController) SetStatusFilter(ctx context.Context, status domain.StatusFilter) error {
	switch status {
	case domain.StatusAny, domain.StatusEnabled, domain.StatusDisabled:
	default:
		return domain.NewValidationError("status", fmt.Sprintf("unknown status filter %q", status))
	}
	return c.changeQuery(ctx, func(q *domain.SearchQuery) bool {
		if q.StatusFilter == status {
			return false
		}
		q.StatusFilter = status
		return true
	})
}

// SetIncludeDeleted shows or hides soft-deleted users. Switching it clears
// the selection, since the visible population changes.
func (c *UserListController) SetIncludeDeleted(ctx context.Context, include bool) error {
	c.mu.Lock()
	if c.query.IncludeDeleted == include {
		c.mu.Unlock()
		return nil
	}
	c.query.IncludeDeleted = include
	c.query.Page = 0
	// The old population stays unselectable until the new page lands.
	c.selection.Clear()
	clear(c.seen)
	c.mu.Unlock()
	return c.fetch(ctx)
}

// ToggleSort flips the direction when field is already the sort field,
// otherwise sorts by field ascending.
func (c *UserListController) ToggleSort(ctx context.Context, field string) error {
	if field == "" {
		return domain.NewValidationError("sort", "sort field is required")
	}
	return c.changeQuery(ctx, func(q *domain.SearchQuery) bool {
		if q.SortField == field {
			dir := q.SortDirection
			if dir == "" {
				dir = domain.SortAsc
			}
			q.SortDirection = dir.Flip()
		} else {
			q.SortField = field
			q.SortDirection = domain.SortAsc
		}
		return true
	})
}

// SetPageSize changes the page size and returns to the first page.
func (c *UserListController) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		return domain.NewValidationError("size", "page size must be positive")
	}
	return c.changeQuery(ctx, func(q *domain.SearchQuery) bool {
		if q.PageSize == size {
			return false
		}
		q.PageSize = size
		return true
	})
}

// changeQuery applies mutate and, when it reports a change, resets the page
// to 0 and fetches.
func (c *UserListController) changeQuery(ctx context.Context, mutate func(q *domain.SearchQuery) bool) error {
	c.mu.Lock()
	if !mutate(&c.query) {
		c.mu.Unlock()
		return nil
	}
	c.query.Page = 0
	c.mu.Unlock()
	return c.fetch(ctx)
}

// NextPage moves forward one page. Past the last page it does nothing and
// reports false.
func (c *UserListController) NextPage(ctx context.Context) (bool, error) {
	c.mu.Lock()
	next := c.query.Page + 1
	if !c.page.HasPage(next) {
		c.mu.Unlock()
		return false, nil
	}
	c.query.Page = next
	c.mu.Unlock()
	return true, c.fetch(ctx)
}

// PreviousPage moves back one page. On the first page it does nothing and
// reports false.
func (c *UserListController) PreviousPage(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.query.Page <= 0 {
		c.mu.Unlock()
		return false, nil
	}
	c.query.Page--
	c.mu.Unlock()
	return true, c.fetch(ctx)
}

// GoToPage jumps to page n, which must exist in the last fetched page.
func (c *UserListController) GoToPage(ctx context.Context, n int) error {
	c.mu.Lock()
	if !c.page.HasPage(n) {
		c.mu.Unlock()
		return fmt.Errorf("go to page %d: %w", n, domain.ErrPageOutOfRange)
	}
	if n == c.query.Page {
		c.mu.Unlock()
		return nil
	}
	c.query.Page = n
	c.mu.Unlock()
	return c.fetch(ctx)
}

// ToggleSelection flips id in the selection. Only IDs that appeared in a
// fetched page since the selection was last cleared are accepted.
func (c *UserListController) ToggleSelection(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[id]; !ok {
		return false
	}
	c.selection.Toggle(id)
	return true
}

// ToggleAllOnPage selects every user on the current page, or deselects
// exactly them when they are all selected already.
func (c *UserListController) ToggleAllOnPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.ToggleAll(c.pageIDs())
}

func (c *UserListController) AllOnPageSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.AllSelected(c.pageIDs())
}

// ClearSelection empties the selection.
func (c *UserListController) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearSelectionLocked()
}

// BulkDelete soft-deletes every selected user in one request.
func (c *UserListController) BulkDelete(ctx context.Context) (*domain.BulkResult, error) {
	return c.bulk(ctx, "bulk_delete", "Failed to delete selected users", func(ids []int64) (*domain.BulkResult, error) {
		return c.api.BulkDelete(ctx, ids)
	})
}

// BulkSetEnabled enables or disables every selected user in one request.
func (c *UserListController) BulkSetEnabled(ctx context.Context, enabled bool) (*domain.BulkResult, error) {
	action, fallback := "bulk_disable", "Failed to disable selected users"
	if enabled {
		action, fallback = "bulk_enable", "Failed to enable selected users"
	}
	return c.bulk(ctx, action, fallback, func(ids []int64) (*domain.BulkResult, error) {
		return c.api.BulkSetStatus(ctx, ids, enabled)
	})
}

// bulk runs a batch mutation over the selection. The batch is all or
// nothing: on failure the selection stays and nothing is refetched; on
// success the selection is cleared and the current page index refetched
// as is, even when that page is now empty.
func (c *UserListController) bulk(ctx context.Context, action, fallback string, call func(ids []int64) (*domain.BulkResult, error)) (*domain.BulkResult, error) {
	c.mu.Lock()
	ids := c.selection.IDs()
	c.mu.Unlock()
	if len(ids) == 0 {
		metrics.MutationsTotal.WithLabelValues(action, "skipped").Inc()
		return nil, fmt.Errorf("%s: %w", action, domain.ErrEmptySelection)
	}

	res, err := call(ids)
	if err != nil {
		metrics.MutationsTotal.WithLabelValues(action, "error").Inc()
		c.log.Warn().Err(err).Str("action", action).Int("count", len(ids)).Msg("bulk action failed")
		c.setError(domain.UserMessage(err, fallback))
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	metrics.MutationsTotal.WithLabelValues(action, "ok").Inc()
	c.log.Info().Str("action", action).Int("count", len(ids)).Int("affected", res.Affected).Msg("bulk action applied")
	c.ClearSelection()
	return res, c.fetch(ctx)
}

// DeleteUser soft-deletes a user of the current page once the caller has
// confirmed.
func (c *UserListController) DeleteUser(ctx context.Context, id int64, confirmed bool) error {
	return c.single(ctx, "delete", id, domain.StateSoftDeleted, "Failed to delete user", func(u *domain.User) error {
		if !confirmed {
			return domain.ErrCancelled
		}
		return nil
	}, func() error {
		return c.api.Delete(ctx, id)
	})
}

// RestoreUser brings a soft-deleted user back once the caller has confirmed.
func (c *UserListController) RestoreUser(ctx context.Context, id int64, confirmed bool) error {
	return c.single(ctx, "restore", id, domain.StateActive, "Failed to restore user", func(u *domain.User) error {
		if !confirmed {
			return domain.ErrCancelled
		}
		return nil
	}, func() error {
		_, err := c.api.Restore(ctx, id)
		return err
	})
}

// PurgeUser removes a soft-deleted user for good. typed must equal the
// user's username byte for byte.
func (c *UserListController) PurgeUser(ctx context.Context, id int64, typed string) error {
	return c.single(ctx, "purge", id, domain.StatePurged, "Failed to permanently delete user", func(u *domain.User) error {
		if typed != u.Username {
			return domain.ErrConfirmationMismatch
		}
		return nil
	}, func() error {
		return c.api.Purge(ctx, id)
	})
}

func (c *UserListController) single(ctx context.Context, action string, id int64, next domain.UserState, fallback string, gate func(u *domain.User) error, call func() error) error {
	u, ok := c.lookup(id)
	if !ok {
		metrics.MutationsTotal.WithLabelValues(action, "skipped").Inc()
		return fmt.Errorf("%s user %d: %w", action, id, domain.ErrNotFound)
	}
	if err := gate(u); err != nil {
		metrics.MutationsTotal.WithLabelValues(action, "skipped").Inc()
		return fmt.Errorf("%s user %d: %w", action, id, err)
	}
	if !u.State().CanTransitionTo(next) {
		metrics.MutationsTotal.WithLabelValues(action, "skipped").Inc()
		return fmt.Errorf("%s user %d from %s: %w", action, id, u.State(), domain.ErrInvalidTransition)
	}

	if err := call(); err != nil {
		metrics.MutationsTotal.WithLabelValues(action, "error").Inc()
		c.log.Warn().Err(err).Str("action", action).Int64("user_id", id).Msg("user action failed")
		c.setError(domain.UserMessage(err, fallback))
		return fmt.Errorf("%s user %d: %w", action, id, err)
	}

	metrics.MutationsTotal.WithLabelValues(action, "ok").Inc()
	c.log.Info().Str("action", action).Int64("user_id", id).Msg("user action applied")
	if next == domain.StatePurged {
		c.mu.Lock()
		delete(c.seen, id)
		if c.selection.Has(id) {
			c.selection.Toggle(id)
		}
		c.mu.Unlock()
	}
	return c.fetch(ctx)
}

// fetch issues the current query. Only the newest fetch may apply its
// result.
func (c *UserListController) fetch(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	q := c.query
	c.loading = true
	c.mu.Unlock()

	page, err := c.api.Search(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		metrics.ListStaleResponsesTotal.WithLabelValues(usersView).Inc()
		c.log.Debug().Uint64("seq", seq).Uint64("latest", c.seq).Msg("discarding superseded response")
		return nil
	}
	c.loading = false

	if err != nil {
		metrics.ListFetchesTotal.WithLabelValues(usersView, "error").Inc()
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.errMsg = domain.UserMessage(err, "Failed to load users")
		c.log.Warn().Err(err).Int("page", q.Page).Msg("user fetch failed")
		return fmt.Errorf("fetch users: %w", err)
	}

	metrics.ListFetchesTotal.WithLabelValues(usersView, "ok").Inc()
	c.page = page
	c.errMsg = ""
	for _, u := range page.Content {
		c.seen[u.ID] = struct{}{}
	}
	return nil
}

func (c *UserListController) lookup(id int64) (*domain.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == nil {
		return nil, false
	}
	for i := range c.page.Content {
		if c.page.Content[i].ID == id {
			u := c.page.Content[i]
			return &u, true
		}
	}
	return nil, false
}

func (c *UserListController) setError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = msg
}

func (c *UserListController) clearSelectionLocked() {
	c.selection.Clear()
	clear(c.seen)
	for _, id := range c.pageIDs() {
		c.seen[id] = struct{}{}
	}
}

func (c *UserListController) pageIDs() []int64 {
	if c.page == nil {
		return nil
	}
	ids := make([]int64, len(c.page.Content))
	for i, u := range c.page.Content {
		ids[i] = u.ID
	}
	return ids
}
