package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
)

// memTokenStore is an in-memory TokenStore/PreferenceStore.
type memTokenStore struct {
	mu       sync.Mutex
	creds    domain.Credentials
	prefs    domain.Preferences
	saveErr  error
	clearErr error
	saves    int
	clears   int
}

func (s *memTokenStore) Load(context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *memTokenStore) Save(_ context.Context, c domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.creds = c
	return nil
}

func (s *memTokenStore) SetAccessToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AccessToken = token
	return nil
}

func (s *memTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.creds = domain.Credentials{}
	return s.clearErr
}

func (s *memTokenStore) LoadPreferences(context.Context) (domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs, nil
}

func (s *memTokenStore) SavePreferences(_ context.Context, p domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p
	return nil
}

type stubAuthAPI struct {
	login    func(ports.LoginInput) (*domain.Session, error)
	register func(ports.RegisterInput) (*domain.Session, error)
	refresh  func(string) (*domain.Session, error)

	mu           sync.Mutex
	refreshCalls int
}

func (a *stubAuthAPI) Login(_ context.Context, in ports.LoginInput) (*domain.Session, error) {
	return a.login(in)
}

func (a *stubAuthAPI) Register(_ context.Context, in ports.RegisterInput) (*domain.Session, error) {
	return a.register(in)
}

func (a *stubAuthAPI) Refresh(_ context.Context, token string) (*domain.Session, error) {
	a.mu.Lock()
	a.refreshCalls++
	a.mu.Unlock()
	return a.refresh(token)
}

// stubUserAPI records calls; unset funcs fail the call with errUnexpected.
type stubUserAPI struct {
	search        func(domain.SearchQuery) (*domain.Page[domain.User], error)
	create        func(ports.CreateUserInput) (*domain.User, error)
	update        func(int64, ports.UpdateUserInput) (*domain.User, error)
	bulkDelete    func([]int64) (*domain.BulkResult, error)
	bulkSetStatus func([]int64, bool) (*domain.BulkResult, error)
	mutate        func(action string, id int64) error

	mu      sync.Mutex
	queries []domain.SearchQuery
	calls   []string
}

var errUnexpected = errors.New("unexpected call")

func (a *stubUserAPI) record(call string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
}

func (a *stubUserAPI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *stubUserAPI) searchCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queries)
}

func (a *stubUserAPI) lastQuery() domain.SearchQuery {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queries[len(a.queries)-1]
}

func (a *stubUserAPI) Search(_ context.Context, q domain.SearchQuery) (*domain.Page[domain.User], error) {
	a.mu.Lock()
	a.queries = append(a.queries, q)
	a.mu.Unlock()
	if a.search == nil {
		return nil, errUnexpected
	}
	return a.search(q)
}

func (a *stubUserAPI) Get(context.Context, int64) (*domain.User, error) {
	a.record("get")
	return nil, errUnexpected
}

func (a *stubUserAPI) Create(_ context.Context, in ports.CreateUserInput) (*domain.User, error) {
	a.record("create")
	if a.create == nil {
		return nil, errUnexpected
	}
	return a.create(in)
}

func (a *stubUserAPI) Update(_ context.Context, id int64, in ports.UpdateUserInput) (*domain.User, error) {
	a.record("update")
	if a.update == nil {
		return nil, errUnexpected
	}
	return a.update(id, in)
}

func (a *stubUserAPI) Delete(_ context.Context, id int64) error {
	a.record("delete")
	return a.mutation("delete", id)
}

func (a *stubUserAPI) Restore(_ context.Context, id int64) (*domain.User, error) {
	a.record("restore")
	return &domain.User{ID: id}, a.mutation("restore", id)
}

func (a *stubUserAPI) Purge(_ context.Context, id int64) error {
	a.record("purge")
	return a.mutation("purge", id)
}

func (a *stubUserAPI) mutation(action string, id int64) error {
	if a.mutate == nil {
		return nil
	}
	return a.mutate(action, id)
}

func (a *stubUserAPI) BulkDelete(_ context.Context, ids []int64) (*domain.BulkResult, error) {
	a.record("bulk_delete")
	if a.bulkDelete == nil {
		return nil, errUnexpected
	}
	return a.bulkDelete(ids)
}

func (a *stubUserAPI) BulkSetStatus(_ context.Context, ids []int64, enabled bool) (*domain.BulkResult, error) {
	a.record("bulk_status")
	if a.bulkSetStatus == nil {
		return nil, errUnexpected
	}
	return a.bulkSetStatus(ids, enabled)
}

func (a *stubUserAPI) ListRoles(context.Context) ([]domain.Role, error) {
	a.record("roles")
	return nil, nil
}

// fakeScheduler fires timers only when the test calls fire.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) ports.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// fireAll runs every timer that is still pending.
func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	pending := make([]*fakeTimer, 0, len(s.timers))
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			pending = append(pending, t)
		}
	}
	s.mu.Unlock()
	for _, t := range pending {
		t.f()
	}
}

// syncRunner runs tasks inline.
type syncRunner struct{}

func (syncRunner) Submit(_ string, task func(ctx context.Context)) {
	task(context.Background())
}

func usersPage(number, totalPages int, ids ...int64) *domain.Page[domain.User] {
	content := make([]domain.User, len(ids))
	for i, id := range ids {
		content[i] = domain.User{ID: id, Username: "user" + string(rune('a'+i)), Enabled: true}
	}
	return &domain.Page[domain.User]{
		Content:       content,
		TotalElements: int64(len(ids) * totalPages),
		TotalPages:    totalPages,
		Size:          domain.DefaultPageSize,
		Number:        number,
	}
}

// ctxAuthAPI hands the caller's context to refresh.
type ctxAuthAPI struct {
	refresh func(ctx context.Context) (*domain.Session, error)
}

func (a *ctxAuthAPI) Login(context.Context, ports.LoginInput) (*domain.Session, error) {
	return nil, errors.New("unexpected login")
}

func (a *ctxAuthAPI) Register(context.Context, ports.RegisterInput) (*domain.Session, error) {
	return nil, errors.New("unexpected register")
}

func (a *ctxAuthAPI) Refresh(ctx context.Context, _ string) (*domain.Session, error) {
	return a.refresh(ctx)
}
