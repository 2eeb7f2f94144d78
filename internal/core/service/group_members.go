package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/pkg/metrics"
	"github.com/adminkit/admin-console/internal/pkg/validation"
)

// directorySize is how many users the membership picker loads at once.
const directorySize = 1000

// GroupAdmin is the group management surface: CRUD plus per-group
// membership controllers.
type GroupAdmin struct {
	groups   ports.GroupAPI
	users    ports.UserAPI
	validate *validation.Validator
	log      zerolog.Logger
}

func NewGroupAdmin(groups ports.GroupAPI, users ports.UserAPI, log zerolog.Logger) *GroupAdmin {
	return &GroupAdmin{
		groups:   groups,
		users:    users,
		validate: validation.New(),
		log:      log.With().Str("view", "groups").Logger(),
	}
}

func (a *GroupAdmin) List(ctx context.Context) ([]domain.Group, error) {
	groups, err := a.groups.ListGroups(ctx)
	if err != nil {
		metrics.ListFetchesTotal.WithLabelValues("groups", "error").Inc()
		return nil, fmt.Errorf("list groups: %w", err)
	}
	metrics.ListFetchesTotal.WithLabelValues("groups", "ok").Inc()
	return groups, nil
}

func (a *GroupAdmin) Create(ctx context.Context, in ports.GroupInput) (*domain.Group, error) {
	if err := a.validate.Validate(&in); err != nil {
		return nil, err
	}
	g, err := a.groups.CreateGroup(ctx, in)
	metrics.MutationsTotal.WithLabelValues("group_create", okOrError(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	a.log.Info().Int64("group_id", g.ID).Str("name", g.Name).Msg("group created")
	return g, nil
}

func (a *GroupAdmin) Update(ctx context.Context, id int64, in ports.GroupInput) (*domain.Group, error) {
	if err := a.validate.Validate(&in); err != nil {
		return nil, err
	}
	g, err := a.groups.UpdateGroup(ctx, id, in)
	metrics.MutationsTotal.WithLabelValues("group_update", okOrError(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("update group %d: %w", id, err)
	}
	a.log.Info().Int64("group_id", id).Msg("group updated")
	return g, nil
}

// Delete removes a group once the caller has confirmed.
func (a *GroupAdmin) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete group %d: %w", id, domain.ErrCancelled)
	}
	err := a.groups.DeleteGroup(ctx, id)
	metrics.MutationsTotal.WithLabelValues("group_delete", okOrError(err)).Inc()
	if err != nil {
		return fmt.Errorf("delete group %d: %w", id, err)
	}
	a.log.Info().Int64("group_id", id).Msg("group deleted")
	return nil
}

// Members returns a loaded membership controller for group id.
func (a *GroupAdmin) Members(ctx context.Context, id int64) (*GroupMembers, error) {
	m := &GroupMembers{
		groups:    a.groups,
		users:     a.users,
		groupID:   id,
		selection: NewSelectionSet(),
		log:       a.log.With().Int64("group_id", id).Logger(),
	}
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// GroupMembersState is a snapshot of a membership view.
type GroupMembersState struct {
	Group     *domain.Group `json:"group"`
	Available []domain.User `json:"available"`
	Selected  []int64       `json:"selected"`
	Error     string        `json:"error,omitempty"`
}

// GroupMembers manages who belongs to one group. Users picked for adding
// come from the directory minus the current members.
type GroupMembers struct {
	groups  ports.GroupAPI
	users   ports.UserAPI
	groupID int64
	log     zerolog.Logger

	mu        sync.Mutex
	group     *domain.Group
	directory []domain.User
	selection *SelectionSet
	errMsg    string
}

// Load fetches the group and the user directory. A directory failure is
// logged and leaves no users available; a group failure is returned.
func (m *GroupMembers) Load(ctx context.Context) error {
	if err := m.reloadGroup(ctx); err != nil {
		return err
	}

	page, err := m.users.Search(ctx, domain.SearchQuery{Page: 0, PageSize: directorySize})
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to load user directory")
		return nil
	}
	m.mu.Lock()
	m.directory = page.Content
	m.mu.Unlock()
	return nil
}

func (m *GroupMembers) reloadGroup(ctx context.Context) error {
	g, err := m.groups.GetGroup(ctx, m.groupID)
	if err != nil {
		m.setError(domain.UserMessage(err, "Failed to load group"))
		return fmt.Errorf("load group %d: %w", m.groupID, err)
	}
	m.mu.Lock()
	m.group = g
	m.errMsg = ""
	m.mu.Unlock()
	return nil
}

func (m *GroupMembers) State() GroupMembersState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return GroupMembersState{
		Group:     m.group,
		Available: m.available(),
		Selected:  m.selection.IDs(),
		Error:     m.errMsg,
	}
}

// Available returns the directory users that are not members yet.
func (m *GroupMembers) Available() []domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available()
}

func (m *GroupMembers) available() []domain.User {
	out := make([]domain.User, 0, len(m.directory))
	for _, u := range m.directory {
		if m.group == nil || !m.group.HasMember(u.ID) {
			out = append(out, u)
		}
	}
	return out
}

// ToggleUser flips an available user in the add selection. Members and
// unknown IDs are refused.
func (m *GroupMembers) ToggleUser(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.available() {
		if u.ID == id {
			m.selection.Toggle(id)
			return true
		}
	}
	return false
}

// ClearSelection empties the add selection.
func (m *GroupMembers) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Clear()
}

// AddSelected assigns every selected user to the group in one request.
func (m *GroupMembers) AddSelected(ctx context.Context) error {
	m.mu.Lock()
	ids := m.selection.IDs()
	m.mu.Unlock()
	if len(ids) == 0 {
		metrics.MutationsTotal.WithLabelValues("group_assign", "skipped").Inc()
		return fmt.Errorf("assign users: %w", domain.ErrEmptySelection)
	}

	g, err := m.groups.AssignUsers(ctx, m.groupID, ids)
	metrics.MutationsTotal.WithLabelValues("group_assign", okOrError(err)).Inc()
	if err != nil {
		m.setError(domain.UserMessage(err, "Failed to add users"))
		return fmt.Errorf("assign users to group %d: %w", m.groupID, err)
	}
	m.log.Info().Int("count", len(ids)).Msg("users assigned to group")

	m.mu.Lock()
	m.selection.Clear()
	if g != nil {
		m.group = g
	}
	m.mu.Unlock()
	return m.reloadGroup(ctx)
}

// RemoveMember takes userID out of the group once the caller has confirmed.
func (m *GroupMembers) RemoveMember(ctx context.Context, userID int64, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("remove member %d: %w", userID, domain.ErrCancelled)
	}
	m.mu.Lock()
	member := m.group != nil && m.group.HasMember(userID)
	m.mu.Unlock()
	if !member {
		return fmt.Errorf("remove member %d: %w", userID, domain.ErrNotFound)
	}

	err := m.groups.RemoveUser(ctx, m.groupID, userID)
	metrics.MutationsTotal.WithLabelValues("group_remove", okOrError(err)).Inc()
	if err != nil {
		m.setError(domain.UserMessage(err, "Failed to remove user"))
		return fmt.Errorf("remove member %d from group %d: %w", userID, m.groupID, err)
	}
	m.log.Info().Int64("user_id", userID).Msg("user removed from group")
	return m.reloadGroup(ctx)
}

func (m *GroupMembers) setError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsg = msg
}

func okOrError(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
