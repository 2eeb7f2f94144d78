package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/pkg/metrics"
	"github.com/adminkit/admin-console/internal/pkg/validation"
)

// EditMode tells a create panel from an update panel.
type EditMode string

const (
	ModeCreate EditMode = "create"
	ModeUpdate EditMode = "update"
)

const passwordRule = "min=8"

// UserForm holds the editable fields of the user panel.
type UserForm struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email"    validate:"required,email"`
	Password string  `json:"password"`
	Enabled  bool    `json:"enabled"`
	RoleIDs  []int64 `json:"roleIds"`
}

// ToggleRole adds or removes roleID.
func (f *UserForm) ToggleRole(roleID int64) {
	if i := slices.Index(f.RoleIDs, roleID); i >= 0 {
		f.RoleIDs = slices.Delete(f.RoleIDs, i, i+1)
		return
	}
	f.RoleIDs = append(f.RoleIDs, roleID)
}

// EditPanelState is a snapshot of the panel.
type EditPanelState struct {
	Open   bool     `json:"open"`
	Mode   EditMode `json:"mode,omitempty"`
	UserID int64    `json:"userId,omitempty"`
	Form   UserForm `json:"form"`
	Saving bool     `json:"saving"`
	Error  string   `json:"error,omitempty"`
}

// SubmitOutcome says what a successful Submit did.
type SubmitOutcome string

const (
	OutcomeCreated   SubmitOutcome = "created"
	OutcomeUpdated   SubmitOutcome = "updated"
	OutcomeUnchanged SubmitOutcome = "unchanged"
)

// EditPanel is the create/update side panel of the user list. In update
// mode only the fields that differ from the original are sent; an update
// with no difference closes without a request.
type EditPanel struct {
	api      ports.UserAPI
	validate *validation.Validator
	onSaved  func(ctx context.Context)
	log      zerolog.Logger

	mu       sync.Mutex
	open     bool
	original *domain.User
	form     UserForm
	saving   bool
	errMsg   string
}

// NewEditPanel returns a closed panel. onSaved, when set, runs after every
// successful create or update; the list view hooks its refresh there.
func NewEditPanel(api ports.UserAPI, onSaved func(ctx context.Context), log zerolog.Logger) *EditPanel {
	return &EditPanel{
		api:      api,
		validate: validation.New(),
		onSaved:  onSaved,
		log:      log,
	}
}

// OpenCreate opens an empty panel for a new user.
func (p *EditPanel) OpenCreate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	p.original = nil
	p.form = UserForm{Enabled: true}
	p.errMsg = ""
}

// OpenEdit opens the panel on a copy of u.
func (p *EditPanel) OpenEdit(u domain.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	p.original = &u
	p.form = UserForm{
		Username: u.Username,
		Email:    u.Email,
		Enabled:  u.Enabled,
		RoleIDs:  u.RoleIDs(),
	}
	p.errMsg = ""
}

// Update replaces the draft form.
func (p *EditPanel) Update(f UserForm) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.form = f
}

// Cancel closes the panel and drops the draft.
func (p *EditPanel) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// Reset closes the panel and drops the draft when the signed-in user
// changes.
func (p *EditPanel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *EditPanel) State() EditPanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := EditPanelState{
		Open:   p.open,
		Form:   p.form,
		Saving: p.saving,
		Error:  p.errMsg,
	}
	st.Form.RoleIDs = slices.Clone(p.form.RoleIDs)
	if p.open {
		st.Mode = p.mode()
	}
	if p.original != nil {
		st.UserID = p.original.ID
	}
	return st
}

// Submit validates the draft and sends it. On failure the panel stays open
// with the draft untouched and the error message set.
func (p *EditPanel) Submit(ctx context.Context) (SubmitOutcome, error) {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return "", fmt.Errorf("submit: panel is closed: %w", domain.ErrInvalidTransition)
	}
	form := p.form
	form.RoleIDs = slices.Clone(p.form.RoleIDs)
	original := p.original
	mode := p.mode()
	p.mu.Unlock()

	if err := p.check(mode, form); err != nil {
		p.fail(err, "")
		return "", err
	}

	var (
		outcome SubmitOutcome
		err     error
	)
	switch mode {
	case ModeCreate:
		outcome, err = p.create(ctx, form)
	default:
		outcome, err = p.update(ctx, *original, form)
	}
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.reset()
	p.mu.Unlock()

	if outcome != OutcomeUnchanged && p.onSaved != nil {
		p.onSaved(ctx)
	}
	return outcome, nil
}

func (p *EditPanel) check(mode EditMode, form UserForm) error {
	if err := p.validate.Validate(&form); err != nil {
		return err
	}
	if mode == ModeCreate {
		return p.validate.Var("password", form.Password, "required,"+passwordRule)
	}
	if form.Password != "" {
		return p.validate.Var("password", form.Password, passwordRule)
	}
	return nil
}

func (p *EditPanel) create(ctx context.Context, form UserForm) (SubmitOutcome, error) {
	in := ports.CreateUserInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	}
	if len(form.RoleIDs) > 0 {
		in.RoleIDs = form.RoleIDs
	}

	p.setSaving(true)
	u, err := p.api.Create(ctx, in)
	p.setSaving(false)
	if err != nil {
		metrics.MutationsTotal.WithLabelValues("create", "error").Inc()
		p.fail(err, "Failed to create user")
		return "", fmt.Errorf("create user: %w", err)
	}

	metrics.MutationsTotal.WithLabelValues("create", "ok").Inc()
	p.log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("user created")
	return OutcomeCreated, nil
}

func (p *EditPanel) update(ctx context.Context, original domain.User, form UserForm) (SubmitOutcome, error) {
	in := Diff(original, form)
	if in.IsEmpty() {
		metrics.MutationsTotal.WithLabelValues("update", "skipped").Inc()
		return OutcomeUnchanged, nil
	}

	p.setSaving(true)
	_, err := p.api.Update(ctx, original.ID, in)
	p.setSaving(false)
	if err != nil {
		metrics.MutationsTotal.WithLabelValues("update", "error").Inc()
		p.fail(err, "Failed to update user")
		return "", fmt.Errorf("update user %d: %w", original.ID, err)
	}

	metrics.MutationsTotal.WithLabelValues("update", "ok").Inc()
	p.log.Info().Int64("user_id", original.ID).Msg("user updated")
	return OutcomeUpdated, nil
}

// Diff returns the update carrying only the fields of form that differ
// from original. A blank password is never sent. Role IDs compare as sets.
func Diff(original domain.User, form UserForm) ports.UpdateUserInput {
	var in ports.UpdateUserInput
	if form.Username != original.Username {
		in.Username = &form.Username
	}
	if form.Email != original.Email {
		in.Email = &form.Email
	}
	if form.Password != "" {
		in.Password = &form.Password
	}
	if form.Enabled != original.Enabled {
		in.Enabled = &form.Enabled
	}
	if !sameIDs(original.RoleIDs(), form.RoleIDs) {
		ids := slices.Clone(form.RoleIDs)
		if ids == nil {
			ids = []int64{}
		}
		in.RoleIDs = &ids
	}
	return in
}

func sameIDs(a, b []int64) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

func (p *EditPanel) mode() EditMode {
	if p.original == nil {
		return ModeCreate
	}
	return ModeUpdate
}

func (p *EditPanel) setSaving(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saving = v
	if v {
		p.errMsg = ""
	}
}

func (p *EditPanel) fail(err error, fallback string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errMsg = domain.UserMessage(err, fallback)
}

func (p *EditPanel) reset() {
	p.open = false
	p.original = nil
	p.form = UserForm{}
	p.saving = false
	p.errMsg = ""
}
