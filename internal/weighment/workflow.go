package weighment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// EntriesService is the remote entries collaborator.
type EntriesService interface {
	CreateEntry(ctx context.Context, p models.CreateEntryPayload) (*models.Entry, error)
	GetEntries(ctx context.Context, q models.EntryQuery) (*models.EntryPage, error)
	UpdateEntryExit(ctx context.Context, id string, p models.ExitPayload) (*models.Entry, error)
	DownloadEntryReceipt(ctx context.Context, id string) ([]byte, error)
}

// Journal remembers exit submissions the entries service accepted from this client.
type Journal interface {
	ExitRecorded(id string) (bool, error)
	RecordExit(id string, p models.ExitPayload) error
}

// ExitState is where an entry sits in the exit flow.
type ExitState int

const (
	ExitNotStarted ExitState = iota
	ExitPrompting
	ExitSubmitted
)

func (s ExitState) String() string {
	switch s {
	case ExitNotStarted:
		return "not_started"
	case ExitPrompting:
		return "prompting"
	case ExitSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("exit_state(%d)", int(s))
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithJournal adds a local record of accepted exit submissions.
func WithJournal(j Journal) Option {
	return func(w *Workflow) { w.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.log = l }
}

// WithClock overrides time.Now, used for entryDate.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithRole gates create and exit on the signed-in role.
func WithRole(role func() models.Role) Option {
	return func(w *Workflow) { w.role = role }
}

// Workflow owns one in-memory entries list and drives the two-phase weighment
// on top of it. Writes are never applied locally: after every accepted write
// the list is fetched again from the entries service.
type Workflow struct {
	svc     EntriesService
	journal Journal
	log     *slog.Logger
	now     func() time.Time
	role    func() models.Role

	mu      sync.Mutex
	query   models.EntryQuery
	entries []models.Entry
	total   int
	prompts map[string]*ExitPrompt
	saving  bool
}

// NewWorkflow creates a workflow on top of the entries service.
func NewWorkflow(svc EntriesService, opts ...Option) *Workflow {
	w := &Workflow{
		svc:     svc,
		log:     slog.Default(),
		now:     time.Now,
		query:   models.EntryQuery{Page: 1, Limit: 10},
		prompts: make(map[string]*ExitPrompt),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetQuery replaces the list query. It does not fetch.
func (w *Workflow) SetQuery(q models.EntryQuery) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.query = q
}

// Query returns the current list query.
func (w *Workflow) Query() models.EntryQuery {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.query
}

// Entries returns a copy of the current list.
func (w *Workflow) Entries() []models.Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Total is the server-side count for the current query.
func (w *Workflow) Total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Find returns the listed entry with the given id.
func (w *Workflow) Find(id string) (models.Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.findLocked(id)
}

func (w *Workflow) findLocked(id string) (models.Entry, bool) {
	for _, e := range w.entries {
		if e.ID == id {
			return e, true
		}
	}
	return models.Entry{}, false
}

// Refresh fetches the list for the current query and replaces the local copy.
func (w *Workflow) Refresh(ctx context.Context) error {
	q := w.Query()
	page, err := w.svc.GetEntries(ctx, q)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}

	for i := range page.Entries {
		if err := page.Entries[i].Validate(); err != nil {
			w.log.Warn("entry violates invariants", "entry_id", page.Entries[i].ID, "err", err)
		}
	}

	w.mu.Lock()
	w.entries = page.Entries
	w.total = page.Total
	w.mu.Unlock()

	w.log.Debug("entries refreshed", "count", len(page.Entries), "total", page.Total)
	return nil
}

func (w *Workflow) canWeigh() bool {
	return w.role == nil || w.role().CanWeigh()
}

// Create validates the draft and, if it is clean, sends it to the entries service.
// Validation failures come back as FieldErrors and nothing is sent.
func (w *Workflow) Create(ctx context.Context, d Draft) (*models.Entry, error) {
	if !w.canWeigh() {
		return nil, ErrForbidden
	}

	payload, errs := ValidateDraft(d, w.now())
	if len(errs) > 0 {
		return nil, errs
	}

	w.mu.Lock()
	if w.saving {
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	w.saving = true
	w.mu.Unlock()

	created, err := w.svc.CreateEntry(ctx, payload)

	w.mu.Lock()
	w.saving = false
	w.mu.Unlock()

	if err != nil {
		w.log.Error("create entry failed", "entry_type", payload.EntryType, "vehicle", payload.Vehicle, "err", err)
		return nil, &ActionError{Fallback: FallbackSave, Err: err}
	}
	w.log.Info("entry created", "entry_id", created.ID, "entry_type", created.EntryType, "manual_weight", payload.ManualWeight)

	if err := w.Refresh(ctx); err != nil {
		w.log.Warn("refresh after create failed", "err", err)
	}
	return created, nil
}

// OpenExit moves an entry into the exit prompt. It refuses entries whose exit
// weight is already on record, either on the server or in this client's history.
func (w *Workflow) OpenExit(id string) (*ExitPrompt, error) {
	if !w.canWeigh() {
		return nil, ErrForbidden
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.findLocked(id)
	if !ok {
		return nil, ErrEntryNotFound
	}
	if entry.HasExit() {
		return nil, ErrExitRecorded
	}
	if p, ok := w.prompts[id]; ok {
		if p.state == ExitSubmitted {
			return nil, ErrExitRecorded
		}
		return p, nil
	}
	if w.journal != nil {
		recorded, err := w.journal.ExitRecorded(id)
		if err != nil {
			return nil, fmt.Errorf("check exit journal: %w", err)
		}
		if recorded {
			return nil, ErrExitRecorded
		}
	}

	p := &ExitPrompt{w: w, entry: entry, state: ExitPrompting}
	w.prompts[id] = p
	return p, nil
}

// Action is how the per-entry exit control renders.
type Action struct {
	Label    string
	Disabled bool
}

// ExitAction reports how the exit control for an entry should render.
func (w *Workflow) ExitAction(e models.Entry) Action {
	if e.HasExit() {
		return Action{Label: "Recorded", Disabled: true}
	}

	w.mu.Lock()
	p, ok := w.prompts[e.ID]
	var state ExitState
	var saving bool
	if ok {
		state, saving = p.state, p.saving
	}
	w.mu.Unlock()

	switch {
	case ok && state == ExitSubmitted:
		return Action{Label: "Recorded", Disabled: true}
	case ok && saving:
		return Action{Label: "Saving", Disabled: true}
	case w.journaled(e.ID):
		return Action{Label: "Recorded", Disabled: true}
	case !w.canWeigh():
		return Action{Label: "Record exit", Disabled: true}
	}
	return Action{Label: "Record exit"}
}

// journaled reports whether this client already had an exit for id accepted.
func (w *Workflow) journaled(id string) bool {
	if w.journal == nil {
		return false
	}
	recorded, err := w.journal.ExitRecorded(id)
	if err != nil {
		w.log.Warn("exit journal lookup failed", "entry_id", id, "err", err)
		return false
	}
	return recorded
}

// ExitState reports the exit state of an entry as seen by this workflow.
func (w *Workflow) ExitState(e models.Entry) ExitState {
	if e.HasExit() {
		return ExitSubmitted
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.prompts[e.ID]; ok {
		return p.state
	}
	return ExitNotStarted
}

// CanDownloadReceipt is the client-side guard for offering a receipt:
// an exit must be recorded and the server must not have flagged a variance.
func CanDownloadReceipt(e models.Entry) bool {
	return e.HasExit() && !e.VarianceFailed()
}

// DownloadReceipt fetches the PDF receipt of a listed entry.
func (w *Workflow) DownloadReceipt(ctx context.Context, id string) ([]byte, error) {
	entry, ok := w.Find(id)
	if !ok {
		return nil, ErrEntryNotFound
	}
	if !CanDownloadReceipt(entry) {
		return nil, ErrReceiptUnavailable
	}

	pdf, err := w.svc.DownloadEntryReceipt(ctx, id)
	if err != nil {
		w.log.Error("receipt download failed", "entry_id", id, "err", err)
		return nil, &ActionError{Fallback: FallbackReceipt, Err: err}
	}
	return pdf, nil
}

// ExitPrompt collects and submits the exit weighment for one entry.
type ExitPrompt struct {
	w      *Workflow
	entry  models.Entry
	state  ExitState
	saving bool
}

// Entry is the entry the prompt was opened for.
func (p *ExitPrompt) Entry() models.Entry {
	return p.entry
}

// State returns the current exit state.
func (p *ExitPrompt) State() ExitState {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.state
}

// Confirm validates the input and submits it. On a validation or service
// failure the prompt stays open so the operator can correct and retry.
// On success the prompt is closed for good and the list is fetched again.
func (p *ExitPrompt) Confirm(ctx context.Context, in ExitInput) (*models.Entry, error) {
	w := p.w

	w.mu.Lock()
	if p.state != ExitPrompting {
		w.mu.Unlock()
		return nil, ErrPromptClosed
	}
	if p.saving {
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	payload, err := BuildExitPayload(&p.entry, in)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	p.saving = true
	w.mu.Unlock()

	updated, err := w.svc.UpdateEntryExit(ctx, p.entry.ID, payload)

	w.mu.Lock()
	p.saving = false
	if err != nil {
		w.mu.Unlock()
		w.log.Error("update exit failed", "entry_id", p.entry.ID, "err", err)
		return nil, &ActionError{Fallback: FallbackExit, Err: err}
	}
	p.state = ExitSubmitted
	w.mu.Unlock()

	w.log.Info("exit recorded", "entry_id", p.entry.ID, "exit_weight", payload.ExitWeight)

	if w.journal != nil {
		if err := w.journal.RecordExit(p.entry.ID, payload); err != nil {
			w.log.Warn("exit journal write failed", "entry_id", p.entry.ID, "err", err)
		}
	}

	if err := w.Refresh(ctx); err != nil {
		w.log.Warn("refresh after exit failed", "entry_id", p.entry.ID, "err", err)
	}
	return updated, nil
}

// Cancel closes the prompt without submitting. The entry goes back to NotStarted.
func (p *ExitPrompt) Cancel() {
	w := p.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if p.state != ExitPrompting || p.saving {
		return
	}
	p.state = ExitNotStarted
	delete(w.prompts, p.entry.ID)
}
