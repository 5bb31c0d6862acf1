package weighment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// fakeService keeps entries in memory and records every call.
type fakeService struct {
	mu      sync.Mutex
	entries []models.Entry
	creates []models.CreateEntryPayload
	exits   []models.ExitPayload
	calls   []string
	exitErr error
	listErr error
	receipt []byte
	nextID  int
}

type serviceError struct{ msg string }

func (e *serviceError) Error() string       { return "service: " + e.msg }
func (e *serviceError) UserMessage() string { return e.msg }

func (s *fakeService) CreateEntry(_ context.Context, p models.CreateEntryPayload) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "create")
	s.creates = append(s.creates, p)
	s.nextID++
	e := models.Entry{
		ID:           fmt.Sprintf("e%d", s.nextID),
		EntryType:    p.EntryType,
		Vendor:       models.Reference(p.Vendor),
		Vehicle:      models.Reference(p.Vehicle),
		DriverName:   p.DriverName,
		EntryWeight:  p.EntryWeight,
		ManualWeight: p.ManualWeight,
	}
	if p.MaterialType != "" {
		m := models.Reference(p.MaterialType)
		e.MaterialType = &m
	}
	s.entries = append(s.entries, e)
	return &e, nil
}

func (s *fakeService) GetEntries(_ context.Context, _ models.EntryQuery) (*models.EntryPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "list")
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Entry, len(s.entries))
	copy(out, s.entries)
	return &models.EntryPage{Entries: out, Total: len(out)}, nil
}

func (s *fakeService) UpdateEntryExit(_ context.Context, id string, p models.ExitPayload) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "exit")
	s.exits = append(s.exits, p)
	if s.exitErr != nil {
		return nil, s.exitErr
	}
	for i := range s.entries {
		if s.entries[i].ID == id {
			w := p.ExitWeight
			flag := false
			s.entries[i].ExitWeight = &w
			s.entries[i].Moisture = p.Moisture
			s.entries[i].Dust = p.Dust
			s.entries[i].VarianceFlag = &flag
			e := s.entries[i]
			return &e, nil
		}
	}
	return nil, &serviceError{msg: "Entry not found"}
}

func (s *fakeService) DownloadEntryReceipt(_ context.Context, _ string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "receipt")
	return s.receipt, nil
}

func (s *fakeService) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type memJournal struct {
	recorded map[string]models.ExitPayload
}

func (j *memJournal) ExitRecorded(id string) (bool, error) {
	_, ok := j.recorded[id]
	return ok, nil
}

func (j *memJournal) RecordExit(id string, p models.ExitPayload) error {
	if j.recorded == nil {
		j.recorded = map[string]models.ExitPayload{}
	}
	j.recorded[id] = p
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorkflow(svc *fakeService, opts ...Option) *Workflow {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewWorkflow(svc, opts...)
}

func TestWorkflow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{}
	wf := newTestWorkflow(svc, WithClock(func() time.Time { return fixedNow }))

	draft := Draft{
		EntryType:   "purchase",
		Vendor:      "v1",
		Vehicle:     "vh1",
		DriverName:  "Suresh",
		DriverPhone: "9000000000",
		EntryWeight: "1000",
	}

	_, err := wf.Create(ctx, draft)
	var fieldErrs FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if _, ok := fieldErrs["materialType"]; !ok || len(fieldErrs) != 1 {
		t.Fatalf("expected only a materialType error, got %v", fieldErrs)
	}
	if len(svc.callLog()) != 0 {
		t.Fatalf("invalid draft reached the service: %v", svc.callLog())
	}

	draft.MaterialType = "m1"
	created, err := wf.Create(ctx, draft)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	wantCreate := models.CreateEntryPayload{
		EntryType:    models.EntryTypePurchase,
		Vendor:       "v1",
		Vehicle:      "vh1",
		DriverName:   "Suresh",
		DriverPhone:  "9000000000",
		EntryWeight:  1000,
		EntryDate:    "2026-10-18T09:15:30.250Z",
		MaterialType: "m1",
	}
	if diff := cmp.Diff(wantCreate, svc.creates[0]); diff != "" {
		t.Errorf("create payload mismatch (-want +got):\n%s", diff)
	}
	if len(wf.Entries()) != 1 {
		t.Fatalf("list not refreshed after create: %d entries", len(wf.Entries()))
	}

	prompt, err := wf.OpenExit(created.ID)
	if err != nil {
		t.Fatalf("OpenExit failed: %v", err)
	}
	if prompt.State() != ExitPrompting {
		t.Fatalf("state = %s, want prompting", prompt.State())
	}

	if _, err := prompt.Confirm(ctx, ExitInput{ExitWeight: "950", Moisture: "12", Dust: "4"}); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	wantExit := models.ExitPayload{ExitWeight: 950, Moisture: f64(12), Dust: f64(4)}
	if diff := cmp.Diff(wantExit, svc.exits[0]); diff != "" {
		t.Errorf("exit payload mismatch (-want +got):\n%s", diff)
	}
	if prompt.State() != ExitSubmitted {
		t.Errorf("state = %s, want submitted", prompt.State())
	}

	_, err = wf.OpenExit(created.ID)
	if !errors.Is(err, ErrExitRecorded) {
		t.Fatalf("second OpenExit: got %v, want ErrExitRecorded", err)
	}
	if err.Error() != MsgExitRecorded {
		t.Errorf("message = %q", err.Error())
	}

	want := []string{"create", "list", "exit", "list"}
	if diff := cmp.Diff(want, svc.callLog()); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkflow_OpenExitRefusesRecorded(t *testing.T) {
	svc := &fakeService{entries: []models.Entry{
		{ID: "done", EntryType: models.EntryTypeSale, EntryWeight: 400, ExitWeight: f64(900)},
		{ID: "zero", EntryType: models.EntryTypeSale, EntryWeight: 400, ExitWeight: f64(0)},
	}}
	wf := newTestWorkflow(svc)
	if err := wf.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if _, err := wf.OpenExit("done"); !errors.Is(err, ErrExitRecorded) {
		t.Errorf("recorded entry: got %v", err)
	}
	done, _ := wf.Find("done")
	if a := wf.ExitAction(done); a.Label != "Recorded" || !a.Disabled {
		t.Errorf("recorded action = %+v", a)
	}

	if _, err := wf.OpenExit("zero"); err != nil {
		t.Errorf("exitWeight 0 should still be open: %v", err)
	}
	if _, err := wf.OpenExit("missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("missing entry: got %v", err)
	}
}

func TestWorkflow_ConfirmFailureKeepsPrompting(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{
		entries: []models.Entry{{ID: "e1", EntryType: models.EntryTypeSale, EntryWeight: 500}},
		exitErr: &serviceError{msg: "Vehicle is still on the bridge"},
	}
	wf := newTestWorkflow(svc)
	_ = wf.Refresh(ctx)

	prompt, err := wf.OpenExit("e1")
	if err != nil {
		t.Fatalf("OpenExit failed: %v", err)
	}

	// Validation failure: nothing sent.
	if _, err := prompt.Confirm(ctx, ExitInput{ExitWeight: "499"}); err == nil {
		t.Fatal("499 accepted")
	}
	if len(svc.exits) != 0 {
		t.Fatal("invalid exit reached the service")
	}

	_, err = prompt.Confirm(ctx, ExitInput{ExitWeight: "650"})
	if err == nil {
		t.Fatal("expected collaborator failure")
	}
	if got := err.Error(); got != "Vehicle is still on the bridge" {
		t.Errorf("message = %q", got)
	}
	if prompt.State() != ExitPrompting {
		t.Errorf("state = %s, want prompting", prompt.State())
	}

	svc.exitErr = errors.New("connection reset")
	_, err = prompt.Confirm(ctx, ExitInput{ExitWeight: "650"})
	if UserMessage(err, "x") != FallbackExit {
		t.Errorf("fallback message = %q", UserMessage(err, "x"))
	}

	svc.exitErr = nil
	if _, err := prompt.Confirm(ctx, ExitInput{ExitWeight: "650"}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if _, err := prompt.Confirm(ctx, ExitInput{ExitWeight: "650"}); !errors.Is(err, ErrPromptClosed) {
		t.Errorf("confirm after submit: got %v", err)
	}
}

func TestWorkflow_SubmittedSurvivesFailedRefresh(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{entries: []models.Entry{{ID: "e1", EntryType: models.EntryTypeSale, EntryWeight: 500}}}
	wf := newTestWorkflow(svc)
	_ = wf.Refresh(ctx)

	prompt, _ := wf.OpenExit("e1")
	svc.listErr = errors.New("timeout")
	if _, err := prompt.Confirm(ctx, ExitInput{ExitWeight: "700"}); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	// The local list still shows the stale entry without an exit weight.
	stale, _ := wf.Find("e1")
	if stale.HasExit() {
		t.Fatal("list should not be mutated locally")
	}
	if _, err := wf.OpenExit("e1"); !errors.Is(err, ErrExitRecorded) {
		t.Errorf("reopen after failed refresh: got %v", err)
	}
	if wf.ExitState(stale) != ExitSubmitted {
		t.Errorf("ExitState = %s", wf.ExitState(stale))
	}
}

func TestWorkflow_JournalBlocksReopen(t *testing.T) {
	svc := &fakeService{entries: []models.Entry{{ID: "e1", EntryType: models.EntryTypeSale, EntryWeight: 500}}}
	journal := &memJournal{}
	_ = journal.RecordExit("e1", models.ExitPayload{ExitWeight: 700})

	wf := newTestWorkflow(svc, WithJournal(journal))
	_ = wf.Refresh(context.Background())
	if _, err := wf.OpenExit("e1"); !errors.Is(err, ErrExitRecorded) {
		t.Errorf("journaled entry: got %v", err)
	}
	e, _ := wf.Find("e1")
	if got := wf.ExitAction(e); got != (Action{Label: "Recorded", Disabled: true}) {
		t.Errorf("journaled entry action = %+v", got)
	}
}

func TestWorkflow_CancelReturnsToNotStarted(t *testing.T) {
	svc := &fakeService{entries: []models.Entry{{ID: "e1", EntryType: models.EntryTypeSale, EntryWeight: 500}}}
	wf := newTestWorkflow(svc)
	_ = wf.Refresh(context.Background())

	prompt, _ := wf.OpenExit("e1")
	prompt.Cancel()
	e, _ := wf.Find("e1")
	if wf.ExitState(e) != ExitNotStarted {
		t.Errorf("ExitState = %s", wf.ExitState(e))
	}
	if _, err := prompt.Confirm(context.Background(), ExitInput{ExitWeight: "700"}); !errors.Is(err, ErrPromptClosed) {
		t.Errorf("confirm on cancelled prompt: got %v", err)
	}
	if _, err := wf.OpenExit("e1"); err != nil {
		t.Errorf("reopen after cancel: %v", err)
	}
}

func TestWorkflow_RoleGate(t *testing.T) {
	svc := &fakeService{entries: []models.Entry{{ID: "e1", EntryType: models.EntryTypeSale, EntryWeight: 500}}}
	wf := newTestWorkflow(svc, WithRole(func() models.Role { return models.RoleSupervisor }))
	_ = wf.Refresh(context.Background())

	if _, err := wf.Create(context.Background(), validDraft()); !errors.Is(err, ErrForbidden) {
		t.Errorf("supervisor create: got %v", err)
	}
	if _, err := wf.OpenExit("e1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("supervisor exit: got %v", err)
	}
	e, _ := wf.Find("e1")
	if a := wf.ExitAction(e); !a.Disabled {
		t.Errorf("supervisor action should be disabled: %+v", a)
	}
}

func TestWorkflow_Receipt(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{
		receipt: []byte("%PDF-1.3"),
		entries: []models.Entry{
			{ID: "ok", EntryType: models.EntryTypeSale, EntryWeight: 500, ExitWeight: f64(700), VarianceFlag: boolp(false)},
			{ID: "flagged", EntryType: models.EntryTypeSale, EntryWeight: 500, ExitWeight: f64(700), VarianceFlag: boolp(true)},
			{ID: "open", EntryType: models.EntryTypeSale, EntryWeight: 500},
		},
	}
	wf := newTestWorkflow(svc)
	_ = wf.Refresh(ctx)

	pdf, err := wf.DownloadReceipt(ctx, "ok")
	if err != nil || string(pdf) != "%PDF-1.3" {
		t.Fatalf("DownloadReceipt = %q, %v", pdf, err)
	}
	for _, id := range []string{"flagged", "open"} {
		if _, err := wf.DownloadReceipt(ctx, id); !errors.Is(err, ErrReceiptUnavailable) {
			t.Errorf("%s: got %v", id, err)
		}
	}
	if n := len(svc.callLog()); n != 2 {
		t.Errorf("expected list + one receipt call, got %v", svc.callLog())
	}
}

func boolp(v bool) *bool { return &v }

// slowService holds CreateEntry until released.
type slowService struct {
	*fakeService
	entered chan struct{}
	release chan struct{}
}

func (s *slowService) CreateEntry(ctx context.Context, p models.CreateEntryPayload) (*models.Entry, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.fakeService.CreateEntry(ctx, p)
}

func TestWorkflow_CreateRefusedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	svc := &slowService{fakeService: &fakeService{}, entered: make(chan struct{}), release: make(chan struct{})}
	wf := NewWorkflow(svc, WithLogger(quietLogger()), WithClock(func() time.Time { return fixedNow }))

	done := make(chan error, 1)
	go func() {
		_, err := wf.Create(ctx, validDraft())
		done <- err
	}()
	<-svc.entered

	if _, err := wf.Create(ctx, validDraft()); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("expected ErrSubmitInFlight, got %v", err)
	}
	close(svc.release)
	if err := <-done; err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.creates) != 1 {
		t.Errorf("expected one create call, got %d", len(svc.creates))
	}
}
