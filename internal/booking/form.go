package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/estetica-booking/internal/bookingapi"
	"github.com/wolfman30/estetica-booking/internal/catalog"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

// DefaultResetDelay is how long a success message stays up before the form resets.
const DefaultResetDelay = 4 * time.Second

// Customer-facing outcome messages.
const (
	MessageSuccess   = "Thank you for contacting us, we will be in touch shortly!"
	MessageDuplicate = "The phone number or email you entered is already in use. Please enter different information."
	MessageRetry     = "An error occurred. Please try again later."
)

// State is the submission state of a form.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Outcome is the tri-state result shown to the customer.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// FailureKind separates the error outcomes.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureDuplicate FailureKind = "duplicate_record"
	FailureTransport FailureKind = "transport"
)

// Store persists a booking record.
type Store interface {
	Save(ctx context.Context, rec bookingapi.Record) error
}

// Recorder observes submission results. Metrics implement it.
type Recorder interface {
	ObserveSubmission(outcome string)
}

// Result describes one submit attempt.
type Result struct {
	Outcome Outcome     `json:"outcome"`
	Failure FailureKind `json:"failure,omitempty"`
	Message string      `json:"message"`
}

// Snapshot is a consistent read of the form.
type Snapshot struct {
	Draft   Draft
	State   State
	Outcome Outcome
	Message string
	Total   int
}

// FormConfig wires a form's collaborators.
type FormConfig struct {
	Catalog    *catalog.Catalog
	Store      Store
	Scheduler  Scheduler
	Recorder   Recorder
	ResetDelay time.Duration
	Logger     *logging.Logger
}

// Form owns one session's draft and its submission state machine:
//
//	Idle -> Submitting -> Success -> (reset timer) -> Idle
//	                   \-> Error -> Submitting ...
//
// All methods are safe for concurrent use.
type Form struct {
	catalog    *catalog.Catalog
	store      Store
	scheduler  Scheduler
	recorder   Recorder
	resetDelay time.Duration
	logger     *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	draft      Draft
	state      State
	message    string
	resetTimer Timer
	closed     bool
}

// NewForm creates a form holding a fresh draft.
func NewForm(cfg FormConfig) *Form {
	if cfg.Catalog == nil {
		panic("booking: catalog required")
	}
	if cfg.Store == nil {
		panic("booking: store required")
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = SystemScheduler{}
	}
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = DefaultResetDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Form{
		catalog:    cfg.Catalog,
		store:      cfg.Store,
		scheduler:  cfg.Scheduler,
		recorder:   cfg.Recorder,
		resetDelay: cfg.ResetDelay,
		logger:     cfg.Logger,
		ctx:        ctx,
		cancel:     cancel,
		draft:      NewDraft(),
		state:      StateIdle,
	}
}

// Snapshot returns a copy of the draft and state with the live total.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Form) snapshotLocked() Snapshot {
	return Snapshot{
		Draft:   f.draft.Clone(),
		State:   f.state,
		Outcome: outcomeOf(f.state),
		Message: f.message,
		Total:   f.catalog.TotalPrice(f.draft.Tier, f.draft.Parts, f.draft.Coupon),
	}
}

// Set edits one field.
func (f *Form) Set(field, value string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Snapshot{}, ErrClosed
	}
	if err := f.draft.Set(field, value, f.catalog); err != nil {
		return f.snapshotLocked(), err
	}
	return f.snapshotLocked(), nil
}

// TogglePart flips the selection of part. Parts not offered for the current
// category and tier are rejected.
func (f *Form) TogglePart(part catalog.PartID) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Snapshot{}, ErrClosed
	}
	if !f.draft.HasPart(part) && !f.catalog.Offers(f.draft.Category, f.draft.Tier, part) {
		return f.snapshotLocked(), fmt.Errorf("%w: %s", ErrPartNotOffered, part)
	}
	f.draft.TogglePart(part)
	return f.snapshotLocked(), nil
}

// Submit validates the draft and sends it to the store. A validation failure
// returns a *ValidationError and leaves the form untouched. A store failure
// is reported through the Result, not the error.
func (f *Form) Submit(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return Result{}, ErrClosed
	}
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return Result{}, ErrSubmitInFlight
	}
	if err := Validate(f.draft); err != nil {
		f.mu.Unlock()
		return Result{}, err
	}
	rec, err := f.recordLocked()
	if err != nil {
		f.mu.Unlock()
		return Result{}, err
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(f.ctx, cancel)
	saveErr := f.store.Save(callCtx, rec)
	stop()
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Result{}, ErrClosed
	}
	if saveErr != nil {
		return f.failLocked(saveErr), nil
	}
	return f.succeedLocked(rec.PurchaseType, rec.TotalPrice), nil
}

func (f *Form) recordLocked() (bookingapi.Record, error) {
	parts, err := json.Marshal(f.draft.PartNames())
	if err != nil {
		return bookingapi.Record{}, fmt.Errorf("booking: encode parts: %w", err)
	}
	return bookingapi.Record{
		Name:              f.draft.Name,
		PhoneNumber:       f.draft.Phone,
		Email:             f.draft.Email,
		Gender:            string(f.draft.Category),
		PurchaseType:      f.draft.Tier.StoreValue(),
		SelectedBodyParts: string(parts),
		SelectedDate:      f.draft.Date,
		Coupon:            f.draft.Coupon,
		TotalPrice:        f.catalog.TotalPrice(f.draft.Tier, f.draft.Parts, f.draft.Coupon),
	}, nil
}

func (f *Form) succeedLocked(tier string, total int) Result {
	f.state = StateSuccess
	f.message = MessageSuccess
	f.draft.Clear()
	f.scheduleResetLocked()
	f.record(OutcomeSuccess)
	f.logger.Info("booking submitted", "purchase_type", tier, "total_price", total)
	return Result{Outcome: OutcomeSuccess, Message: MessageSuccess}
}

func (f *Form) failLocked(err error) Result {
	f.state = StateError
	kind := FailureTransport
	f.message = MessageRetry
	if bookingapi.IsDuplicate(err) {
		kind = FailureDuplicate
		f.message = MessageDuplicate
	}
	f.record(OutcomeError)
	if errors.Is(err, context.Canceled) {
		f.logger.Warn("booking submission cancelled", "error", err)
	} else {
		f.logger.Error("booking submission failed", "error", err, "failure", string(kind))
	}
	return Result{Outcome: OutcomeError, Failure: kind, Message: f.message}
}

// scheduleResetLocked replaces any pending reset with a fresh one.
func (f *Form) scheduleResetLocked() {
	if f.resetTimer != nil {
		f.resetTimer.Stop()
	}
	var timer Timer
	timer = f.scheduler.AfterFunc(f.resetDelay, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed || f.resetTimer != timer {
			return
		}
		f.resetTimer = nil
		f.state = StateIdle
		f.message = ""
		f.draft.Clear()
	})
	f.resetTimer = timer
}

func (f *Form) record(outcome Outcome) {
	if f.recorder != nil {
		f.recorder.ObserveSubmission(string(outcome))
	}
}

// Close ends the session: pending resets are stopped and in-flight calls are
// cancelled. Later results are discarded.
func (f *Form) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	if f.resetTimer != nil {
		f.resetTimer.Stop()
		f.resetTimer = nil
	}
	f.mu.Unlock()
	f.cancel()
}

// Context is done once the form is closed. Work done on behalf of the form
// outside Submit should stop when it is.
func (f *Form) Context() context.Context {
	return f.ctx
}

// Closed reports whether Close has been called.
func (f *Form) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func outcomeOf(s State) Outcome {
	switch s {
	case StateSuccess:
		return OutcomeSuccess
	case StateError:
		return OutcomeError
	default:
		return OutcomeNone
	}
}
