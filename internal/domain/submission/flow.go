package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/quote"
)

// Flow drives one investment from form entry to confirmation. It is
// bound to a copy of the company taken when the flow was opened.
type Flow struct {
	id       string
	investor string
	company  captable.Company
	deps     *deps

	mu         sync.Mutex
	state      State
	form       *quote.Form
	handle     captable.TxHandle
	failure    string
	settled    chan struct{}
	settleErr  error
	sentAmount string
	sentShares string
	closed     bool
	createdAt  time.Time
	updatedAt  time.Time
}

type deps struct {
	writer      Writer
	encryptor   Encryptor
	prover      ProofGenerator
	journal     Journal
	recorder    ActivityRecorder
	investors   CacheInvalidator
	opts        Options
	logger      *slog.Logger
	now         func() time.Time
	base        context.Context
	onConfirmed func(f *Flow)
}

// View is a point-in-time copy of a flow's state.
type View struct {
	ID          string            `json:"id"`
	Investor    string            `json:"investor"`
	CompanyID   uint64            `json:"company_id"`
	CompanyName string            `json:"company_name"`
	State       State             `json:"state"`
	Amount      string            `json:"amount"`
	Shares      string            `json:"shares"`
	Summary     quote.Summary     `json:"summary"`
	Handle      captable.TxHandle `json:"tx_handle,omitempty"`
	Failure     string            `json:"failure,omitempty"`
}

type sealed struct {
	amount decimal.Decimal
	shares uint64

	encAmount []byte
	encShares []byte
	proof     []byte
}

func newFlow(id, investor string, company captable.Company, d *deps) *Flow {
	now := d.now()
	return &Flow{
		id:       id,
		investor: investor,
		company:  company,
		deps:     d,
		state:    StateIdle,
		form: quote.NewForm(quote.Quoter{
			TotalShares:      company.TotalShares,
			CurrentValuation: company.CurrentValuation,
		}),
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the flow id.
func (f *Flow) ID() string {
	return f.id
}

// Company returns the company copy the flow was opened with.
func (f *Flow) Company() captable.Company {
	return f.company
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// View returns a copy of the flow's state.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		ID:          f.id,
		Investor:    f.investor,
		CompanyID:   f.company.ID,
		CompanyName: f.company.Name,
		State:       f.state,
		Amount:      f.form.Amount(),
		Shares:      f.form.Shares(),
		Summary:     f.form.Summary(),
		Handle:      f.handle,
		Failure:     f.failure,
	}
}

// EditAmount updates the amount field and recomputes shares.
func (f *Flow) EditAmount(text string) error {
	return f.edit(func() { f.form.EditAmount(text) })
}

// EditShares updates the shares field and recomputes the amount.
func (f *Flow) EditShares(text string) error {
	return f.edit(func() { f.form.EditShares(text) })
}

func (f *Flow) edit(apply func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFlowClosed
	}
	if f.state.InFlight() {
		return ErrInFlight
	}
	apply()
	f.updatedAt = f.deps.now()
	return nil
}

// Submit validates the form, encrypts the values, generates a proof and
// dispatches the investment. It returns once the transaction is
// dispatched and the flow has started watching it; use AwaitConfirmation
// to wait for the outcome. Dispatch is not interrupted by ctx
// cancellation.
func (f *Flow) Submit(ctx context.Context) (captable.TxHandle, error) {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return "", ErrFlowClosed
	case f.state.InFlight():
		f.mu.Unlock()
		return "", ErrInFlight
	}
	if f.state.Terminal() {
		f.state = StateIdle
		f.handle = ""
		f.failure = ""
		f.settled = nil
		f.settleErr = nil
	}
	if !f.form.Filled() {
		f.mu.Unlock()
		return "", ErrMissingInput
	}
	f.state = StateValidating
	f.sentAmount = f.form.Amount()
	f.sentShares = f.form.Shares()
	f.updatedAt = f.deps.now()
	rec := f.recordLocked()
	f.mu.Unlock()

	f.deps.recorder.Record(ctx, f.investor, activity.TypeSubmissionStarted, f.id, f.company.ID,
		fmt.Sprintf("investment in %s started", f.company.Name),
		map[string]string{"amount": rec.Amount, "shares": rec.Shares})
	f.publish(ctx, StateIdle, rec)

	payload, err := f.seal(ctx)
	if err != nil {
		return "", f.fail(ctx, err)
	}

	f.transition(ctx, StateSubmitting, nil)
	// a dispatched transaction cannot be recalled, so caller cancellation
	// must not abandon it half way
	handle, err := f.deps.writer.MakeInvestment(context.WithoutCancel(ctx), captable.InvestmentRequest{
		CompanyID:       f.company.ID,
		Amount:          payload.amount,
		Shares:          payload.shares,
		EncryptedAmount: payload.encAmount,
		EncryptedShares: payload.encShares,
		Proof:           payload.proof,
	})
	if err != nil {
		return "", f.fail(ctx, err)
	}

	settled := make(chan struct{})
	f.transition(ctx, StateAwaitingConfirmation, func() {
		f.handle = handle
		f.settled = settled
	})
	go f.watch(handle, settled)
	return handle, nil
}

func (f *Flow) seal(ctx context.Context) (sealed, error) {
	f.mu.Lock()
	amount, shares, err := f.form.Values()
	f.mu.Unlock()
	if err != nil {
		return sealed{}, err
	}

	encAmount, err := f.deps.encryptor.Encrypt(ctx, amount)
	if err != nil {
		return sealed{}, fmt.Errorf("encrypting amount: %w", err)
	}
	encShares, err := f.deps.encryptor.Encrypt(ctx, decimal.NewFromBigInt(new(big.Int).SetUint64(shares), 0))
	if err != nil {
		return sealed{}, fmt.Errorf("encrypting shares: %w", err)
	}
	proof, err := f.deps.prover.Prove(ctx, encAmount, encShares)
	if err != nil {
		return sealed{}, fmt.Errorf("generating proof: %w", err)
	}
	return sealed{amount: amount, shares: shares, encAmount: encAmount, encShares: encShares, proof: proof}, nil
}

// AwaitConfirmation blocks until the dispatched transaction settles or
// ctx ends. The flow keeps watching the transaction if ctx ends first.
func (f *Flow) AwaitConfirmation(ctx context.Context) (State, error) {
	f.mu.Lock()
	settled, state := f.settled, f.state
	f.mu.Unlock()
	if settled == nil {
		return state, ErrNotAwaiting
	}

	select {
	case <-settled:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.state, f.settleErr
	case <-ctx.Done():
		return f.State(), fmt.Errorf("waiting for confirmation: %w", ctx.Err())
	}
}

// watch polls handle until the transaction is final or reverted. After
// ConfirmTimeout the flow fails with ErrConfirmTimeout and can be
// resubmitted. settled is closed once the outcome is recorded.
func (f *Flow) watch(handle captable.TxHandle, settled chan struct{}) {
	defer close(settled)

	ctx := f.deps.base
	if f.deps.opts.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.deps.opts.ConfirmTimeout)
		defer cancel()
	}

	interval := f.deps.opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			// the deadline falls before the next poll
			<-ctx.Done()
			f.expire(ctx, handle)
			return
		}
		status, err := f.deps.writer.TransactionStatus(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				f.expire(ctx, handle)
				return
			}
			f.deps.logger.Warn("polling transaction status", "submission_id", f.id, "handle", handle, "error", err)
			continue
		}
		switch {
		case status.Reverted:
			f.settle(f.fail(ctx, ErrReverted))
			return
		case status.Final:
			f.confirm(ctx, handle, status)
			return
		}
	}
}

// confirm moves the flow to confirmed, clears the form and closes the
// flow. A new investment needs a new flow.
func (f *Flow) confirm(ctx context.Context, handle captable.TxHandle, status captable.TxStatus) {
	f.transition(ctx, StateConfirmed, func() {
		f.form.Reset()
		f.closed = true
	})
	f.deps.recorder.Record(ctx, f.investor, activity.TypeSubmissionConfirmed, f.id, f.company.ID,
		fmt.Sprintf("investment in %s confirmed", f.company.Name),
		map[string]any{"handle": handle, "confirmations": status.Confirmations})
	f.deps.investors.Invalidate(f.investor)
	if f.deps.onConfirmed != nil {
		f.deps.onConfirmed(f)
	}
	f.settle(nil)
}

// expire handles the watch context ending. A passed ConfirmTimeout fails
// the flow; a service shutdown leaves it awaiting confirmation.
func (f *Flow) expire(ctx context.Context, handle captable.TxHandle) {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		f.deps.logger.Info("confirmation watch stopped", "submission_id", f.id, "handle", handle)
		f.settle(fmt.Errorf("waiting for %s: %w", handle, ctx.Err()))
		return
	}
	err := fmt.Errorf("%w after %s", ErrConfirmTimeout, f.deps.opts.ConfirmTimeout)
	f.settle(f.fail(context.WithoutCancel(ctx), err))
}

func (f *Flow) settle(err error) {
	f.mu.Lock()
	f.settleErr = err
	f.mu.Unlock()
}

// Cancel closes the flow. It is refused while a submission is running.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.InFlight() {
		return ErrNotCancellable
	}
	f.closed = true
	f.form.Reset()
	return nil
}

// fail moves the flow to failed keeping the form, and returns err.
func (f *Flow) fail(ctx context.Context, err error) error {
	msg := err.Error()
	var werr *captable.WriteError
	if errors.As(err, &werr) {
		msg = werr.Cause()
	}
	f.transition(ctx, StateFailed, func() { f.failure = msg })
	f.deps.recorder.Record(ctx, f.investor, activity.TypeSubmissionFailed, f.id, f.company.ID, msg, nil)
	f.deps.logger.Warn("submission failed", "submission_id", f.id, "error", err)
	return err
}

func (f *Flow) transition(ctx context.Context, to State, mutate func()) {
	f.mu.Lock()
	from := f.state
	f.state = to
	if mutate != nil {
		mutate()
	}
	f.updatedAt = f.deps.now()
	rec := f.recordLocked()
	f.mu.Unlock()

	f.publish(ctx, from, rec)
}

// publish records a transition into rec.State in the activity log and
// the journal.
func (f *Flow) publish(ctx context.Context, from State, rec Record) {
	f.deps.logger.Debug("submission transition", "submission_id", f.id, "from", from, "to", rec.State)
	f.deps.recorder.Record(ctx, f.investor, activity.TypeStateTransition, f.id, f.company.ID,
		fmt.Sprintf("%s -> %s", from, rec.State), map[string]State{"from": from, "to": rec.State})
	if err := f.deps.journal.Upsert(context.WithoutCancel(ctx), &rec); err != nil {
		f.deps.logger.Warn("journaling submission", "submission_id", f.id, "error", err)
	}
}

func (f *Flow) recordLocked() Record {
	amount, shares := f.form.Amount(), f.form.Shares()
	if f.state.InFlight() || f.state.Terminal() {
		amount, shares = f.sentAmount, f.sentShares
	}
	return Record{
		ID:          f.id,
		Investor:    f.investor,
		CompanyID:   f.company.ID,
		CompanyName: f.company.Name,
		State:       f.state,
		Amount:      amount,
		Shares:      shares,
		TxHandle:    string(f.handle),
		Failure:     f.failure,
		CreatedAt:   f.createdAt,
		UpdatedAt:   f.updatedAt,
	}
}
