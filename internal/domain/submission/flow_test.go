package submission_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/submission"
	"github.com/rpggio/capvault/internal/repository/mocks"
)

const investor = "0x00000000000000000000000000000000000000B2"

func listings() []captable.Listing {
	return captable.Listings(captable.Snapshot{Companies: captable.FallbackCompanies(time.Now())})
}

func newService(contract *mocks.Contract) *submission.Service {
	return submission.NewService(submission.Dependencies{
		Writer: captable.NewService(contract, nil),
	}, submission.Options{PollInterval: time.Millisecond}, nil)
}

// pending makes every status poll report the transaction as confirming.
func pending(contract *mocks.Contract) {
	contract.On("TransactionStatus", mock.Anything, mock.Anything).
		Return(captable.TxStatus{Confirming: true}, nil).Maybe()
}

// slowWriter dispatches immediately and reports finality once final is set.
type slowWriter struct {
	final atomic.Bool
}

func (w *slowWriter) MakeInvestment(context.Context, captable.InvestmentRequest) (captable.TxHandle, error) {
	return "0xabc", nil
}

func (w *slowWriter) TransactionStatus(_ context.Context, handle captable.TxHandle) (captable.TxStatus, error) {
	final := w.final.Load()
	return captable.TxStatus{Handle: handle, Final: final, Confirming: !final}, nil
}

func startFlow(t *testing.T, svc *submission.Service) *submission.Flow {
	t.Helper()
	f, err := svc.Start(context.Background(), investor, listings()[0])
	require.NoError(t, err)
	return f
}

func TestFlow_EditAmountSetsShares(t *testing.T) {
	f := startFlow(t, newService(&mocks.Contract{}))

	require.NoError(t, f.EditAmount("100000"))
	view := f.View()
	require.Equal(t, "2222", view.Shares)
	require.Equal(t, submission.StateIdle, view.State)
	require.Equal(t, uint64(2222), view.Summary.Shares)
}

func TestFlow_SubmitWithEmptyFieldMakesNoExternalCall(t *testing.T) {
	contract := &mocks.Contract{}
	encryptor := &mocks.Encryptor{}
	svc := submission.NewService(submission.Dependencies{
		Writer:    captable.NewService(contract, nil),
		Encryptor: encryptor,
	}, submission.Options{}, nil)
	f := startFlow(t, svc)

	require.NoError(t, f.EditShares(""))
	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, submission.ErrMissingInput)
	require.Equal(t, submission.StateIdle, f.State())

	encryptor.AssertNotCalled(t, "Encrypt", mock.Anything, mock.Anything)
	contract.AssertNotCalled(t, "MakeInvestment", mock.Anything, mock.Anything)
}

func TestFlow_RejectedWriteFailsAndKeepsValues(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.Anything).
		Return(captable.TxHandle(""), errors.New("user rejected request"))
	f := startFlow(t, newService(contract))
	require.NoError(t, f.EditAmount("100000"))

	_, err := f.Submit(context.Background())
	require.Error(t, err)

	var werr *captable.WriteError
	require.ErrorAs(t, err, &werr)
	view := f.View()
	require.Equal(t, submission.StateFailed, view.State)
	require.Equal(t, "user rejected request", view.Failure)
	require.Equal(t, "100000", view.Amount)
	require.Equal(t, "2222", view.Shares)
}

func TestFlow_SubmitSendsPlaceholderPayloads(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.MatchedBy(func(req captable.InvestmentRequest) bool {
		return req.CompanyID == 1 &&
			req.Amount.Equal(decimal.NewFromInt(100_000)) &&
			req.Shares == 2222 &&
			len(req.EncryptedAmount) == 32 &&
			len(req.EncryptedShares) == 32 &&
			len(req.Proof) == 64
	})).Return(captable.TxHandle("0xabc"), nil)
	pending(contract)
	f := startFlow(t, newService(contract))
	require.NoError(t, f.EditAmount("100000"))

	handle, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, captable.TxHandle("0xabc"), handle)
	require.Equal(t, submission.StateAwaitingConfirmation, f.State())
	contract.AssertExpectations(t)
}

func TestFlow_ConfirmClearsForm(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.Anything).Return(captable.TxHandle("0xabc"), nil)
	contract.On("TransactionStatus", mock.Anything, captable.TxHandle("0xabc")).
		Return(captable.TxStatus{Handle: "0xabc", Confirming: true}, nil).Once()
	contract.On("TransactionStatus", mock.Anything, captable.TxHandle("0xabc")).
		Return(captable.TxStatus{Handle: "0xabc", Final: true, Confirmations: 1}, nil).Once()
	svc := newService(contract)
	f := startFlow(t, svc)
	require.NoError(t, f.EditAmount("100000"))

	_, err := f.Submit(context.Background())
	require.NoError(t, err)

	state, err := f.AwaitConfirmation(context.Background())
	require.NoError(t, err)
	require.Equal(t, submission.StateConfirmed, state)

	view := f.View()
	require.Equal(t, "", view.Amount)
	require.Equal(t, "", view.Shares)
	contract.AssertExpectations(t)

	// a confirmed flow is closed and no longer tracked
	require.ErrorIs(t, f.EditAmount("1"), submission.ErrFlowClosed)
	_, err = svc.Flow(f.ID())
	require.ErrorIs(t, err, submission.ErrFlowNotFound)
	require.Zero(t, svc.OpenFlows())
}

func TestFlow_RevertedTransactionFails(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.Anything).Return(captable.TxHandle("0xabc"), nil)
	contract.On("TransactionStatus", mock.Anything, captable.TxHandle("0xabc")).
		Return(captable.TxStatus{Handle: "0xabc", Reverted: true}, nil)
	f := startFlow(t, newService(contract))
	require.NoError(t, f.EditAmount("100000"))

	_, err := f.Submit(context.Background())
	require.NoError(t, err)

	state, err := f.AwaitConfirmation(context.Background())
	require.ErrorIs(t, err, submission.ErrReverted)
	require.Equal(t, submission.StateFailed, state)
	require.Equal(t, "100000", f.View().Amount)
}

func TestFlow_ConfirmsAfterCallerStopsWaiting(t *testing.T) {
	writer := &slowWriter{}
	invalidator := &mocks.CacheInvalidator{}
	invalidator.On("Invalidate", investor).Return()
	svc := submission.NewService(submission.Dependencies{
		Writer:    writer,
		Investors: invalidator,
	}, submission.Options{PollInterval: time.Millisecond}, nil)
	defer svc.Close()
	f := startFlow(t, svc)
	require.NoError(t, f.EditAmount("100000"))
	_, err := f.Submit(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	state, err := f.AwaitConfirmation(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, submission.StateAwaitingConfirmation, state)

	writer.final.Store(true)
	require.Eventually(t, func() bool { return f.State() == submission.StateConfirmed }, time.Second, time.Millisecond)

	state, err = f.AwaitConfirmation(context.Background())
	require.NoError(t, err)
	require.Equal(t, submission.StateConfirmed, state)
	invalidator.AssertCalled(t, "Invalidate", investor)
	_, err = svc.Flow(f.ID())
	require.ErrorIs(t, err, submission.ErrFlowNotFound)
}

func TestFlow_ConfirmTimeoutFails(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.Anything).Return(captable.TxHandle("0xabc"), nil).Once()
	contract.On("MakeInvestment", mock.Anything, mock.Anything).Return(captable.TxHandle("0xdef"), nil).Once()
	pending(contract)
	svc := submission.NewService(submission.Dependencies{Writer: captable.NewService(contract, nil)},
		submission.Options{PollInterval: time.Millisecond, ConfirmTimeout: 20 * time.Millisecond}, nil)
	defer svc.Close()
	f := startFlow(t, svc)
	require.NoError(t, f.EditAmount("100000"))
	_, err := f.Submit(context.Background())
	require.NoError(t, err)

	state, err := f.AwaitConfirmation(context.Background())
	require.ErrorIs(t, err, submission.ErrConfirmTimeout)
	require.Equal(t, submission.StateFailed, state)

	view := f.View()
	require.Contains(t, view.Failure, "confirmation timed out")
	require.Equal(t, "100000", view.Amount)

	// the flow is usable again
	require.NoError(t, f.EditAmount("200000"))
	handle, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, captable.TxHandle("0xdef"), handle)
	require.Equal(t, submission.StateAwaitingConfirmation, f.State())
}

func TestFlow_TimedOutFlowCanBeCancelled(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.Anything).Return(captable.TxHandle("0xabc"), nil)
	pending(contract)
	svc := submission.NewService(submission.Dependencies{Writer: captable.NewService(contract, nil)},
		submission.Options{PollInterval: time.Millisecond, ConfirmTimeout: 10 * time.Millisecond}, nil)
	defer svc.Close()
	f := startFlow(t, svc)
	require.NoError(t, f.EditAmount("100000"))
	_, err := f.Submit(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.State() == submission.StateFailed }, time.Second, time.Millisecond)
	require.NoError(t, svc.Cancel(f.ID()))
}

func TestFlow_CloseStopsWatching(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.Anything).Return(captable.TxHandle("0xabc"), nil)
	pending(contract)
	svc := newService(contract)
	f := startFlow(t, svc)
	require.NoError(t, f.EditAmount("100000"))
	_, err := f.Submit(context.Background())
	require.NoError(t, err)

	svc.Close()
	state, err := f.AwaitConfirmation(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, submission.StateAwaitingConfirmation, state)
}

func TestFlow_AwaitWithoutSubmission(t *testing.T) {
	f := startFlow(t, newService(&mocks.Contract{}))

	state, err := f.AwaitConfirmation(context.Background())
	require.ErrorIs(t, err, submission.ErrNotAwaiting)
	require.Equal(t, submission.StateIdle, state)
}

func TestFlow_InFlightGuard(t *testing.T) {
	release := make(chan struct{})
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(captable.TxHandle("0xabc"), nil).Once()
	pending(contract)
	f := startFlow(t, newService(contract))
	require.NoError(t, f.EditAmount("100000"))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.State() == submission.StateSubmitting }, time.Second, time.Millisecond)

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, submission.ErrInFlight)
	require.ErrorIs(t, f.EditAmount("5"), submission.ErrInFlight)
	require.ErrorIs(t, f.Cancel(), submission.ErrNotCancellable)

	close(release)
	require.NoError(t, <-done)
	require.ErrorIs(t, f.Cancel(), submission.ErrNotCancellable)
	contract.AssertNumberOfCalls(t, "MakeInvestment", 1)
}

func TestFlow_DispatchIgnoresCallerCancellation(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(captable.TxHandle("0xabc"), nil)
	pending(contract)
	f := startFlow(t, newService(contract))
	require.NoError(t, f.EditAmount("100000"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, submission.StateAwaitingConfirmation, f.State())
}

func TestFlow_ResubmitAfterFailure(t *testing.T) {
	contract := &mocks.Contract{}
	contract.On("MakeInvestment", mock.Anything, mock.Anything).
		Return(captable.TxHandle(""), errors.New("insufficient funds")).Once()
	contract.On("MakeInvestment", mock.Anything, mock.Anything).
		Return(captable.TxHandle("0xdef"), nil).Once()
	pending(contract)
	f := startFlow(t, newService(contract))
	require.NoError(t, f.EditAmount("100000"))

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, submission.StateFailed, f.State())

	handle, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, captable.TxHandle("0xdef"), handle)
	require.Empty(t, f.View().Failure)
}

func TestFlow_InvalidAmountFailsBeforeDispatch(t *testing.T) {
	contract := &mocks.Contract{}
	f := startFlow(t, newService(contract))
	require.NoError(t, f.EditShares("10"))
	require.NoError(t, f.EditAmount("lots"))

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, submission.StateFailed, f.State())
	contract.AssertNotCalled(t, "MakeInvestment", mock.Anything, mock.Anything)
}
