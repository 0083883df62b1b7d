package captable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// WriteState tracks the most recent write of one kind.
type WriteState struct {
	Handle  TxHandle `json:"handle,omitempty"`
	Err     string   `json:"error,omitempty"`
	Pending bool     `json:"pending"`
}

// Service dispatches contract writes and tracks their latest state.
type Service struct {
	writer Writer
	logger *slog.Logger

	mu         sync.Mutex
	create     WriteState
	investment WriteState
}

// NewService creates a write service.
func NewService(writer Writer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{writer: writer, logger: logger}
}

// CreateCompany validates req and dispatches createCompany.
func (s *Service) CreateCompany(ctx context.Context, req CreateCompanyRequest) (TxHandle, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Description) == "" {
		return "", fmt.Errorf("%w: name and description are required", ErrInvalidInput)
	}
	if req.TotalShares == 0 || req.InitialValuation.Sign() <= 0 {
		return "", fmt.Errorf("%w: total shares and initial valuation must be positive", ErrInvalidInput)
	}

	return s.track(&s.create, "createCompany", func() (TxHandle, error) {
		return s.writer.CreateCompany(ctx, req)
	})
}

// MakeInvestment dispatches makeInvestment. The encrypted payloads and
// proof are forwarded unmodified and the amount is attached as value.
func (s *Service) MakeInvestment(ctx context.Context, req InvestmentRequest) (TxHandle, error) {
	return s.track(&s.investment, "makeInvestment", func() (TxHandle, error) {
		return s.writer.MakeInvestment(ctx, req)
	})
}

// TransactionStatus reports the progress of a dispatched write.
func (s *Service) TransactionStatus(ctx context.Context, handle TxHandle) (TxStatus, error) {
	if handle == "" {
		return TxStatus{}, fmt.Errorf("%w: transaction handle is required", ErrInvalidInput)
	}
	status, err := s.writer.TransactionStatus(ctx, handle)
	if err != nil {
		return TxStatus{}, fmt.Errorf("checking transaction %s: %w", handle, err)
	}
	return status, nil
}

// CreateState returns the state of the latest createCompany write.
func (s *Service) CreateState() WriteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create
}

// InvestmentState returns the state of the latest makeInvestment write.
func (s *Service) InvestmentState() WriteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.investment
}

func (s *Service) track(state *WriteState, op string, dispatch func() (TxHandle, error)) (TxHandle, error) {
	s.mu.Lock()
	*state = WriteState{Pending: true}
	s.mu.Unlock()

	handle, err := dispatch()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		*state = WriteState{Err: err.Error()}
		s.logger.Error("contract write failed", "op", op, "error", err)
		return "", &WriteError{Op: op, Err: err}
	}
	*state = WriteState{Handle: handle}
	s.logger.Info("contract write dispatched", "op", op, "handle", handle)
	return handle, nil
}
