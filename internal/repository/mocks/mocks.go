package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/submission"
)

// Contract is a mock for contract.Contract.
type Contract struct {
	mock.Mock
}

func (m *Contract) GetCompanyInfo(ctx context.Context, companyID uint64) (*captable.Company, error) {
	args := m.Called(ctx, companyID)
	if c, ok := args.Get(0).(*captable.Company); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Contract) GetInvestmentInfo(ctx context.Context, investmentID uint64) (*captable.Investment, error) {
	args := m.Called(ctx, investmentID)
	if inv, ok := args.Get(0).(*captable.Investment); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Contract) CreateCompany(ctx context.Context, req captable.CreateCompanyRequest) (captable.TxHandle, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(captable.TxHandle), args.Error(1)
}

func (m *Contract) MakeInvestment(ctx context.Context, req captable.InvestmentRequest) (captable.TxHandle, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(captable.TxHandle), args.Error(1)
}

func (m *Contract) TransactionStatus(ctx context.Context, handle captable.TxHandle) (captable.TxStatus, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(captable.TxStatus), args.Error(1)
}

func (m *Contract) GetInvestorReputation(ctx context.Context, investor string) (*captable.Reputation, error) {
	args := m.Called(ctx, investor)
	if r, ok := args.Get(0).(*captable.Reputation); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Contract) GetInvestorPortfolio(ctx context.Context, investor string) ([]uint64, error) {
	args := m.Called(ctx, investor)
	if ids, ok := args.Get(0).([]uint64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

// Source is a mock for captable.Source.
type Source struct {
	mock.Mock
}

func (m *Source) FetchCompanies(ctx context.Context) ([]captable.Company, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]captable.Company); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Source) FetchInvestments(ctx context.Context) ([]captable.Investment, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]captable.Investment); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, investor string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, investor, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, investor string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, investor, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRecorder is a mock for submission.ActivityRecorder.
type ActivityRecorder struct {
	mock.Mock
}

func (m *ActivityRecorder) Record(ctx context.Context, investor string, typ activity.ActivityType, submissionID string, companyID uint64, summary string, details any) {
	m.Called(ctx, investor, typ, submissionID, companyID, summary, details)
}

// SubmissionJournal is a mock for submission.Journal.
type SubmissionJournal struct {
	mock.Mock
}

func (m *SubmissionJournal) Upsert(ctx context.Context, rec *submission.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *SubmissionJournal) Get(ctx context.Context, id string) (*submission.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*submission.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SubmissionJournal) List(ctx context.Context, opts submission.ListOptions) ([]submission.Record, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]submission.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Encryptor is a mock for submission.Encryptor.
type Encryptor struct {
	mock.Mock
}

func (m *Encryptor) Encrypt(ctx context.Context, value decimal.Decimal) ([]byte, error) {
	args := m.Called(ctx, value)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProofGenerator is a mock for submission.ProofGenerator.
type ProofGenerator struct {
	mock.Mock
}

func (m *ProofGenerator) Prove(ctx context.Context, encryptedAmount, encryptedShares []byte) ([]byte, error) {
	args := m.Called(ctx, encryptedAmount, encryptedShares)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

// CacheInvalidator is a mock for submission.CacheInvalidator.
type CacheInvalidator struct {
	mock.Mock
}

func (m *CacheInvalidator) Invalidate(address string) {
	m.Called(address)
}
