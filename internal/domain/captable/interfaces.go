package captable

import "context"

// Source produces fresh company and investment snapshots.
type Source interface {
	FetchCompanies(ctx context.Context) ([]Company, error)
	FetchInvestments(ctx context.Context) ([]Investment, error)
}

// Reader reads single records from the contract.
type Reader interface {
	GetCompanyInfo(ctx context.Context, companyID uint64) (*Company, error)
	GetInvestmentInfo(ctx context.Context, investmentID uint64) (*Investment, error)
}

// Writer dispatches contract writes.
type Writer interface {
	CreateCompany(ctx context.Context, req CreateCompanyRequest) (TxHandle, error)
	MakeInvestment(ctx context.Context, req InvestmentRequest) (TxHandle, error)
	TransactionStatus(ctx context.Context, handle TxHandle) (TxStatus, error)
}

// EventStream subscribes to contract events. The channel is closed when
// the subscription ends.
type EventStream interface {
	WatchEvents(ctx context.Context) (<-chan Event, error)
}
