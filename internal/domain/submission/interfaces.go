package submission

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
)

// Encryptor turns a plaintext value into an opaque ciphertext.
type Encryptor interface {
	Encrypt(ctx context.Context, value decimal.Decimal) ([]byte, error)
}

// ProofGenerator proves the ciphertexts are well formed.
type ProofGenerator interface {
	Prove(ctx context.Context, encryptedAmount, encryptedShares []byte) ([]byte, error)
}

// Writer dispatches investments and reports their progress.
type Writer interface {
	MakeInvestment(ctx context.Context, req captable.InvestmentRequest) (captable.TxHandle, error)
	TransactionStatus(ctx context.Context, handle captable.TxHandle) (captable.TxStatus, error)
}

// Journal persists the latest state of each flow.
type Journal interface {
	Upsert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, opts ListOptions) ([]Record, error)
}

// ActivityRecorder appends to the audit log.
type ActivityRecorder interface {
	Record(ctx context.Context, investor string, typ activity.ActivityType, submissionID string, companyID uint64, summary string, details any)
}

// CacheInvalidator drops cached investor reads once an investment lands.
type CacheInvalidator interface {
	Invalidate(address string)
}
