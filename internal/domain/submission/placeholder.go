package submission

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	placeholderCiphertextSize = 32
	placeholderProofSize      = 64
)

// PlaceholderEncryptor returns a zeroed ciphertext for every value. It
// stands in until a real confidential-computation scheme is plugged in.
type PlaceholderEncryptor struct{}

// Encrypt returns a zero-filled ciphertext of fixed size regardless of value.
func (PlaceholderEncryptor) Encrypt(ctx context.Context, value decimal.Decimal) ([]byte, error) {
	return make([]byte, placeholderCiphertextSize), nil
}

// PlaceholderProver returns a zeroed proof.
type PlaceholderProver struct{}

// Prove returns a zero-filled proof of fixed size without inspecting the
// ciphertexts.
func (PlaceholderProver) Prove(ctx context.Context, encryptedAmount, encryptedShares []byte) ([]byte, error) {
	return make([]byte, placeholderProofSize), nil
}
