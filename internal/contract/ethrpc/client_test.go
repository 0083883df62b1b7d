package ethrpc

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/contract"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/repository"
)

const (
	contractAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	// well-known development key, never funded on a public network
	devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

func TestDial_RejectsBadAddress(t *testing.T) {
	_, err := Dial(context.Background(), Config{RPCURL: "http://127.0.0.1:8545", ContractAddress: "0x..."}, nil)
	require.ErrorContains(t, err, "invalid contract address")
}

func TestDial_RejectsBadKey(t *testing.T) {
	_, err := Dial(context.Background(), Config{
		RPCURL:          "http://127.0.0.1:8545",
		ContractAddress: contractAddr,
		PrivateKey:      "not-a-key",
		ChainID:         31337,
	}, nil)
	require.ErrorContains(t, err, "parsing private key")
}

func TestReadOnlyClientRefusesWrites(t *testing.T) {
	c, err := Dial(context.Background(), Config{RPCURL: "http://127.0.0.1:8545", ContractAddress: contractAddr}, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.MakeInvestment(context.Background(), captable.InvestmentRequest{CompanyID: 1, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, contract.ErrReadOnly)

	_, err = c.MakeInvestment(context.Background(), captable.InvestmentRequest{CompanyID: 1, Amount: decimal.RequireFromString("1.5")})
	require.ErrorIs(t, err, captable.ErrFractionalValue)
}

func TestSignerFromKey(t *testing.T) {
	c, err := Dial(context.Background(), Config{
		RPCURL:          "http://127.0.0.1:8545",
		ContractAddress: contractAddr,
		PrivateKey:      "0x" + devKey,
		ChainID:         31337,
		Confirmations:   0,
	}, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.auth)
	require.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), c.auth.From)
	require.Equal(t, uint64(1), c.confirmations)
}

func TestConversions(t *testing.T) {
	require.Equal(t, uint64(42), toUint(big.NewInt(42)))
	require.Equal(t, uint64(0), toUint("42"))
	require.True(t, decimal.NewFromInt(45_000_000).Equal(toDecimal(big.NewInt(45_000_000))))
	require.Equal(t, time.Unix(1792281600, 0).UTC(), toTime(big.NewInt(1792281600)))
	require.True(t, toTime(nil).IsZero())

	_, err := parseAddress("0x...")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
	addr, err := parseAddress(contractAddr)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(contractAddr), addr)
}
