package contract_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/contract"
	"github.com/rpggio/capvault/internal/domain/captable"
)

const owner = "0x00000000000000000000000000000000000000A1"

func TestABI_ExposesContractSurface(t *testing.T) {
	parsed := contract.ABI()
	for _, name := range []string{"createCompany", "makeInvestment", "getCompanyInfo", "getInvestmentInfo", "getInvestorReputation", "getInvestorPortfolio"} {
		_, ok := parsed.Methods[name]
		require.True(t, ok, name)
	}
	require.True(t, parsed.Methods["makeInvestment"].IsPayable())
	require.Len(t, parsed.Events, 2)
}

func TestDecodeEvent_CompanyCreated(t *testing.T) {
	want := captable.Event{
		Kind:      captable.EventCompanyCreated,
		CompanyID: 3,
		Account:   common.HexToAddress(owner).Hex(),
		Name:      "Helios Grid",
		Handle:    captable.TxHandle(common.HexToHash("0xabc").Hex()),
	}
	lg, err := contract.EncodeEvent(want)
	require.NoError(t, err)

	got, ok, err := contract.DecodeEvent(lg)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestDecodeEvent_InvestmentMade(t *testing.T) {
	want := captable.Event{
		Kind:         captable.EventInvestmentMade,
		CompanyID:    1,
		InvestmentID: 7,
		Account:      common.HexToAddress(owner).Hex(),
		Amount:       100000,
	}
	lg, err := contract.EncodeEvent(want)
	require.NoError(t, err)

	got, ok, err := contract.DecodeEvent(lg)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestDecodeEvent_IgnoresForeignLogs(t *testing.T) {
	_, ok, err := contract.DecodeEvent(types.Log{})
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = contract.DecodeEvent(types.Log{Topics: []common.Hash{common.HexToHash("0x01")}})
	require.NoError(t, err)
	require.False(t, ok)
}
