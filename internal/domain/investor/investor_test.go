package investor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/investor"
	"github.com/rpggio/capvault/internal/repository/mocks"
)

const addr = "0x00000000000000000000000000000000000000B2"

func TestReputationIsCached(t *testing.T) {
	ctx := context.Background()
	contract := &mocks.Contract{}
	contract.On("GetInvestorReputation", ctx, addr).
		Return(&captable.Reputation{Score: 87, TotalInvestments: 4, IsVerified: true}, nil).Once()

	svc := investor.NewService(contract, time.Minute, nil)
	for i := 0; i < 3; i++ {
		rep, err := svc.Reputation(ctx, addr)
		require.NoError(t, err)
		require.Equal(t, uint64(87), rep.Score)
	}
	contract.AssertNumberOfCalls(t, "GetInvestorReputation", 1)
}

func TestPortfolioInvalidate(t *testing.T) {
	ctx := context.Background()
	contract := &mocks.Contract{}
	contract.On("GetInvestorPortfolio", ctx, addr).Return([]uint64{1}, nil).Once()
	contract.On("GetInvestorPortfolio", ctx, addr).Return([]uint64{1, 2}, nil).Once()

	svc := investor.NewService(contract, time.Minute, nil)
	ids, err := svc.Portfolio(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)

	ids[0] = 99
	ids, err = svc.Portfolio(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)

	svc.Invalidate(addr)
	ids, err = svc.Portfolio(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)
}

func TestEmptyAddress(t *testing.T) {
	svc := investor.NewService(&mocks.Contract{}, 0, nil)

	_, err := svc.Reputation(context.Background(), " ")
	require.ErrorIs(t, err, investor.ErrInvalidInput)
	_, err = svc.Portfolio(context.Background(), "")
	require.ErrorIs(t, err, investor.ErrInvalidInput)
}

func TestReadErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	contract := &mocks.Contract{}
	contract.On("GetInvestorReputation", ctx, addr).Return(nil, errors.New("rpc down")).Once()
	contract.On("GetInvestorReputation", ctx, addr).Return(&captable.Reputation{Score: 1}, nil).Once()

	svc := investor.NewService(contract, time.Minute, nil)
	_, err := svc.Reputation(ctx, addr)
	require.ErrorContains(t, err, "rpc down")

	rep, err := svc.Reputation(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), rep.Score)
}
