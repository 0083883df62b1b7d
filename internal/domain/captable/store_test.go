package captable_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/repository"
	"github.com/rpggio/capvault/internal/repository/mocks"
)

func TestStore_RefreshFromFallback(t *testing.T) {
	store := captable.NewStore(captable.FallbackSource{}, nil)
	require.Empty(t, store.Snapshot().Companies)

	require.NoError(t, store.Refresh(context.Background()))

	state := store.State()
	require.False(t, state.Loading)
	require.Empty(t, state.Err)
	require.Len(t, state.Snapshot.Companies, 2)
	require.Len(t, state.Snapshot.Investments, 1)
	require.Equal(t, uint64(2222), state.Snapshot.Investments[0].Shares)

	c, err := store.Company(2)
	require.NoError(t, err)
	require.Equal(t, "CryptoSecure", c.Name)

	_, err = store.Company(42)
	require.ErrorIs(t, err, captable.ErrCompanyNotFound)
}

func TestStore_FailedRefreshKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	source := &mocks.Source{}
	companies := captable.FallbackCompanies(time.Now())
	source.On("FetchCompanies", ctx).Return(companies, nil).Once()
	source.On("FetchInvestments", ctx).Return([]captable.Investment{}, nil).Once()
	source.On("FetchCompanies", ctx).Return(nil, errors.New("rpc unavailable")).Once()

	store := captable.NewStore(source, nil)
	require.NoError(t, store.Refresh(ctx))

	err := store.Refresh(ctx)
	require.Error(t, err)

	state := store.State()
	require.Equal(t, "rpc unavailable", state.Err)
	require.Len(t, state.Snapshot.Companies, 2)
	source.AssertExpectations(t)
}

func TestStore_SuccessfulRefreshClearsError(t *testing.T) {
	ctx := context.Background()
	source := &mocks.Source{}
	source.On("FetchCompanies", ctx).Return(nil, errors.New("boom")).Once()
	source.On("FetchCompanies", ctx).Return([]captable.Company{}, nil).Once()
	source.On("FetchInvestments", ctx).Return(nil, nil).Once()

	store := captable.NewStore(source, nil)
	require.Error(t, store.Refresh(ctx))
	require.Equal(t, "boom", store.State().Err)

	require.NoError(t, store.Refresh(ctx))
	require.Empty(t, store.State().Err)
	require.NotNil(t, store.Snapshot().Investments)
}

func TestStore_Subscribe(t *testing.T) {
	store := captable.NewStore(captable.FallbackSource{}, nil)

	var calls int
	var last captable.State
	unsubscribe := store.Subscribe(func(s captable.State) {
		calls++
		last = s
	})

	require.NoError(t, store.Refresh(context.Background()))
	require.Equal(t, 1, calls)
	require.Len(t, last.Snapshot.Companies, 2)

	unsubscribe()
	unsubscribe()
	require.NoError(t, store.Refresh(context.Background()))
	require.Equal(t, 1, calls)
}

func TestStore_WatchRefreshesOnEvents(t *testing.T) {
	store := captable.NewStore(captable.FallbackSource{}, nil)

	var mu sync.Mutex
	refreshes := 0
	store.Subscribe(func(captable.State) {
		mu.Lock()
		refreshes++
		mu.Unlock()
	})

	events := make(chan captable.Event, 3)
	events <- captable.Event{Kind: captable.EventCompanyCreated, CompanyID: 3}
	events <- captable.Event{Kind: "Transfer"}
	events <- captable.Event{Kind: captable.EventInvestmentMade, CompanyID: 1}
	close(events)

	store.Watch(context.Background(), events)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, refreshes)
}

// fakeStream hands out a fresh channel per subscription, or fails every
// subscription when err is set.
type fakeStream struct {
	mu   sync.Mutex
	err  error
	subs []chan captable.Event
}

func (s *fakeStream) WatchEvents(context.Context) (<-chan captable.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		s.subs = append(s.subs, nil)
		return nil, s.err
	}
	ch := make(chan captable.Event, 1)
	s.subs = append(s.subs, ch)
	return ch, nil
}

func (s *fakeStream) subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *fakeStream) sub(i int) chan captable.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[i]
}

func countRefreshes(store *captable.Store) func() int {
	var mu sync.Mutex
	n := 0
	store.Subscribe(func(captable.State) {
		mu.Lock()
		n++
		mu.Unlock()
	})
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}

func TestStore_FollowResubscribesAfterStreamEnds(t *testing.T) {
	store := captable.NewStore(captable.FallbackSource{}, nil)
	refreshes := countRefreshes(store)
	stream := &fakeStream{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Follow(ctx, stream, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return stream.subscriptions() == 1 }, time.Second, time.Millisecond)
	close(stream.sub(0))

	// the drop triggers a catch-up refresh and a new subscription
	require.Eventually(t, func() bool { return stream.subscriptions() == 2 }, time.Second, time.Millisecond)
	require.Equal(t, 1, refreshes())

	stream.sub(1) <- captable.Event{Kind: captable.EventInvestmentMade, CompanyID: 1}
	require.Eventually(t, func() bool { return refreshes() == 2 }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestStore_FollowPollsWithoutSubscription(t *testing.T) {
	store := captable.NewStore(captable.FallbackSource{}, nil)
	refreshes := countRefreshes(store)
	stream := &fakeStream{err: errors.New("subscriptions not supported")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Follow(ctx, stream, time.Millisecond)

	require.Eventually(t, func() bool { return refreshes() >= 3 }, time.Second, time.Millisecond)
	require.GreaterOrEqual(t, stream.subscriptions(), 3)
	require.Len(t, store.Snapshot().Companies, 2)
}

func TestContractSource_SkipsUnknownIDs(t *testing.T) {
	ctx := context.Background()
	reader := &mocks.Contract{}
	reader.On("GetCompanyInfo", ctx, uint64(1)).Return(&captable.Company{ID: 1, Name: "NeuralFlow AI"}, nil)
	reader.On("GetCompanyInfo", ctx, uint64(5)).Return(nil, repository.ErrNotFound)
	reader.On("GetInvestmentInfo", ctx, uint64(1)).Return(nil, errors.New("timeout"))

	source := captable.NewContractSource(reader, []uint64{1, 5}, []uint64{1})
	companies, err := source.FetchCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	require.Equal(t, "NeuralFlow AI", companies[0].Name)

	_, err = source.FetchInvestments(ctx)
	require.ErrorContains(t, err, "timeout")
}

func TestStore_WatchDiscoversNewCompanies(t *testing.T) {
	ctx := context.Background()
	reader := &mocks.Contract{}
	reader.On("GetCompanyInfo", ctx, uint64(1)).Return(&captable.Company{ID: 1}, nil)
	reader.On("GetCompanyInfo", ctx, uint64(3)).Return(&captable.Company{ID: 3, Name: "Helios Grid"}, nil)

	store := captable.NewStore(captable.NewContractSource(reader, []uint64{1}, nil), nil)
	require.NoError(t, store.Refresh(ctx))
	require.Len(t, store.Snapshot().Companies, 1)

	events := make(chan captable.Event, 1)
	events <- captable.Event{Kind: captable.EventCompanyCreated, CompanyID: 3}
	close(events)
	store.Watch(ctx, events)

	c, err := store.Company(3)
	require.NoError(t, err)
	require.Equal(t, "Helios Grid", c.Name)
}
