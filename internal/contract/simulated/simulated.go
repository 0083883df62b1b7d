// Package simulated implements the cap-table contract in memory. Writes
// become final after a configurable number of status polls, at which
// point state changes and events are applied.
package simulated

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/rpggio/capvault/internal/contract"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/repository"
)

// DefaultAccount is the sender used when none is configured.
const DefaultAccount = "0x00000000000000000000000000000000000000A1"

// Options configures a simulated contract.
type Options struct {
	// Account is the sender of every write.
	Account string
	// ConfirmAfter is the number of status polls before a write is final.
	ConfirmAfter int
	Now          func() time.Time
}

type pendingTx struct {
	polls    int
	apply    func() []captable.Event
	events   []captable.Event
	final    bool
	reverted bool
}

// Contract is an in-memory cap-table contract.
type Contract struct {
	account      string
	confirmAfter int
	now          func() time.Time
	logger       *slog.Logger

	mu               sync.Mutex
	companies        map[uint64]captable.Company
	investments      map[uint64]captable.Investment
	investedIn       map[uint64]map[string]bool
	portfolios       map[string][]uint64
	reputations      map[string]captable.Reputation
	txs              map[captable.TxHandle]*pendingTx
	nextCompanyID    uint64
	nextInvestmentID uint64
	nonce            uint64
	failNext         error
	revertNext       bool
	subs             map[int]chan captable.Event
	nextSub          int
}

var _ contract.Contract = (*Contract)(nil)
var _ contract.EventSource = (*Contract)(nil)

// New creates a simulated contract seeded with the built-in data set.
func New(opts Options, logger *slog.Logger) *Contract {
	if opts.Account == "" {
		opts.Account = DefaultAccount
	}
	if opts.ConfirmAfter <= 0 {
		opts.ConfirmAfter = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Contract{
		account:      opts.Account,
		confirmAfter: opts.ConfirmAfter,
		now:          opts.Now,
		logger:       logger,
		companies:    map[uint64]captable.Company{},
		investments:  map[uint64]captable.Investment{},
		investedIn:   map[uint64]map[string]bool{},
		portfolios:   map[string][]uint64{},
		reputations:  map[string]captable.Reputation{},
		txs:          map[captable.TxHandle]*pendingTx{},
		subs:         map[int]chan captable.Event{},
	}

	now := opts.Now().UTC().Truncate(time.Second)
	for _, company := range captable.FallbackCompanies(now) {
		c.companies[company.ID] = company
		c.nextCompanyID = max(c.nextCompanyID, company.ID)
	}
	for _, inv := range captable.FallbackInvestments(now) {
		c.investments[inv.ID] = inv
		key := addressKey(inv.Investor)
		c.portfolios[key] = append(c.portfolios[key], inv.ID)
		c.nextInvestmentID = max(c.nextInvestmentID, inv.ID)
	}
	c.nextCompanyID++
	c.nextInvestmentID++
	return c
}

// Account returns the sender address.
func (c *Contract) Account() string {
	return c.account
}

// FailNextWrite makes the next write return err without dispatching.
func (c *Contract) FailNextWrite(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = err
}

// RevertNextWrite makes the next dispatched write revert when mined.
func (c *Contract) RevertNextWrite() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revertNext = true
}

// CreateCompany dispatches a createCompany write.
func (c *Contract) CreateCompany(ctx context.Context, req captable.CreateCompanyRequest) (captable.TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return "", err
	}

	return c.dispatchLocked(func() []captable.Event {
		id := c.nextCompanyID
		c.nextCompanyID++
		now := c.now().UTC().Truncate(time.Second)
		c.companies[id] = captable.Company{
			ID:               id,
			Name:             req.Name,
			Description:      req.Description,
			TotalShares:      req.TotalShares,
			CurrentValuation: req.InitialValuation,
			TotalRaised:      decimal.Zero,
			IsActive:         true,
			Owner:            c.account,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return []captable.Event{{
			Kind:      captable.EventCompanyCreated,
			CompanyID: id,
			Account:   c.account,
			Name:      req.Name,
		}}
	}), nil
}

// MakeInvestment dispatches a makeInvestment write.
func (c *Contract) MakeInvestment(ctx context.Context, req captable.InvestmentRequest) (captable.TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, err := captable.Value(req.Amount)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return "", err
	}
	company, ok := c.companies[req.CompanyID]
	if !ok || !company.IsActive {
		return "", fmt.Errorf("%w: company %d is not accepting investments", contract.ErrReverted, req.CompanyID)
	}

	return c.dispatchLocked(func() []captable.Event {
		id := c.nextInvestmentID
		c.nextInvestmentID++
		now := c.now().UTC().Truncate(time.Second)
		investor := addressKey(c.account)

		target := c.companies[req.CompanyID]
		c.investments[id] = captable.Investment{
			ID:        id,
			Amount:    req.Amount,
			Shares:    req.Shares,
			Valuation: target.CurrentValuation,
			Investor:  c.account,
			Timestamp: now,
			IsActive:  true,
		}

		target.TotalRaised = target.TotalRaised.Add(req.Amount)
		if c.investedIn[target.ID] == nil {
			c.investedIn[target.ID] = map[string]bool{}
		}
		if !c.investedIn[target.ID][investor] {
			c.investedIn[target.ID][investor] = true
			target.InvestorCount++
		}
		target.UpdatedAt = now
		c.companies[target.ID] = target

		c.portfolios[investor] = append(c.portfolios[investor], id)
		rep := c.reputations[investor]
		rep.TotalInvestments++
		rep.LastUpdated = now
		c.reputations[investor] = rep

		amount := uint64(math.MaxUint32)
		if value.IsUint64() && value.Uint64() < amount {
			amount = value.Uint64()
		}
		return []captable.Event{{
			Kind:         captable.EventInvestmentMade,
			CompanyID:    target.ID,
			InvestmentID: id,
			Account:      c.account,
			Amount:       amount,
		}}
	}), nil
}

// GetCompanyInfo returns the company with id.
func (c *Contract) GetCompanyInfo(ctx context.Context, companyID uint64) (*captable.Company, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	company, ok := c.companies[companyID]
	if !ok {
		return nil, fmt.Errorf("company %d: %w", companyID, repository.ErrNotFound)
	}
	return &company, nil
}

// GetInvestmentInfo returns the investment with id.
func (c *Contract) GetInvestmentInfo(ctx context.Context, investmentID uint64) (*captable.Investment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inv, ok := c.investments[investmentID]
	if !ok {
		return nil, fmt.Errorf("investment %d: %w", investmentID, repository.ErrNotFound)
	}
	return &inv, nil
}

// GetInvestorReputation returns the investor's reputation; unknown
// investors have a zero reputation.
func (c *Contract) GetInvestorReputation(ctx context.Context, investor string) (*captable.Reputation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rep := c.reputations[addressKey(investor)]
	return &rep, nil
}

// GetInvestorPortfolio returns the investment ids of investor.
func (c *Contract) GetInvestorPortfolio(ctx context.Context, investor string) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64{}, c.portfolios[addressKey(investor)]...), nil
}

// CompanyIDs returns the ids of every company.
func (c *Contract) CompanyIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint64, 0, len(c.companies))
	for id := uint64(1); id < c.nextCompanyID; id++ {
		if _, ok := c.companies[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// InvestmentIDs returns the ids of every investment.
func (c *Contract) InvestmentIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint64, 0, len(c.investments))
	for id := uint64(1); id < c.nextInvestmentID; id++ {
		if _, ok := c.investments[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// TransactionStatus counts a poll of handle and applies the write once
// it has been polled ConfirmAfter times.
func (c *Contract) TransactionStatus(ctx context.Context, handle captable.TxHandle) (captable.TxStatus, error) {
	if err := ctx.Err(); err != nil {
		return captable.TxStatus{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.txs[handle]
	if !ok {
		return captable.TxStatus{}, fmt.Errorf("transaction %s: %w", handle, repository.ErrNotFound)
	}
	tx.polls++
	if !tx.final && tx.polls >= c.confirmAfter {
		tx.final = true
		if !tx.reverted {
			tx.events = tx.apply()
			for i := range tx.events {
				tx.events[i].Handle = handle
				c.emitLocked(tx.events[i])
			}
		}
		c.logger.Debug("simulated transaction mined", "handle", handle, "reverted", tx.reverted)
	}

	return captable.TxStatus{
		Handle:        handle,
		Confirming:    !tx.final,
		Final:         tx.final && !tx.reverted,
		Reverted:      tx.reverted,
		Confirmations: uint64(tx.polls),
		Events:        append([]captable.Event(nil), tx.events...),
	}, nil
}

// WatchEvents streams events of applied writes until ctx ends. Events
// are dropped for a subscriber that falls behind.
func (c *Contract) WatchEvents(ctx context.Context) (<-chan captable.Event, error) {
	ch := make(chan captable.Event, 16)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		close(ch)
		c.mu.Unlock()
	}()
	return ch, nil
}

func (c *Contract) takeFailure() error {
	err := c.failNext
	c.failNext = nil
	return err
}

func (c *Contract) dispatchLocked(apply func() []captable.Event) captable.TxHandle {
	c.nonce++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.nonce)
	handle := captable.TxHandle(crypto.Keccak256Hash([]byte(c.account), buf[:]).Hex())

	c.txs[handle] = &pendingTx{apply: apply, reverted: c.revertNext}
	c.revertNext = false
	c.logger.Debug("simulated transaction dispatched", "handle", handle)
	return handle
}

// emitLocked round-trips ev through the ABI codec so subscribers see
// exactly what a node would deliver.
func (c *Contract) emitLocked(ev captable.Event) {
	lg, err := contract.EncodeEvent(ev)
	if err != nil {
		c.logger.Warn("encoding simulated event", "kind", ev.Kind, "error", err)
		return
	}
	decoded, ok, err := contract.DecodeEvent(lg)
	if err != nil || !ok {
		c.logger.Warn("decoding simulated event", "kind", ev.Kind, "error", err)
		return
	}
	for _, ch := range c.subs {
		select {
		case ch <- decoded:
		default:
			c.logger.Warn("dropping simulated event for slow subscriber", "kind", ev.Kind)
		}
	}
}

func addressKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
