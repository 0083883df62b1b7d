// Package ethrpc binds the cap-table contract to an EVM node over
// JSON-RPC.
package ethrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/rpggio/capvault/internal/contract"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/repository"
)

// Config describes how to reach the contract.
type Config struct {
	RPCURL          string
	ContractAddress string
	// PrivateKey is a hex secp256k1 key. Without it the client is read-only.
	PrivateKey    string
	ChainID       int64
	Confirmations uint64
}

// Client implements contract.Contract against a live node.
type Client struct {
	eth           *ethclient.Client
	bound         *bind.BoundContract
	address       common.Address
	auth          *bind.TransactOpts
	confirmations uint64
	logger        *slog.Logger
}

var _ contract.Contract = (*Client)(nil)
var _ contract.EventSource = (*Client)(nil)

// Dial connects to the node at cfg.RPCURL.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", cfg.RPCURL, err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	c := &Client{
		eth:           eth,
		bound:         bind.NewBoundContract(address, contract.ABI(), eth, eth, eth),
		address:       address,
		confirmations: max(cfg.Confirmations, 1),
		logger:        logger,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		chainID := big.NewInt(cfg.ChainID)
		if cfg.ChainID == 0 {
			if chainID, err = eth.ChainID(ctx); err != nil {
				eth.Close()
				return nil, fmt.Errorf("reading chain id: %w", err)
			}
		}
		if c.auth, err = bind.NewKeyedTransactorWithChainID(key, chainID); err != nil {
			eth.Close()
			return nil, fmt.Errorf("creating transactor: %w", err)
		}
		logger.Info("contract signer configured", "account", c.auth.From.Hex(), "chain_id", chainID)
	}
	return c, nil
}

// Account returns the signer address, or "" for a read-only client.
func (c *Client) Account() string {
	if c.auth == nil {
		return ""
	}
	return c.auth.From.Hex()
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// CreateCompany sends createCompany.
func (c *Client) CreateCompany(ctx context.Context, req captable.CreateCompanyRequest) (captable.TxHandle, error) {
	valuation, err := captable.Value(req.InitialValuation)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, nil, "createCompany",
		req.Name, req.Description, new(big.Int).SetUint64(req.TotalShares), valuation)
}

// MakeInvestment sends makeInvestment with the amount attached as value.
func (c *Client) MakeInvestment(ctx context.Context, req captable.InvestmentRequest) (captable.TxHandle, error) {
	value, err := captable.Value(req.Amount)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, value, "makeInvestment",
		new(big.Int).SetUint64(req.CompanyID), req.EncryptedAmount, req.EncryptedShares, req.Proof)
}

func (c *Client) transact(ctx context.Context, value *big.Int, method string, args ...any) (captable.TxHandle, error) {
	if c.auth == nil {
		return "", contract.ErrReadOnly
	}
	opts := *c.auth
	opts.Context = ctx
	opts.Value = value

	tx, err := c.bound.Transact(&opts, method, args...)
	if err != nil {
		return "", err
	}
	c.logger.Debug("transaction sent", "method", method, "hash", tx.Hash().Hex())
	return captable.TxHandle(tx.Hash().Hex()), nil
}

// GetCompanyInfo calls getCompanyInfo. A zero owner means the company
// does not exist.
func (c *Client) GetCompanyInfo(ctx context.Context, companyID uint64) (*captable.Company, error) {
	out, err := c.call(ctx, "getCompanyInfo", new(big.Int).SetUint64(companyID))
	if err != nil {
		return nil, err
	}
	owner := out[8].(common.Address)
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("company %d: %w", companyID, repository.ErrNotFound)
	}
	return &captable.Company{
		ID:               companyID,
		Name:             out[0].(string),
		Description:      out[1].(string),
		TotalShares:      toUint(out[2]),
		CurrentValuation: toDecimal(out[3]),
		TotalRaised:      toDecimal(out[4]),
		InvestorCount:    toUint(out[5]),
		IsActive:         out[6].(bool),
		IsVerified:       out[7].(bool),
		Owner:            owner.Hex(),
		CreatedAt:        toTime(out[9]),
		UpdatedAt:        toTime(out[10]),
	}, nil
}

// GetInvestmentInfo calls getInvestmentInfo. A zero investor means the
// investment does not exist.
func (c *Client) GetInvestmentInfo(ctx context.Context, investmentID uint64) (*captable.Investment, error) {
	out, err := c.call(ctx, "getInvestmentInfo", new(big.Int).SetUint64(investmentID))
	if err != nil {
		return nil, err
	}
	investor := out[3].(common.Address)
	if investor == (common.Address{}) {
		return nil, fmt.Errorf("investment %d: %w", investmentID, repository.ErrNotFound)
	}
	return &captable.Investment{
		ID:        investmentID,
		Amount:    toDecimal(out[0]),
		Shares:    toUint(out[1]),
		Valuation: toDecimal(out[2]),
		Investor:  investor.Hex(),
		Timestamp: toTime(out[4]),
		IsActive:  out[5].(bool),
	}, nil
}

// GetInvestorReputation calls getInvestorReputation.
func (c *Client) GetInvestorReputation(ctx context.Context, investor string) (*captable.Reputation, error) {
	addr, err := parseAddress(investor)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, "getInvestorReputation", addr)
	if err != nil {
		return nil, err
	}
	return &captable.Reputation{
		Score:            toUint(out[0]),
		TotalInvestments: toUint(out[1]),
		SuccessfulExits:  toUint(out[2]),
		IsVerified:       out[3].(bool),
		LastUpdated:      toTime(out[4]),
	}, nil
}

// GetInvestorPortfolio calls getInvestorPortfolio.
func (c *Client) GetInvestorPortfolio(ctx context.Context, investor string) ([]uint64, error) {
	addr, err := parseAddress(investor)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, "getInvestorPortfolio", addr)
	if err != nil {
		return nil, err
	}
	raw := out[0].([]uint32)
	ids := make([]uint64, len(raw))
	for i, id := range raw {
		ids[i] = uint64(id)
	}
	return ids, nil
}

func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	var out []any
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	return out, nil
}

// TransactionStatus reads the receipt of handle. A missing receipt means
// the transaction is still pending.
func (c *Client) TransactionStatus(ctx context.Context, handle captable.TxHandle) (captable.TxStatus, error) {
	status := captable.TxStatus{Handle: handle}
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(string(handle)))
	if errors.Is(err, ethereum.NotFound) {
		status.Confirming = true
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("reading receipt: %w", err)
	}

	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return status, fmt.Errorf("reading block number: %w", err)
	}
	if mined := receipt.BlockNumber.Uint64(); head >= mined {
		status.Confirmations = head - mined + 1
	}

	if receipt.Status == types.ReceiptStatusFailed {
		status.Reverted = true
		return status, nil
	}
	if status.Confirmations < c.confirmations {
		status.Confirming = true
		return status, nil
	}

	status.Final = true
	for _, lg := range receipt.Logs {
		if lg.Address != c.address {
			continue
		}
		ev, ok, err := contract.DecodeEvent(*lg)
		if err != nil {
			c.logger.Warn("decoding receipt log", "handle", handle, "error", err)
			continue
		}
		if ok {
			status.Events = append(status.Events, ev)
		}
	}
	return status, nil
}

// WatchEvents subscribes to the contract's logs. The node must support
// subscriptions (a websocket or IPC endpoint).
func (c *Client) WatchEvents(ctx context.Context) (<-chan captable.Event, error) {
	logs := make(chan types.Log, 16)
	sub, err := c.eth.SubscribeFilterLogs(ctx, ethereum.FilterQuery{Addresses: []common.Address{c.address}}, logs)
	if err != nil {
		return nil, fmt.Errorf("subscribing to contract logs: %w", err)
	}

	out := make(chan captable.Event)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					c.logger.Error("contract log subscription ended", "error", err)
				}
				return
			case lg := <-logs:
				if lg.Removed {
					continue
				}
				ev, ok, err := contract.DecodeEvent(lg)
				if err != nil {
					c.logger.Warn("decoding contract log", "tx", lg.TxHash.Hex(), "error", err)
					continue
				}
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", repository.ErrInvalidInput, s)
	}
	return common.HexToAddress(s), nil
}

func toUint(v any) uint64 {
	n, ok := v.(*big.Int)
	if !ok || !n.IsUint64() {
		return 0
	}
	return n.Uint64()
}

func toDecimal(v any) decimal.Decimal {
	n, ok := v.(*big.Int)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, 0)
}

func toTime(v any) time.Time {
	n, ok := v.(*big.Int)
	if !ok || !n.IsInt64() {
		return time.Time{}
	}
	return time.Unix(n.Int64(), 0).UTC()
}
