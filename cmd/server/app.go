package main

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/capvault/internal/config"
	"github.com/rpggio/capvault/internal/contract"
	"github.com/rpggio/capvault/internal/contract/ethrpc"
	"github.com/rpggio/capvault/internal/contract/simulated"
	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/investor"
	"github.com/rpggio/capvault/internal/domain/submission"
	"github.com/rpggio/capvault/internal/mcp"
	"github.com/rpggio/capvault/internal/sqlite"
)

// chain is the contract plus its event stream.
type chain interface {
	contract.Contract
	contract.EventSource
}

// app holds the wired services shared by every transport.
type app struct {
	logger          *slog.Logger
	db              *sqlite.DB
	store           *captable.Store
	services        mcp.Services
	defaultInvestor string
	closers         []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("failed to prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	c, companyIDs, investmentIDs, err := a.dialChain(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	source := captable.NewContractSource(c, companyIDs, investmentIDs)
	a.store = captable.NewStore(source, logger)
	if err := a.store.Refresh(ctx); err != nil {
		// list_companies reports the error until a refresh succeeds
		logger.Warn("initial company load failed", "error", err)
	}

	// follows contract events, falling back to a refresh every poll
	// interval while no subscription is possible
	watchCtx, cancel := context.WithCancel(context.Background())
	a.closers = append(a.closers, cancel)
	go a.store.Follow(watchCtx, c, cfg.Chain.PollInterval)

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	capTableSvc := captable.NewService(c, logger)
	investorSvc := investor.NewService(c, cfg.Cache.ReputationTTL, logger)
	submissionSvc := submission.NewService(submission.Dependencies{
		Writer:    capTableSvc,
		Journal:   sqlite.NewSubmissionRepository(db),
		Activity:  activitySvc,
		Investors: investorSvc,
	}, submission.Options{
		ConfirmTimeout: cfg.Submission.ConfirmTimeout,
		PollInterval:   cfg.Submission.PollRate,
	}, logger)
	a.closers = append(a.closers, submissionSvc.Close)

	a.services = mcp.Services{
		Companies:   a.store,
		CapTable:    capTableSvc,
		Submissions: submissionSvc,
		Investors:   investorSvc,
		Activity:    activitySvc,
	}
	return a, nil
}

// dialChain connects to the configured node, or starts the simulated
// contract when no RPC URL is set.
func (a *app) dialChain(ctx context.Context, cfg config.Config) (chain, []uint64, []uint64, error) {
	if cfg.Chain.RPCURL == "" {
		sim := simulated.New(simulated.Options{}, a.logger)
		a.defaultInvestor = sim.Account()
		a.logger.Info("using simulated contract", "account", sim.Account())
		return sim, sim.CompanyIDs(), sim.InvestmentIDs(), nil
	}

	client, err := ethrpc.Dial(ctx, ethrpc.Config{
		RPCURL:          cfg.Chain.RPCURL,
		ContractAddress: cfg.Chain.ContractAddress,
		PrivateKey:      cfg.Chain.PrivateKey,
		ChainID:         cfg.Chain.ChainID,
		Confirmations:   cfg.Chain.Confirmations,
	}, a.logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to contract: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.defaultInvestor = client.Account()
	a.logger.Info("connected to contract", "rpc", cfg.Chain.RPCURL, "address", cfg.Chain.ContractAddress)
	return client, cfg.Chain.CompanyIDs, cfg.Chain.InvestmentIDs, nil
}

// quoteStore loads a read-only snapshot for one-off commands. Without an
// RPC URL it serves the built-in data set.
func quoteStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*captable.Store, func(), error) {
	if cfg.Chain.RPCURL == "" {
		store := captable.NewStore(captable.FallbackSource{}, logger)
		return store, func() {}, store.Refresh(ctx)
	}

	client, err := ethrpc.Dial(ctx, ethrpc.Config{
		RPCURL:          cfg.Chain.RPCURL,
		ContractAddress: cfg.Chain.ContractAddress,
		ChainID:         cfg.Chain.ChainID,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to contract: %w", err)
	}
	store := captable.NewStore(captable.NewContractSource(client, cfg.Chain.CompanyIDs, cfg.Chain.InvestmentIDs), logger)
	if err := store.Refresh(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return store, client.Close, nil
}

// mcpServer builds an MCP server over the app's services. Fields of cfg
// that the app owns are filled in.
func (a *app) mcpServer(cfg mcp.Config) *sdkmcp.Server {
	cfg.Services = a.services
	cfg.DefaultInvestor = a.defaultInvestor
	cfg.Version = version
	cfg.Logger = a.logger
	return mcp.NewServer(cfg)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
