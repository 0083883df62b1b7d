// Package testserver wires the full stack over the simulated contract
// for tests.
package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/contract/simulated"
	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/investor"
	"github.com/rpggio/capvault/internal/domain/submission"
	"github.com/rpggio/capvault/internal/mcp"
	"github.com/rpggio/capvault/internal/sqlite"
	"github.com/rpggio/capvault/internal/transport"
)

// Investor is the address the default token resolves to.
const Investor = simulated.DefaultAccount

// Token is the bearer token accepted by the HTTP server.
const Token = "test-token"

// TestServer is a running stack backed by an in-memory database.
type TestServer struct {
	Server      *httptest.Server
	DB          *sqlite.DB
	Contract    *simulated.Contract
	Store       *captable.Store
	Submissions *submission.Service
	MCP         *sdkmcp.Server
	Tokens      mcp.TokenMap
}

// Options adjusts the stack. Zero values keep the defaults.
type Options struct {
	// ConfirmAfter is the number of status polls before a write is final.
	ConfirmAfter int
	// ConfirmTimeout bounds how long a submission is watched.
	ConfirmTimeout time.Duration
}

// New starts a stack. Companies are loaded before it returns and contract
// events keep the store current until the test ends.
func New(t *testing.T) *TestServer {
	t.Helper()
	return NewWithOptions(t, Options{})
}

// NewWithOptions starts a stack adjusted by opts.
func NewWithOptions(t *testing.T, opts Options) *TestServer {
	t.Helper()
	if opts.ConfirmAfter <= 0 {
		opts.ConfirmAfter = 1
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	contract := simulated.New(simulated.Options{ConfirmAfter: opts.ConfirmAfter}, nil)
	source := captable.NewContractSource(contract, contract.CompanyIDs(), contract.InvestmentIDs())
	store := captable.NewStore(source, nil)
	require.NoError(t, store.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	go store.Follow(ctx, contract, 10*time.Millisecond)

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	capTableSvc := captable.NewService(contract, nil)
	investorSvc := investor.NewService(contract, time.Minute, nil)
	submissionSvc := submission.NewService(submission.Dependencies{
		Writer:    capTableSvc,
		Journal:   sqlite.NewSubmissionRepository(db),
		Activity:  activitySvc,
		Investors: investorSvc,
	}, submission.Options{PollInterval: time.Millisecond, ConfirmTimeout: opts.ConfirmTimeout}, nil)

	services := mcp.Services{
		Companies:   store,
		CapTable:    capTableSvc,
		Submissions: submissionSvc,
		Investors:   investorSvc,
		Activity:    activitySvc,
	}
	tokens := mcp.TokenMap{Token: Investor}

	// in-memory sessions carry no headers, so MCP runs as the default
	// investor and only /rpc checks tokens
	mcpServer := mcp.NewServer(mcp.Config{
		Services:        services,
		TransportMode:   "http",
		DefaultInvestor: Investor,
	})
	streamable := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server { return mcpServer }, nil)

	server := httptest.NewServer(transport.NewServer(transport.Options{
		MCP:   streamable,
		Tools: mcp.NewHandler(services, nil),
		Auth:  transport.AuthMiddleware(tokens),
	}))

	t.Cleanup(func() {
		server.Close()
		submissionSvc.Close()
		cancel()
		_ = db.Close()
	})

	return &TestServer{
		Server:      server,
		DB:          db,
		Contract:    contract,
		Store:       store,
		Submissions: submissionSvc,
		MCP:         mcpServer,
		Tokens:      tokens,
	}
}

// Connect opens an MCP client session over in-memory transports.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := ts.MCP.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
		serverSession.Close()
	})
	return session
}

// CallTool calls a tool and returns its text payload and error flag.
func CallTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) (json.RawMessage, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content, "tool %s returned no content", name)

	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "tool %s returned non-text content", name)
	return json.RawMessage(text.Text), result.IsError
}
