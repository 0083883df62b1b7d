package main

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// TestMain lets the test binary act as the server when re-executed by
// serverCommand.
func TestMain(m *testing.M) {
	if os.Getenv("CAPVAULT_TEST_SERVE") == "1" {
		rootCmd.SetArgs([]string{"serve", "--transport", "stdio"})
		if err := rootCmd.Execute(); err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func serverCommand(ctx context.Context, t *testing.T) *exec.Cmd {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)

	cmd := exec.CommandContext(ctx, exe)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(),
		"CAPVAULT_TEST_SERVE=1",
		"CAPVAULT_CONFIG_PATH=",
		"CAPVAULT_DB_PATH=:memory:",
		"CAPVAULT_LOG_LEVEL=debug",
	)
	return cmd
}

func TestStdioProtocol(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: serverCommand(ctx, t)}, nil)
	require.NoError(t, err, "failed to connect to server")
	defer session.Close()

	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.Equal(t, "capvault", initResult.ServerInfo.Name)
		require.Equal(t, version, initResult.ServerInfo.Version)
	})

	t.Run("ListTools", func(t *testing.T) {
		tools, err := session.ListTools(ctx, nil)
		require.NoError(t, err)
		require.Len(t, tools.Tools, 15)
	})

	t.Run("QuoteInvestment", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "quote_investment",
			Arguments: map[string]any{"company_id": 1, "amount": "100000"},
		})
		require.NoError(t, err)
		require.False(t, result.IsError, "quote_investment returned error: %v", result)

		text, ok := result.Content[0].(*sdkmcp.TextContent)
		require.True(t, ok)
		var q struct {
			Shares string `json:"shares"`
		}
		require.NoError(t, json.Unmarshal([]byte(text.Text), &q))
		require.Equal(t, "2222", q.Shares)
	})
}
