package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/capvault/internal/config"
	"github.com/rpggio/capvault/internal/domain/quote"
	"github.com/rpggio/capvault/internal/format"
	"github.com/rpggio/capvault/internal/mcp"
	"github.com/rpggio/capvault/internal/sqlite"
	"github.com/rpggio/capvault/internal/transport"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "capvault",
	Short:         "Confidential cap-table client",
	Long:          `capvault reads companies and investments from the cap-table contract, prices investments and drives investment submissions over MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if mode, _ := cmd.Flags().GetString("transport"); mode != "" {
			cfg.Transport.Mode = mode
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		logger, closeLog := newLogger(cfg)
		defer closeLog()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if cfg.Transport.Mode == "stdio" {
			return runStdioMode(ctx, logger, a)
		}
		return runHTTPMode(ctx, logger, cfg, a)
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote <company-id>",
	Short: "Price an investment by amount or shares",
	Long: `Price an investment against the current company valuation.

Examples:
  capvault quote 1 --amount 100000
  capvault quote 1 --shares 2222`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, _ := cmd.Flags().GetString("amount")
		shares, _ := cmd.Flags().GetString("shares")
		if (amount == "") == (shares == "") {
			return fmt.Errorf("set exactly one of --amount or --shares")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		cfg.Log.Level = "error"
		logger, closeLog := newLogger(cfg)
		defer closeLog()

		store, closeStore, err := quoteStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		var id uint64
		if _, err := fmt.Sscan(args[0], &id); err != nil {
			return fmt.Errorf("invalid company id %q", args[0])
		}
		company, err := store.Company(id)
		if err != nil {
			return err
		}

		form := quote.NewForm(quote.Quoter{TotalShares: company.TotalShares, CurrentValuation: company.CurrentValuation})
		if amount != "" {
			form.EditAmount(amount)
		} else {
			form.EditShares(shares)
		}
		summary := form.Summary()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s valuation, %s shares)\n",
			company.Name, format.Millions(company.CurrentValuation), format.Shares(company.TotalShares))
		fmt.Fprintf(out, "amount:    %s\n", format.AmountDefault(summary.Amount))
		fmt.Fprintf(out, "shares:    %s\n", format.Shares(summary.Shares))
		fmt.Fprintf(out, "ownership: %s\n", format.Percentage(summary.Ownership))
		if summary.Shares == 0 {
			fmt.Fprintln(out, "note: amount buys no whole share")
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		status, err := db.MigrationStatus()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "current: %d\nlatest:  %d\n", status.CurrentVersion, status.LatestVersion)
		if status.Dirty {
			fmt.Fprintln(out, "state:   dirty")
		} else if status.Pending {
			fmt.Fprintln(out, "state:   pending")
		} else {
			fmt.Fprintln(out, "state:   up to date")
		}
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.RunMigrations(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	rootCmd.Version = version

	serveCmd.Flags().String("transport", "", "transport mode (http|stdio), overrides config")
	quoteCmd.Flags().String("amount", "", "investment amount")
	quoteCmd.Flags().String("shares", "", "number of shares")

	migrateCmd.AddCommand(migrateStatusCmd, migrateUpCmd)
	rootCmd.AddCommand(serveCmd, quoteCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openDB() (*sqlite.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("failed to prepare database path: %w", err)
	}
	return sqlite.New(cfg.DB.Path)
}

func runStdioMode(ctx context.Context, logger *slog.Logger, a *app) error {
	logger.Info("starting stdio transport", "auth", "disabled", "investor", a.defaultInvestor)

	server := a.mcpServer(mcp.Config{TransportMode: "stdio"})
	// Run blocks until stdin closes or ctx is canceled
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server error: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, cfg config.Config, a *app) error {
	tokens := mcp.TokenMap(cfg.Auth.Tokens)
	server := a.mcpServer(mcp.Config{
		Resolver:      tokens,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: "http",
	})

	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	opts := transport.Options{
		MCP:             mcpHandler,
		Tools:           mcp.NewHandler(a.services, logger),
		DefaultInvestor: a.defaultInvestor,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		Logger:          logger,
	}
	if cfg.Auth.Enabled {
		opts.Auth = transport.AuthMiddleware(tokens)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "auth", cfg.Auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}

// newLogger builds the process logger. In stdio mode logs go to stderr to
// keep stdout clean for JSON-RPC.
func newLogger(cfg config.Config) (*slog.Logger, func()) {
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	closeLog := func() {}
	if cfg.Log.Path != "" {
		file, err := openCappedLog(cfg.Log.Path, int64(cfg.Log.MaxSizeMB)<<20)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			logWriter = file
			closeLog = func() { file.Close() }
		}
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(logWriter, opts)), closeLog
	}
	return slog.New(slog.NewTextHandler(logWriter, opts)), closeLog
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
