package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/macrofactor/internal/external/fred"
	"github.com/wonny/macrofactor/internal/external/htmltable"
	"github.com/wonny/macrofactor/internal/external/localfile"
	"github.com/wonny/macrofactor/internal/external/nasdaq"
	"github.com/wonny/macrofactor/internal/external/pgprices"
	"github.com/wonny/macrofactor/internal/external/ptax"
	"github.com/wonny/macrofactor/internal/external/sgs"
	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/pkg/config"
	"github.com/wonny/macrofactor/pkg/database"
	"github.com/wonny/macrofactor/pkg/httputil"
	"github.com/wonny/macrofactor/pkg/logger"
	"github.com/wonny/macrofactor/pkg/redis"
)

var (
	// Global flags
	dataDir string
	noCache bool
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "macro",
	Short: "Macro factor regression - 거시 팩터 회귀 분석",
	Long: `Macro factor regression CLI

일간 수익률을 거시 팩터(원자재, 금리, 환율, 물가, 선물 포지션)로 회귀합니다.
월간/주간 지표는 거래일 인덱스에 일간 환산값으로 분배됩니다.

Usage:
  go run ./cmd/macro [command]

Examples:
  go run ./cmd/macro run configs/models/petr4_macro.yaml
  go run ./cmd/macro fetch fred DGS10 --start 2024-01-01
  go run ./cmd/macro align sgs 433 --calendar bvmf --start 2024-01-01 --end 2024-06-30 --verify
  go run ./cmd/macro calendar --mic xnys --start 2024-01-01 --end 2024-01-31
  go run ./cmd/macro check-env`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return execute(rootCmd)
}

func execute(cmd *cobra.Command) error {
	out = cmd.OutOrStdout()

	err := cmd.Execute()
	if err == nil {
		return nil
	}

	var missing *config.MissingCredentialsError
	if errors.As(err, &missing) {
		PrintError("Missing required environment variables:")
		fmt.Fprint(out, missing.Enumerated())
		return err
	}
	PrintError(err.Error())
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".", "base directory for localfile series")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the Redis response cache")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// app is everything a command needs to fetch series
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *provider.Registry
	closers  []func()
}

// newApp loads config, checks the credentials the given providers need and
// wires every provider. The caller must call Close.
func newApp(ctx context.Context, providers []string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	if err := cfg.RequireCredentials(providers...); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	httpClient := httputil.New(cfg, log)
	a.registry = provider.NewRegistry(
		fred.NewClient(httpClient, cfg.FRED.APIKey, cfg.FRED.BaseURL, log),
		sgs.NewClient(httpClient, cfg.SGS.BaseURL, log),
		ptax.NewClient(httpClient, cfg.PTAX.BaseURL, log),
		nasdaq.NewClient(httpClient, cfg.Nasdaq.APIKey, cfg.Nasdaq.BaseURL, log),
		localfile.NewReader(dataDir, log),
		htmltable.NewClient(httpClient, log),
	)

	// DB는 pgprices를 쓰는 경우에만 연결
	if uses(providers, pgprices.Name) {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.registry.Register(pgprices.NewRepository(db.Pool, log))
	}

	if !noCache {
		a.wireCache(ctx)
	}
	return a, nil
}

// wireCache wraps every provider with the Redis cache when it is enabled.
// An unreachable Redis only costs the cache, never the run.
func (a *app) wireCache(ctx context.Context) {
	rc, err := redis.New(ctx, a.cfg)
	if err != nil {
		a.log.WithError(err).Warn("Redis unavailable, running without cache")
		return
	}
	if !rc.Enabled() {
		return
	}
	a.closers = append(a.closers, func() { _ = rc.Close() })

	cache := redis.NewCache(rc, "macro")
	a.registry.Wrap(func(f provider.Fetcher) provider.Fetcher {
		return provider.Cached(f, cache, rc.TTL(), a.log)
	})
	a.log.WithField("ttl", rc.TTL().String()).Debug("Response cache enabled")
}

// Close releases the database and cache connections
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func uses(providers []string, name string) bool {
	for _, p := range providers {
		if p == name {
			return true
		}
	}
	return false
}
