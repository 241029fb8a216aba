package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/macrofactor/internal/modelconfig"
	"github.com/wonny/macrofactor/pkg/config"
	"github.com/wonny/macrofactor/pkg/database"
	"github.com/wonny/macrofactor/pkg/redis"
)

// checkEnvCmd represents the check-env command
var checkEnvCmd = &cobra.Command{
	Use:   "check-env",
	Short: "환경변수(API 키) 및 연결 확인",
	Long: `Provider가 요구하는 환경변수를 확인합니다.
누락된 변수가 있으면 번호 목록으로 출력하고 exit 1 로 종료합니다.

이 명령어는:
- --providers 또는 --model 에서 사용하는 provider 결정
- 필요한 API 키 확인 (FRED_API_KEY, NASDAQ_DATA_LINK_API_KEY)
- --db: PostgreSQL 연결 및 Health Check
- --redis: Redis 연결 확인

Example:
  go run ./cmd/macro check-env
  go run ./cmd/macro check-env --providers fred
  go run ./cmd/macro check-env --model configs/models/petr4_macro.yaml --db`,
	Args: cobra.NoArgs,
	RunE: runCheckEnv,
}

var (
	// Check-env flags
	checkProviders string
	checkModel     string
	checkDB        bool
	checkRedis     bool
)

func init() {
	rootCmd.AddCommand(checkEnvCmd)

	checkEnvCmd.Flags().StringVar(&checkProviders, "providers", "fred,nasdaq", "comma-separated providers to check")
	checkEnvCmd.Flags().StringVar(&checkModel, "model", "", "check the providers a model file uses instead")
	checkEnvCmd.Flags().BoolVar(&checkDB, "db", false, "also connect to DATABASE_URL")
	checkEnvCmd.Flags().BoolVar(&checkRedis, "redis", false, "also connect to Redis")
}

func runCheckEnv(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	providers := splitList(checkProviders)
	if checkModel != "" {
		model, err := modelconfig.Load(checkModel)
		if err != nil {
			return err
		}
		providers = model.Providers()
	}

	PrintHeader("Environment check")
	PrintKeyValue("ENV", cfg.Env, 10)
	PrintKeyValue("Providers", strings.Join(providers, ", "), 10)
	PrintSeparator()

	if err := cfg.RequireCredentials(providers...); err != nil {
		return err
	}
	PrintSuccess("All required credentials are set")

	ctx := cmd.Context()
	if checkDB {
		if err := checkDatabase(ctx, cfg); err != nil {
			return err
		}
	}
	if checkRedis {
		if err := checkCache(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

func checkDatabase(ctx context.Context, cfg *config.Config) error {
	PrintInfo("Database: " + maskURL(cfg.Database.URL))
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	PrintSuccess("Database healthy")
	PrintKeyValue("Response time", status.ResponseTime.String(), 14)
	PrintKeyValue("Connections", fmt.Sprintf("%d total, %d idle, %d max", status.TotalConns, status.IdleConns, status.MaxConns), 14)
	return nil
}

func checkCache(ctx context.Context, cfg *config.Config) error {
	if !cfg.Redis.Enabled {
		PrintInfo("Redis disabled (REDIS_ENABLED=false)")
		return nil
	}
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rc.Close()
	PrintSuccess(fmt.Sprintf("Redis reachable at %s:%s (ttl %s)", cfg.Redis.Host, cfg.Redis.Port, rc.TTL()))
	return nil
}

// maskURL hides the password of a connection URL for display
func maskURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
