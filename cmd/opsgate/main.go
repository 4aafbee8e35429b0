package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/opsgate/opsgate/internal/audit"
	"github.com/opsgate/opsgate/internal/auth"
	"github.com/opsgate/opsgate/internal/builtin"
	"github.com/opsgate/opsgate/internal/cli"
	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/policy"
	"github.com/opsgate/opsgate/internal/query"
	"github.com/opsgate/opsgate/internal/registry"
	"github.com/opsgate/opsgate/internal/runner"
	"github.com/opsgate/opsgate/internal/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("OPSGATE_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	environment := envOrDefault("OPSGATE_ENV", "development")
	postgresDSN := os.Getenv("OPSGATE_DB_DSN")
	clickhouseDSN := os.Getenv("OPSGATE_CLICKHOUSE_DSN")
	configPath := os.Getenv("OPSGATE_CONFIG")
	operatorToken := os.Getenv("OPSGATE_OPERATOR_TOKEN")
	authCacheTTL := envOrDefaultInt("OPSGATE_AUTH_CACHE_TTL_S", 30)
	catalogCacheTTL := envOrDefaultInt("OPSGATE_CATALOG_CACHE_TTL_S", 60)
	maxRows := envOrDefaultInt("OPSGATE_MAX_ROWS", 1000)

	if postgresDSN == "" {
		logger.Fatal("OPSGATE_DB_DSN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	db, err := sql.Open("pgx", postgresDSN)
	if err != nil {
		logger.Fatal("failed to open postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}

	// Schema resolver + query executor
	resolver := schema.NewPostgresResolver(schema.PostgresResolverConfig{
		DB:       db,
		CacheTTL: catalogCacheTTL,
		Logger:   logger,
	})
	executor := query.NewExecutor(query.ExecutorConfig{
		DB:       db,
		Resolver: resolver,
		Logger:   logger,
		MaxRows:  int64(maxRows),
	})

	entities, err := resolver.Entities(ctx)
	if err != nil {
		logger.Fatal("failed to load entity catalog", zap.Error(err))
	}

	// Audit — ClickHouse or LogWriter fallback
	var writer audit.EventWriter
	if clickhouseDSN != "" {
		chWriter, err := audit.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = audit.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = audit.NewLogWriter(logger)
		logger.Info("no OPSGATE_CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Operator identity — Postgres authenticator, anonymous without a token
	var operator *auth.Operator
	if operatorToken != "" {
		authenticator := auth.NewPostgresAuthenticator(auth.PostgresAuthConfig{
			DB:       db,
			CacheTTL: time.Duration(authCacheTTL) * time.Second,
			Logger:   logger,
		})
		operator, err = authenticator.Authenticate(ctx, operatorToken)
		if err != nil {
			logger.Fatal("operator authentication failed", zap.Error(err))
		}
		logger.Info("operator authenticated", zap.String("operator_id", operator.ID))
	} else {
		logger.Info("no OPSGATE_OPERATOR_TOKEN set, running anonymously")
	}

	// Registry — built-ins plus configured saved queries
	reg := registry.New(logger)
	reg.RegisterAll(
		builtin.NewQuery(executor, entities),
		builtin.NewCount(executor, entities),
		builtin.NewDescribe(resolver, entities),
	)

	environments := policy.Environments{}
	if configPath != "" {
		envs, err := policy.LoadYAMLEnvironments(configPath)
		if err != nil {
			logger.Fatal("failed to load environments config", zap.Error(err))
		}
		environments = envs

		configs, err := registry.LoadYAMLCommands(configPath)
		if err != nil {
			logger.Fatal("failed to load commands config", zap.Error(err))
		}
		registerSavedQueries(reg, configs, executor, logger)
	}

	definitionSource := registry.NewPostgresDefinitionSource(db)
	configs, err := definitionSource.Load(ctx)
	if err != nil {
		logger.Warn("loading command definitions from postgres failed", zap.Error(err))
	} else {
		registerSavedQueries(reg, configs, executor, logger)
	}

	run := runner.New(runner.Config{
		Registry:     reg,
		Environments: environments,
		Events:       writer,
		Logger:       logger,
	})

	app := &cli.App{
		Runner:             run,
		Operator:           operator,
		Logger:             logger,
		DefaultEnvironment: environment,
	}

	if err := cli.NewRootCommand(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func registerSavedQueries(reg *registry.Registry, configs []registry.SavedQueryConfig, executor *query.Executor, logger *zap.Logger) {
	cmds := make([]command.Command, 0, len(configs))
	for _, cfg := range configs {
		cmd, err := builtin.NewSavedQuery(cfg, executor)
		if err != nil {
			logger.Warn("skipping invalid saved query",
				zap.String("name", cfg.Name),
				zap.Error(err),
			)
			continue
		}
		cmds = append(cmds, cmd)
	}
	reg.RegisterAll(cmds...)
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
