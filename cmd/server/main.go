package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FreePeak/db-query-proxy/internal/auth"
	"github.com/FreePeak/db-query-proxy/internal/config"
	"github.com/FreePeak/db-query-proxy/internal/domain/entities"
	"github.com/FreePeak/db-query-proxy/internal/interfaces/api"
	"github.com/FreePeak/db-query-proxy/internal/logger"
	"github.com/FreePeak/db-query-proxy/internal/repository"
	"github.com/FreePeak/db-query-proxy/internal/server"
	"github.com/FreePeak/db-query-proxy/internal/usecase"
	"github.com/FreePeak/db-query-proxy/pkg/db"
	"github.com/FreePeak/db-query-proxy/pkg/dbtools"
)

type cmdServe struct {
	flagPort     int
	flagLogLevel string
	flagEnvFile  string
}

func main() {
	c := &cmdServe{}

	app := &cobra.Command{
		Use:   "db-query-proxy",
		Short: "Generic query proxy for a Postgres database",
		Long: `Accepts JSON query requests on POST /query and runs them as single
parameterized statements. Mutating actions require a bearer token.`,
		SilenceUsage: true,
		RunE:         c.run,
	}

	app.Flags().IntVar(&c.flagPort, "port", 0, "Server port (overrides SERVER_PORT)")
	app.Flags().StringVar(&c.flagLogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
	app.Flags().StringVar(&c.flagEnvFile, "env-file", "", "Path to an env file loaded before reading the environment")

	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}

func (c *cmdServe) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(c.flagEnvFile)
	if err != nil {
		return err
	}
	c.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Initialize(cfg.LogLevel)
	logger.Info("Starting query proxy on port %d (auth mode %s)", cfg.ServerPort, cfg.AuthConfig.Mode)

	database, err := db.NewDatabase(databaseConfig(cfg.DBConfig))
	if err != nil {
		return err
	}
	if err := database.Connect(); err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("Error closing database: %v", err)
		}
	}()
	logger.Debug("Database: %s", database.ConnectionString())

	verifier, err := newVerifier(cmd.Context(), cfg.AuthConfig)
	if err != nil {
		return err
	}

	store := repository.NewSQLStore(database, dbtools.NewPerformanceAnalyzer(cfg.DBConfig.SlowQueryThreshold))
	queries := usecase.NewQueryUseCase(store, columnAliases(cfg.ColumnAliases))
	srv := server.New(
		server.Config{Port: cfg.ServerPort, AllowedOrigins: cfg.AllowedOrigins},
		api.NewQueryHandler(queries, verifier),
		api.NewHealthHandler(queries),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("Received %s", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}
	for _, m := range store.SlowQueries() {
		logger.Warn("Slow statement (%d runs, avg %s, max %s): %s", m.Count, m.AvgDuration(), m.MaxDuration, m.Query)
	}
	logger.Info("Server stopped")
	return nil
}

// apply overrides cfg with the flags that were set
func (c *cmdServe) apply(cfg *config.Config) {
	if c.flagPort != 0 {
		cfg.ServerPort = c.flagPort
	}
	if c.flagLogLevel != "" {
		cfg.LogLevel = c.flagLogLevel
	}
}

func databaseConfig(c config.DatabaseConfig) db.Config {
	return db.Config{
		Type:         c.Type,
		Host:         c.Host,
		Port:         c.Port,
		Socket:       c.Socket,
		User:         c.User,
		Password:     c.Password,
		Name:         c.Name,
		SSLMode:      c.SSLMode,
		MaxOpenConns: c.PoolSize,
	}
}

func columnAliases(tables map[string]map[string][]string) map[string]entities.ColumnAliases {
	if len(tables) == 0 {
		return nil
	}
	out := make(map[string]entities.ColumnAliases, len(tables))
	for table, columns := range tables {
		out[table] = entities.ColumnAliases(columns)
	}
	return out
}

func newVerifier(ctx context.Context, c config.AuthConfig) (auth.Verifier, error) {
	switch c.Mode {
	case config.AuthModeFirebase:
		return auth.NewFirebaseVerifier(ctx, c.FirebaseProjectID)
	case config.AuthModeHMAC:
		return auth.NewHMACVerifier(c.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %q", c.Mode)
	}
}
