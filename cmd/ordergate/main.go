package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/tablelink/ordergate/internal/api"
	"github.com/tablelink/ordergate/internal/store"
	"github.com/tablelink/ordergate/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for OrderGate state data
	DefaultStateDir = "/var/lib/ordergate"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "ordergate.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping OrderGate")
	slog.Debug("Final configuration", "dsn_set", *flags.dbDSN != "", "addr", *flags.apiAddr, "provider", *flags.provider)
	if err := api.Run(apiOpts...); err != nil {
		slog.Error("OrderGate failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("OrderGate exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	APIAddr         string
	Provider        string
	VerifyToken     string
	AppSecret       string
	AccessToken     string
	CatalogBaseURL  string
	CatalogAPIKey   string
	OrderAPIBaseURL string
	SweepSchedule   string
	WhatsmeowDSN    string
	Debug           bool
}

// Flags holds command line flag values
type Flags struct {
	dbDSN           *string
	apiAddr         *string
	provider        *string
	verifyToken     *string
	appSecret       *string
	accessToken     *string
	catalogBaseURL  *string
	catalogAPIKey   *string
	orderAPIBaseURL *string
	sweepSchedule   *string
	whatsmeowDSN    *string
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if util.BoolEnv("ORDERGATE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and a .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("ORDERGATE_STATE_DIR"),
		APIAddr:         os.Getenv("API_ADDR"),
		Provider:        os.Getenv("MESSAGING_PROVIDER"),
		VerifyToken:     os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		AppSecret:       os.Getenv("WHATSAPP_APP_SECRET"),
		AccessToken:     os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		CatalogBaseURL:  os.Getenv("CATALOG_BASE_URL"),
		CatalogAPIKey:   os.Getenv("CATALOG_API_KEY"),
		OrderAPIBaseURL: os.Getenv("ORDER_API_BASE_URL"),
		SweepSchedule:   os.Getenv("SWEEP_SCHEDULE"),
		WhatsmeowDSN:    os.Getenv("WHATSAPP_DB_DSN"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ORDERGATE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Default to SQLite in the state directory when no database is given.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ORDERGATE_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"MESSAGING_PROVIDER", config.Provider,
		"WHATSAPP_VERIFY_TOKEN_SET", config.VerifyToken != "",
		"WHATSAPP_APP_SECRET_SET", config.AppSecret != "",
		"WHATSAPP_ACCESS_TOKEN_SET", config.AccessToken != "",
		"CATALOG_BASE_URL", config.CatalogBaseURL,
		"ORDER_API_BASE_URL", config.OrderAPIBaseURL,
		"SWEEP_SCHEDULE", config.SweepSchedule)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:           flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		apiAddr:         flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		provider:        flag.String("messaging-provider", config.Provider, "outbound messaging provider: cloudapi, twilio, whatsmeow (overrides $MESSAGING_PROVIDER)"),
		verifyToken:     flag.String("verify-token", config.VerifyToken, "webhook verify token (overrides $WHATSAPP_VERIFY_TOKEN)"),
		appSecret:       flag.String("app-secret", config.AppSecret, "webhook signature secret (overrides $WHATSAPP_APP_SECRET)"),
		accessToken:     flag.String("access-token", config.AccessToken, "Cloud API access token (overrides $WHATSAPP_ACCESS_TOKEN)"),
		catalogBaseURL:  flag.String("catalog-base-url", config.CatalogBaseURL, "catalog API base URL (overrides $CATALOG_BASE_URL)"),
		catalogAPIKey:   flag.String("catalog-api-key", config.CatalogAPIKey, "catalog API key (overrides $CATALOG_API_KEY)"),
		orderAPIBaseURL: flag.String("order-api-base-url", config.OrderAPIBaseURL, "order API base URL (overrides $ORDER_API_BASE_URL)"),
		sweepSchedule:   flag.String("sweep-schedule", config.SweepSchedule, "cron schedule for the idle-session sweep (overrides $SWEEP_SCHEDULE)"),
		whatsmeowDSN:    flag.String("whatsmeow-db-dsn", config.WhatsmeowDSN, "device store DSN for the whatsmeow provider (overrides $WHATSAPP_DB_DSN)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"provider", *flags.provider,
		"verifyTokenSet", *flags.verifyToken != "",
		"appSecretSet", *flags.appSecret != "",
		"accessTokenSet", *flags.accessToken != "")

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" || *flags.dbDSN == "" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// buildAPIOptions constructs API server options
func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.dbDSN != "" {
		opts = append(opts, api.WithDSN(*flags.dbDSN))
	}
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.provider != "" {
		opts = append(opts, api.WithMessagingProvider(*flags.provider))
	}
	if *flags.verifyToken != "" {
		opts = append(opts, api.WithVerifyToken(*flags.verifyToken))
	}
	if *flags.appSecret != "" {
		opts = append(opts, api.WithAppSecret(*flags.appSecret))
	}
	if *flags.accessToken != "" {
		opts = append(opts, api.WithAccessToken(*flags.accessToken))
	}
	if *flags.catalogBaseURL != "" {
		opts = append(opts, api.WithCatalogBaseURL(*flags.catalogBaseURL))
	}
	if *flags.catalogAPIKey != "" {
		opts = append(opts, api.WithCatalogAPIKey(*flags.catalogAPIKey))
	}
	if *flags.orderAPIBaseURL != "" {
		opts = append(opts, api.WithOrderAPIBaseURL(*flags.orderAPIBaseURL))
	}
	if *flags.sweepSchedule != "" {
		opts = append(opts, api.WithSweepSchedule(*flags.sweepSchedule))
	}
	if *flags.whatsmeowDSN != "" {
		opts = append(opts, api.WithWhatsmeowDSN(*flags.whatsmeowDSN))
	}
	return opts
}
