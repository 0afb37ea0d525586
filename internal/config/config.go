// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Market   MarketConfig
	Fees     FeeConfig
	Provider ProviderConfig
	Ledger   LedgerConfig
	Backup   BackupConfig
	Events   EventsConfig
}

// MarketConfig parameterizes the synthetic market and its population.
type MarketConfig struct {
	Tickers      []string
	UniverseFile string // Optional YAML universe; its tickers are merged with Tickers
	StartDate    time.Time
	// Days stepped after the start date; 0 means up to the last day of the world index
	Days               int
	PoolSize           int
	Seed               uint64
	Gini               float64
	MeanIncome         float64 // Mean annual income
	WealthDistribution []float64
	WealthThresholds   []float64
	IncomeIntervalDays int
	InsiderRatio       float64
	TradeFrequencies   []int
}

// FeeConfig is the ledger's fee model.
type FeeConfig struct {
	FlatFee        float64 // Minimum buy fee
	PerShareFee    float64 // Buy fee per share
	RevenueRateFee float64 // Share of realized gain charged on sell
}

// CurrencyConversion maps a quoted currency onto a real one with a scale,
// e.g. ILA (agorot) -> ILS at 0.01.
type CurrencyConversion struct {
	To   string
	Rate float64
}

// ProviderConfig configures the market data client.
type ProviderConfig struct {
	RequestDelay  time.Duration // Minimum gap between provider calls
	BaseCurrency  string
	CurrencyPool  map[string]CurrencyConversion
	ExchangeAPI   string
	ExchangeCache time.Duration
}

// LedgerConfig configures the real portfolio ledger.
type LedgerConfig struct {
	InitialBalance   float64
	MonthlyDeposit   float64
	BenchmarkSymbol  string
	RiskFreeSymbol   string
	ShortTrendWindow int
	LongTrendWindow  int
	RSIWindow        int
	MaxFeeRatio      float64 // Max acceptable fee/cost for a purchase
	SnapshotSchedule string  // cron spec
	DepositSchedule  string  // cron spec
}

// BackupConfig configures S3-compatible ledger backups.
type BackupConfig struct {
	Enabled         bool
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string
	RetentionDays   int
}

// EventsConfig configures the Kafka ledger event publisher.
type EventsConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PLAYGROUND_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	startDate, err := time.Parse("2006-01-02", getEnv("MARKET_START_DATE", "1995-01-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid MARKET_START_DATE: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Market: MarketConfig{
			Tickers:            utils.ParseTickers(os.Getenv("MARKET_TICKERS")),
			UniverseFile:       getEnv("MARKET_UNIVERSE_FILE", ""),
			StartDate:          startDate,
			Days:               getEnvAsInt("MARKET_DAYS", 0),
			PoolSize:           getEnvAsInt("MARKET_POOL_SIZE", 1000),
			Seed:               uint64(getEnvAsInt("MARKET_SEED", 0)),
			Gini:               getEnvAsFloat("MARKET_GINI", 0.67),
			MeanIncome:         getEnvAsFloat("MARKET_MEAN_INCOME", 13700),
			WealthDistribution: []float64{0.525, 0.344, 0.12, 0.011},
			WealthThresholds:   []float64{1e4, 1e5, 1e6},
			IncomeIntervalDays: getEnvAsInt("MARKET_INCOME_INTERVAL_DAYS", 30),
			InsiderRatio:       getEnvAsFloat("MARKET_INSIDER_RATIO", 0.02),
			TradeFrequencies:   []int{7, 14, 21, 30, 60, 90, 120, 180, 365},
		},
		Fees: FeeConfig{
			FlatFee:        getEnvAsFloat("FEE_FLAT", 5),
			PerShareFee:    getEnvAsFloat("FEE_PER_SHARE", 0.01),
			RevenueRateFee: getEnvAsFloat("FEE_REVENUE_RATE", 0.25),
		},
		Provider: ProviderConfig{
			RequestDelay:  time.Duration(getEnvAsInt("PROVIDER_DELAY_MS", 300)) * time.Millisecond,
			BaseCurrency:  getEnv("PROVIDER_BASE_CURRENCY", "USD"),
			CurrencyPool:  DefaultCurrencyPool(),
			ExchangeAPI:   getEnv("EXCHANGE_RATE_API", "https://api.exchangerate-api.com/v4/latest"),
			ExchangeCache: time.Duration(getEnvAsInt("EXCHANGE_RATE_CACHE_HOURS", 1)) * time.Hour,
		},
		Ledger: LedgerConfig{
			InitialBalance:   getEnvAsFloat("LEDGER_INITIAL_BALANCE", 100000),
			MonthlyDeposit:   getEnvAsFloat("LEDGER_MONTHLY_DEPOSIT", 1500),
			BenchmarkSymbol:  getEnv("LEDGER_BENCHMARK", "^GSPC"),
			RiskFreeSymbol:   getEnv("LEDGER_RISK_FREE", "^IRX"),
			ShortTrendWindow: getEnvAsInt("LEDGER_SHORT_WINDOW", 15),
			LongTrendWindow:  getEnvAsInt("LEDGER_LONG_WINDOW", 90),
			RSIWindow:        getEnvAsInt("LEDGER_RSI_WINDOW", 14),
			MaxFeeRatio:      getEnvAsFloat("LEDGER_MAX_FEE_RATIO", 0.03),
			SnapshotSchedule: getEnv("LEDGER_SNAPSHOT_SCHEDULE", "0 22 * * 1-5"),
			DepositSchedule:  getEnv("LEDGER_DEPOSIT_SCHEDULE", "0 9 1 * *"),
		},
		Backup: BackupConfig{
			Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 3 * * *"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		Events: EventsConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "ledger.transactions"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultCurrencyPool lists sub-unit currencies the provider quotes in.
func DefaultCurrencyPool() map[string]CurrencyConversion {
	return map[string]CurrencyConversion{
		"ILA": {To: "ILS", Rate: 0.01},
		"GBp": {To: "GBP", Rate: 0.01},
		"GBX": {To: "GBP", Rate: 0.01},
		"ZAc": {To: "ZAR", Rate: 0.01},
	}
}

// Validate checks that model parameters are satisfiable.
func (c *Config) Validate() error {
	if err := c.Market.Validate(); err != nil {
		return err
	}
	if c.Fees.FlatFee < 0 || c.Fees.PerShareFee < 0 || c.Fees.RevenueRateFee < 0 {
		return fmt.Errorf("%w: fees must be non-negative", domain.ErrConfiguration)
	}
	if c.Ledger.InitialBalance < 0 {
		return fmt.Errorf("%w: initial balance must be non-negative", domain.ErrConfiguration)
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("%w: BACKUP_BUCKET is required when backups are enabled", domain.ErrConfiguration)
	}
	return nil
}

// Validate checks the market model parameters.
func (m MarketConfig) Validate() error {
	if m.Gini <= 0 || m.Gini > 1 || math.IsNaN(m.Gini) {
		return fmt.Errorf("%w: gini coefficient %.3f outside (0, 1]", domain.ErrConfiguration, m.Gini)
	}
	if m.MeanIncome <= 0 {
		return fmt.Errorf("%w: mean income must be positive", domain.ErrConfiguration)
	}
	if m.PoolSize <= 0 {
		return fmt.Errorf("%w: pool size must be positive", domain.ErrConfiguration)
	}
	if len(m.WealthDistribution) != len(m.WealthThresholds)+1 {
		return fmt.Errorf("%w: wealth distribution needs one more bracket than thresholds", domain.ErrConfiguration)
	}
	var total float64
	for _, share := range m.WealthDistribution {
		if share < 0 {
			return fmt.Errorf("%w: negative wealth share", domain.ErrConfiguration)
		}
		total += share
	}
	if total < 0.999 || total > 1.001 {
		return fmt.Errorf("%w: wealth distribution sums to %.4f", domain.ErrConfiguration, total)
	}
	for i := 1; i < len(m.WealthThresholds); i++ {
		if m.WealthThresholds[i] <= m.WealthThresholds[i-1] {
			return fmt.Errorf("%w: wealth thresholds must be ascending", domain.ErrConfiguration)
		}
	}
	if m.IncomeIntervalDays <= 0 {
		return fmt.Errorf("%w: income interval must be positive", domain.ErrConfiguration)
	}
	if len(m.TradeFrequencies) == 0 {
		return fmt.Errorf("%w: no trade frequencies", domain.ErrConfiguration)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return utils.ParseCSV(value)
}
