package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// TestnetPassphrase identifies the Stellar test network.
const TestnetPassphrase = "Test SDF Network ; September 2015"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HorizonURL            string
	NetworkPassphrase     string
	DatabaseURL           string
	FriendbotURL          string
	FriendbotFallbackURL  string
	FriendbotTimeout      time.Duration
	HorizonRetryMax       int
	HorizonRetryBaseDelay time.Duration
	SubmitTimeout         time.Duration
	RefreshInterval       time.Duration
	FundingSettleDelay    time.Duration
	HistoryPageSize       int
	VaultAPIURL           string
	VaultAPIKey           string
	VaultAddress          string
	VaultSyncInterval     time.Duration
	LendAPIURL            string
	LendPoolID            string
	HTTPPort              string
	APIKey                string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		HorizonURL:            envOrDefault("HORIZON_URL", "https://horizon-testnet.stellar.org"),
		NetworkPassphrase:     envOrDefault("NETWORK_PASSPHRASE", TestnetPassphrase),
		DatabaseURL:           envOrDefaultWarn("DATABASE_URL", ""),
		FriendbotURL:          envOrDefault("FRIENDBOT_URL", "https://friendbot.stellar.org"),
		FriendbotFallbackURL:  envOrDefault("FRIENDBOT_FALLBACK_URL", "https://horizon-testnet.stellar.org/friendbot"),
		FriendbotTimeout:      envOrDefaultDuration("FRIENDBOT_TIMEOUT", 15*time.Second),
		HorizonRetryMax:       envOrDefaultInt("HORIZON_RETRY_MAX", 5),
		HorizonRetryBaseDelay: envOrDefaultDuration("HORIZON_RETRY_BASE_DELAY", 2*time.Second),
		SubmitTimeout:         envOrDefaultDuration("SUBMIT_TIMEOUT", 30*time.Second),
		RefreshInterval:       envOrDefaultDuration("REFRESH_INTERVAL", 30*time.Second),
		FundingSettleDelay:    envOrDefaultDuration("FUNDING_SETTLE_DELAY", 2*time.Second),
		HistoryPageSize:       envOrDefaultInt("HISTORY_PAGE_SIZE", 20),
		VaultAPIURL:           envOrDefault("VAULT_API_URL", "https://api.defindex.io"),
		VaultAPIKey:           envOrDefault("VAULT_API_KEY", ""),
		VaultAddress:          envOrDefault("VAULT_ADDRESS", "CAQ6PAG4X6L7LJVGOKSQ6RU2LADWK4EQXRJGMUWL7SECS7LXUEQLM5U7"),
		VaultSyncInterval:     envOrDefaultDuration("VAULT_SYNC_INTERVAL", 10*time.Minute),
		LendAPIURL:            envOrDefault("LEND_API_URL", ""),
		LendPoolID:            envOrDefault("LEND_POOL_ID", "CDDG7DLOWSHRYQ2HWGZEZ4UTR7LPTKFFHN3QUCSZEXOWOPARMONX6T65"),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		APIKey:                envOrDefault("API_KEY", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
