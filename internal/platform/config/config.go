package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	BusBrokers  []string

	AdminAddresses       []string
	CreationDeposit      uint64
	ReclaimableThreshold uint64
	MinimumBetAmount     uint64
	TaxPercentage        float64
	DefaultPollOwner     string
	TreasuryToken        string

	OutboxRelayInterval time.Duration

	EnableInstantiationConsumer bool
	EnableFinishConsumer        bool
	EnableAckConsumer           bool
}

func Load() (Config, error) {
	// Missing .env is fine; real env always wins.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "pollterra"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("BUS_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	var admins []string
	for _, value := range strings.Split(os.Getenv("ADMIN_ADDRESSES"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			admins = append(admins, value)
		}
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		BusBrokers:  brokers,

		AdminAddresses:       admins,
		CreationDeposit:      envUint("CREATION_DEPOSIT", 1000),
		ReclaimableThreshold: envUint("RECLAIMABLE_THRESHOLD", 10),
		MinimumBetAmount:     envUint("MINIMUM_BET_AMOUNT", 1),
		TaxPercentage:        envFloat("TAX_PERCENTAGE", 0.05),
		DefaultPollOwner:     os.Getenv("DEFAULT_POLL_OWNER"),
		TreasuryToken:        os.Getenv("TREASURY_TOKEN"),

		OutboxRelayInterval: envDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second),

		EnableInstantiationConsumer: envBool("ENABLE_INSTANTIATION_CONSUMER", true),
		EnableFinishConsumer:        envBool("ENABLE_FINISH_CONSUMER", true),
		EnableAckConsumer:           envBool("ENABLE_ACK_CONSUMER", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envUint(name string, fallback uint64) uint64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
