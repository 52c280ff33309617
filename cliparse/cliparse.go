package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Process modes
const (
	ModeAll = "all" // API and hub in one process
	ModeAPI = "api" // API only, events go to a remote hub
	ModeHub = "hub" // hub and broadcast ingress only
)

// Broadcast transports between the API and the hub
const (
	TransportLocal = "local"
	TransportHTTP  = "http"
	TransportNATS  = "nats"
	TransportKafka = "kafka"
	TransportNone  = "none"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	AdminSecret  string
	DefaultScope string

	Mode               string
	HubPort            int
	BroadcastTransport string
	BroadcastURL       string
	NATSURL            string
	KafkaBrokers       []string
	KafkaTopic         string

	LogFormat string
}

// LoadEnv reads KEY=value pairs from the given files into the
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var brokers string

	fs := flag.NewFlagSet("movie-night", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "API port")
	fs.IntVar(&cfg.HubPort, "hub-port", 0, "Hub port (websocket and broadcast ingress)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or managed)")
	fs.StringVar(&cfg.Mode, "mode", "", "Process mode (all, api or hub)")
	fs.StringVar(&cfg.DefaultScope, "scope", "", "Default room scope")

	fs.StringVar(&cfg.BroadcastTransport, "broadcast", "", "Broadcast transport (local, http, nats, kafka or none)")
	fs.StringVar(&cfg.BroadcastURL, "broadcast-url", "", "Remote hub URL for the http transport")
	fs.StringVar(&cfg.NATSURL, "nats-url", "", "NATS server URL")
	fs.StringVar(&brokers, "kafka-brokers", "", "Comma separated Kafka brokers")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", "", "Kafka topic for events")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format (text or json)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminSecret, "admin-secret", "", "Admin secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.Port, err = intSetting(cfg.Port, "PORT", 3318); err != nil {
		return Config{}, err
	}
	if cfg.HubPort, err = intSetting(cfg.HubPort, "HUB_PORT", 3319); err != nil {
		return Config{}, err
	}

	cfg.Mode = stringSetting(cfg.Mode, "MODE", ModeAll)
	switch cfg.Mode {
	case ModeAll, ModeAPI, ModeHub:
	default:
		return Config{}, fmt.Errorf("invalid mode %q (want all, api or hub)", cfg.Mode)
	}

	cfg.DefaultScope = stringSetting(cfg.DefaultScope, "DEFAULT_SCOPE", "default")
	cfg.LogFormat = stringSetting(cfg.LogFormat, "LOG_FORMAT", "text")
	cfg.KafkaTopic = stringSetting(cfg.KafkaTopic, "KAFKA_TOPIC", "movie-night-events")
	cfg.NATSURL = stringSetting(cfg.NATSURL, "NATS_URL", "")
	cfg.BroadcastURL = stringSetting(cfg.BroadcastURL, "BROADCAST_URL", "")
	cfg.KafkaBrokers = splitList(stringSetting(brokers, "KAFKA_BROKERS", ""))

	defaultTransport := TransportLocal
	if cfg.Mode == ModeAPI {
		defaultTransport = TransportHTTP
	}
	cfg.BroadcastTransport = stringSetting(cfg.BroadcastTransport, "BROADCAST_TRANSPORT", defaultTransport)
	if err := cfg.validateTransport(); err != nil {
		return Config{}, err
	}

	// The hub never touches the database
	if cfg.Mode == ModeHub {
		return cfg, nil
	}

	cfg.DatabaseURL = stringSetting(cfg.DatabaseURL, "DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	cfg.DatabaseType = stringSetting(cfg.DatabaseType, "DATABASE_TYPE", "sqlite")

	// Secrets - MUST be provided
	cfg.AdminSecret = stringSetting(cfg.AdminSecret, "ADMIN_SECRET", "")
	if cfg.AdminSecret == "" {
		return Config{}, errors.New("ADMIN_SECRET required")
	}

	return cfg, nil
}

func (cfg Config) validateTransport() error {
	switch cfg.BroadcastTransport {
	case TransportNone:
	case TransportLocal:
		if cfg.Mode == ModeAPI {
			return errors.New("local broadcast needs the hub in process (use mode all)")
		}
	case TransportHTTP:
		if cfg.Mode == ModeAPI && cfg.BroadcastURL == "" {
			return errors.New("BROADCAST_URL required for the http transport")
		}
	case TransportNATS:
		if cfg.NATSURL == "" {
			return errors.New("NATS_URL required for the nats transport")
		}
	case TransportKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS required for the kafka transport")
		}
	default:
		return fmt.Errorf("invalid broadcast transport %q", cfg.BroadcastTransport)
	}
	return nil
}

func stringSetting(flagValue, env, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

func intSetting(flagValue int, env string, fallback int) (int, error) {
	if flagValue != 0 {
		return flagValue, nil
	}
	raw := os.Getenv(env)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", env)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
