// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// Settings read by ParseFlags; t.Setenv restores each after the test
var settingEnv = []string{
	"PORT", "HUB_PORT", "DATABASE_URL", "DATABASE_TYPE", "ADMIN_SECRET",
	"DEFAULT_SCOPE", "MODE", "BROADCAST_TRANSPORT", "BROADCAST_URL",
	"NATS_URL", "KAFKA_BROKERS", "KAFKA_TOPIC", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range settingEnv {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestParseFlags_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("ADMIN_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BROADCAST_TRANSPORT", "kafka")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if want := []string{"k1:9092", "k2:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Errorf("expected brokers %v, got %v", want, cfg.KafkaBrokers)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := ParseFlags([]string{"-d", "movie-night.db", "-admin-secret", "s"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 || cfg.HubPort != 3319 {
		t.Errorf("expected ports 3318/3319, got %d/%d", cfg.Port, cfg.HubPort)
	}
	if cfg.Mode != ModeAll || cfg.BroadcastTransport != TransportLocal {
		t.Errorf("expected mode all with local broadcast, got %s/%s", cfg.Mode, cfg.BroadcastTransport)
	}
	if cfg.DatabaseType != "sqlite" || cfg.DefaultScope != "default" || cfg.KafkaTopic != "movie-night-events" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_SCOPE", "env-room")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-admin-secret", "s1", "-scope", "flag-room"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DefaultScope != "flag-room" {
		t.Errorf("CLI should override env: expected flag-room, got %s", cfg.DefaultScope)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing database", map[string]string{"ADMIN_SECRET": "s"}, nil},
		{"missing secret", map[string]string{"DATABASE_URL": "x.db"}, nil},
		{"bad port", map[string]string{"PORT": "http", "DATABASE_URL": "x.db", "ADMIN_SECRET": "s"}, nil},
		{"bad mode", nil, []string{"-mode", "worker", "-d", "x.db", "-admin-secret", "s"}},
		{"bad transport", nil, []string{"-broadcast", "smoke", "-d", "x.db", "-admin-secret", "s"}},
		{"nats without url", nil, []string{"-broadcast", "nats", "-d", "x.db", "-admin-secret", "s"}},
		{"kafka without brokers", nil, []string{"-broadcast", "kafka", "-d", "x.db", "-admin-secret", "s"}},
		{"api without hub url", nil, []string{"-mode", "api", "-d", "x.db", "-admin-secret", "s"}},
		{"api with local hub", nil, []string{"-mode", "api", "-broadcast", "local", "-d", "x.db", "-admin-secret", "s"}},
		{"unknown flag", nil, []string{"-x"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tc.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseFlags_HubNeedsNoDatabase(t *testing.T) {
	clearEnv(t)

	cfg, err := ParseFlags([]string{"-mode", "hub", "-broadcast", "nats", "-nats-url", "nats://localhost:4222"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeHub || cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	content := "PORT=9999\nADMIN_SECRET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ADMIN_SECRET") })

	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatal(err)
	}

	if got := os.Getenv("PORT"); got != "7000" {
		t.Errorf("existing env should win: expected 7000, got %s", got)
	}
	if got := os.Getenv("ADMIN_SECRET"); got != "from-file" {
		t.Errorf("expected ADMIN_SECRET from file, got %s", got)
	}
}
