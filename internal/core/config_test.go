package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const testConfig = `
hostname: 127.0.0.1
port: 13000
max_connections: 4
protocol_version: 7
log_level: debug
database:
  engine: postgres
  host: localhost
  port: 5432
  name: testdb
  username: testuser
  password: testpassword
updater:
  latest_version: 9
  files:
    - data/a.pak
    - data/b.pak
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("error writing test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("LoadConfig() returned an unexpected error: %v", err)
	}

	if cfg.ListenAddress() != "127.0.0.1:13000" {
		t.Errorf("ListenAddress() want = 127.0.0.1:13000, got = %s", cfg.ListenAddress())
	}
	if cfg.MaxConnections != 4 || cfg.ProtocolVersion != 7 {
		t.Errorf("unexpected capacity/version: %d/%d", cfg.MaxConnections, cfg.ProtocolVersion)
	}
	if diff := cmp.Diff([]string{"data/a.pak", "data/b.pak"}, cfg.Updater.Files); diff != "" {
		t.Errorf("updater files did not match expected; diff:\n%s", diff)
	}
	// Unset keys fall back to their defaults.
	if cfg.QuickMatch.Characters != 8 {
		t.Errorf("expected default quickmatch.characters = 8, got %d", cfg.QuickMatch.Characters)
	}
	if cfg.QuickMatch.MatchDuration != 30*time.Minute {
		t.Errorf("expected default quickmatch.match_duration = 30m, got %v", cfg.QuickMatch.MatchDuration)
	}
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	t.Setenv("HOO_DATABASE_NAME", "fromenv")

	cfg, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("LoadConfig() returned an unexpected error: %v", err)
	}
	if cfg.Database.Name != "fromenv" {
		t.Errorf("expected database.name to be overridden, got %s", cfg.Database.Name)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.conf")); err == nil {
		t.Error("expected an error for a missing config file")
	}
	if _, err := LoadConfig(writeConfig(t, "max_connections: 0\n")); err == nil {
		t.Error("expected an error for a non-positive max_connections")
	}
}

func TestConfig_DatabaseURL(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("LoadConfig() returned an unexpected error: %v", err)
	}

	url := cfg.DatabaseURL()
	expected := "host=localhost port=5432 dbname=testdb user=testuser password=testpassword sslmode=disable"
	if url != expected {
		t.Errorf("DatabaseURL() want = %s, got = %s", expected, url)
	}
}
