package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigFile is read when no config path is passed on the command line.
const DefaultConfigFile = "hoo-server.conf"

// Config contains all of the configuration options available to any of the
// server's components.
type Config struct {
	// Hostname or IP address on which the server will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Port on which clients (user, admin and updater) connect.
	Port int `mapstructure:"port"`
	// Maximum number of concurrent connections the server will allow. This is also
	// the number of pre-allocated game slots.
	MaxConnections int `mapstructure:"max_connections"`
	// Protocol version clients must present in their CONNECT request.
	ProtocolVersion uint32 `mapstructure:"protocol_version"`
	// Full path to file to which logs will be written. Blank will write to stdout.
	LogFilePath string `mapstructure:"log_file_path"`
	// Minimum level of a log required to be written. Options: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`

	Database struct {
		// Either sqlite or postgres.
		Engine string `mapstructure:"engine"`
		// Database file used by the sqlite engine.
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on db_host on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database in Postgres.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${db_name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Web struct {
		// HTTP port serving /metrics. Zero disables the endpoint.
		HTTPPort int `mapstructure:"http_port"`
	} `mapstructure:"web"`

	QuickMatch struct {
		// Number of selectable characters known to the game library.
		Characters int `mapstructure:"characters"`
		// How long a match runs before the library ends it. Zero disables the limit.
		MatchDuration time.Duration `mapstructure:"match_duration"`
	} `mapstructure:"quickmatch"`

	Updater struct {
		// Latest client version offered by the updater protocol.
		LatestVersion uint32 `mapstructure:"latest_version"`
		// Files a client must fetch to reach LatestVersion.
		Files []string `mapstructure:"files"`
	} `mapstructure:"updater"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		PprofEnabled bool `mapstructure:"pprof_enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Log every decoded envelope.
		PacketLoggingEnabled bool `mapstructure:"packet_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`
}

const envVarPrefix = "HOO"

func setDefaults(v *viper.Viper) {
	v.SetDefault("hostname", "0.0.0.0")
	v.SetDefault("port", 12500)
	v.SetDefault("max_connections", 256)
	v.SetDefault("protocol_version", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.filename", "hoo.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("quickmatch.characters", 8)
	v.SetDefault("quickmatch.match_duration", "30m")
	v.SetDefault("debugging.pprof_port", 6060)
}

// LoadConfig reads the YAML config file at configPath. Every key can be overridden
// through an environment variable, e.g. database.host through HOO_DATABASE_HOST.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envVarPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: <envVarPrefix>_DATABASE_HOST
	for _, k := range v.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := v.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			return nil, fmt.Errorf("error binding %s to %s: %w", k, envVarPrefix+"_"+envVar, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config object: %w", err)
	}
	if config.MaxConnections <= 0 {
		return nil, fmt.Errorf("max_connections must be positive, got %d", config.MaxConnections)
	}
	return config, nil
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a database URL generated from the provided config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}

// ListenAddress returns the host:port the frontend binds to.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}
