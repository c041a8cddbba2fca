package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration
type Config struct {
	// Signal daemon configuration
	Signal SignalConfig

	// OpenAI configuration (optional, powers the !ai command)
	OpenAI OpenAIConfig

	// Dispatch configuration
	Dispatch DispatchConfig

	// Storage configuration
	Storage StorageConfig

	// Local HTTP API port (consumed by the MCP server binary)
	APIPort int

	// Debug mode
	Debug bool
}

// SignalConfig contains daemon process and socket configuration
type SignalConfig struct {
	BinPath              string
	Account              string
	DataDir              string
	SocketPath           string
	MaxReconnectAttempts int
	CallTimeout          time.Duration
}

// OpenAIConfig contains OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// DispatchConfig contains command dispatch configuration
type DispatchConfig struct {
	RateCeilings    map[string]int // per-command per-minute ceilings
	DefaultCeiling  int
	AdminIDs        []string
	ModeratorIDs    []string
	MentionCommands []string
	ExecTimeout     time.Duration
}

// StorageConfig contains database configuration
type StorageConfig struct {
	DBPath string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	homeDir, _ := os.UserHomeDir()

	dataDir := os.Getenv("SIGNAL_DATA_DIR")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".signal-command-bot")
	}

	socketPath := os.Getenv("SIGNAL_SOCKET_PATH")
	if socketPath == "" {
		socketPath = filepath.Join(dataDir, "signal.sock")
	}

	dbPath := os.Getenv("BOT_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "bot.db")
	}

	binPath := os.Getenv("SIGNAL_CLI_PATH")
	if binPath == "" {
		binPath = "signal-cli"
	}

	maxReconnect := 5
	if val := os.Getenv("MAX_RECONNECT_ATTEMPTS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			maxReconnect = parsed
		}
	}

	callTimeout := 10 * time.Second
	if val := os.Getenv("RPC_TIMEOUT_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			callTimeout = time.Duration(parsed) * time.Second
		}
	}

	execTimeout := 30 * time.Second
	if val := os.Getenv("COMMAND_TIMEOUT_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			execTimeout = time.Duration(parsed) * time.Second
		}
	}

	defaultCeiling := 10
	if val := os.Getenv("RATE_LIMIT_DEFAULT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			defaultCeiling = parsed
		}
	}

	apiPort := 9876
	if val := os.Getenv("API_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			apiPort = parsed
		}
	}

	mentionCommands := []string{"addto", "kick"}
	if val := os.Getenv("MENTION_COMMANDS"); val != "" {
		mentionCommands = splitList(val)
	}

	return &Config{
		Signal: SignalConfig{
			BinPath:              binPath,
			Account:              os.Getenv("SIGNAL_ACCOUNT"),
			DataDir:              dataDir,
			SocketPath:           socketPath,
			MaxReconnectAttempts: maxReconnect,
			CallTimeout:          callTimeout,
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   os.Getenv("OPENAI_MODEL"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Dispatch: DispatchConfig{
			RateCeilings:    parseRateLimits(os.Getenv("RATE_LIMITS")),
			DefaultCeiling:  defaultCeiling,
			AdminIDs:        splitList(os.Getenv("ADMIN_IDS")),
			ModeratorIDs:    splitList(os.Getenv("MODERATOR_IDS")),
			MentionCommands: mentionCommands,
			ExecTimeout:     execTimeout,
		},
		Storage: StorageConfig{
			DBPath: dbPath,
		},
		APIPort: apiPort,
		Debug:   os.Getenv("DEBUG") == "true",
	}
}

// parseRateLimits parses a "cmd=n,cmd=n" table
func parseRateLimits(raw string) map[string]int {
	limits := make(map[string]int)
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		if n, err := strconv.Atoi(kv[1]); err == nil && n > 0 {
			limits[strings.ToLower(kv[0])] = n
		}
	}
	return limits
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Signal.Account == "" {
		return &ConfigError{Field: "SIGNAL_ACCOUNT", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
