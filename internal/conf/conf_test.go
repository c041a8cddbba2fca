package conf

import (
	"errors"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("SIGNAL_ACCOUNT", "+15550001111")
	t.Setenv("SIGNAL_DATA_DIR", "/tmp/bot-data")
	t.Setenv("SIGNAL_SOCKET_PATH", "")
	t.Setenv("BOT_DB_PATH", "")
	t.Setenv("SIGNAL_CLI_PATH", "")
	t.Setenv("MAX_RECONNECT_ATTEMPTS", "")
	t.Setenv("RPC_TIMEOUT_SECONDS", "")
	t.Setenv("COMMAND_TIMEOUT_SECONDS", "")
	t.Setenv("RATE_LIMIT_DEFAULT", "")
	t.Setenv("API_PORT", "")
	t.Setenv("MENTION_COMMANDS", "")

	cfg := LoadFromEnv()

	if cfg.Signal.Account != "+15550001111" {
		t.Errorf("Account = %q", cfg.Signal.Account)
	}
	if cfg.Signal.BinPath != "signal-cli" {
		t.Errorf("BinPath = %q", cfg.Signal.BinPath)
	}
	if cfg.Signal.SocketPath != "/tmp/bot-data/signal.sock" {
		t.Errorf("SocketPath = %q", cfg.Signal.SocketPath)
	}
	if cfg.Storage.DBPath != "/tmp/bot-data/bot.db" {
		t.Errorf("DBPath = %q", cfg.Storage.DBPath)
	}
	if cfg.Signal.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.Signal.MaxReconnectAttempts)
	}
	if cfg.Signal.CallTimeout != 10*time.Second {
		t.Errorf("CallTimeout = %s", cfg.Signal.CallTimeout)
	}
	if cfg.Dispatch.ExecTimeout != 30*time.Second {
		t.Errorf("ExecTimeout = %s", cfg.Dispatch.ExecTimeout)
	}
	if cfg.Dispatch.DefaultCeiling != 10 {
		t.Errorf("DefaultCeiling = %d", cfg.Dispatch.DefaultCeiling)
	}
	if cfg.APIPort != 9876 {
		t.Errorf("APIPort = %d", cfg.APIPort)
	}
	if len(cfg.Dispatch.MentionCommands) != 2 {
		t.Errorf("MentionCommands = %v", cfg.Dispatch.MentionCommands)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("SIGNAL_ACCOUNT", "+15550001111")
	t.Setenv("SIGNAL_CLI_PATH", "/opt/signal-cli/bin/signal-cli")
	t.Setenv("MAX_RECONNECT_ATTEMPTS", "8")
	t.Setenv("RPC_TIMEOUT_SECONDS", "20")
	t.Setenv("RATE_LIMITS", "ai=3, history=5")
	t.Setenv("ADMIN_IDS", "uuid-1, +15551230000")
	t.Setenv("MENTION_COMMANDS", "kick")

	cfg := LoadFromEnv()

	if cfg.Signal.BinPath != "/opt/signal-cli/bin/signal-cli" {
		t.Errorf("BinPath = %q", cfg.Signal.BinPath)
	}
	if cfg.Signal.MaxReconnectAttempts != 8 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.Signal.MaxReconnectAttempts)
	}
	if cfg.Signal.CallTimeout != 20*time.Second {
		t.Errorf("CallTimeout = %s", cfg.Signal.CallTimeout)
	}
	if cfg.Dispatch.RateCeilings["ai"] != 3 || cfg.Dispatch.RateCeilings["history"] != 5 {
		t.Errorf("RateCeilings = %v", cfg.Dispatch.RateCeilings)
	}
	if len(cfg.Dispatch.AdminIDs) != 2 || cfg.Dispatch.AdminIDs[1] != "+15551230000" {
		t.Errorf("AdminIDs = %v", cfg.Dispatch.AdminIDs)
	}
	if len(cfg.Dispatch.MentionCommands) != 1 || cfg.Dispatch.MentionCommands[0] != "kick" {
		t.Errorf("MentionCommands = %v", cfg.Dispatch.MentionCommands)
	}
}

func TestParseRateLimits(t *testing.T) {
	limits := parseRateLimits("AI=3,bad,empty=,zero=0,neg=-1,ok=7")
	if len(limits) != 2 {
		t.Fatalf("Expected 2 entries, got %v", limits)
	}
	if limits["ai"] != 3 {
		t.Errorf("Expected lowercased key ai=3, got %v", limits)
	}
	if limits["ok"] != 7 {
		t.Errorf("Expected ok=7, got %v", limits)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b ,, c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitList = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if splitList("") != nil {
		t.Error("Empty input must yield nil")
	}
}

func TestValidate_RequiresAccount(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "SIGNAL_ACCOUNT" {
		t.Errorf("Field = %q", cfgErr.Field)
	}

	cfg.Signal.Account = "+15550001111"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}
