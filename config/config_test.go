package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// chdir moves the test into dir and restores the working directory on
// cleanup. Load reads config.json relative to the working directory.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func clearOverrideEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRADIER_BASE_URL", "TRADIER_SANDBOX", "TRADING_LIVE_MODE",
		"TRADING_INITIAL_CAPITAL", "AI_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearOverrideEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load without config.json: %v", err)
	}
	if cfg.TradingConfig.InitialCapital != 100000 {
		t.Errorf("initial capital = %v, want default 100000", cfg.TradingConfig.InitialCapital)
	}
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	clearOverrideEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	chdir(t, dir)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a malformed config file")
	}
}

func TestApplyEnvOverrides_SandboxSelectsBaseURL(t *testing.T) {
	clearOverrideEnv(t)

	cfg := Default()
	applyEnvOverrides(cfg)
	if !strings.Contains(cfg.MarketConfig.BaseURL, "sandbox") {
		t.Errorf("default base URL should be the sandbox, got %q", cfg.MarketConfig.BaseURL)
	}

	cfg = Default()
	cfg.MarketConfig.Sandbox = false
	applyEnvOverrides(cfg)
	if cfg.MarketConfig.BaseURL != "https://api.tradier.com/v1" {
		t.Errorf("production base URL = %q, want https://api.tradier.com/v1", cfg.MarketConfig.BaseURL)
	}

	cfg = Default()
	t.Setenv("TRADIER_BASE_URL", "http://localhost:9999/v1")
	applyEnvOverrides(cfg)
	if cfg.MarketConfig.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("explicit base URL must win, got %q", cfg.MarketConfig.BaseURL)
	}
}

func TestValidate_RejectsInvertedRSIBand(t *testing.T) {
	cfg := Default()
	cfg.IndicatorConfig.RSILower = 80
	cfg.IndicatorConfig.RSIUpper = 70
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for rsi_lower above rsi_upper")
	}
}
