package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for logLevel=verbose")
	}
}

func TestValidate_InvalidStateDriver(t *testing.T) {
	cfg := Defaults()
	cfg.State.Driver = "etcd"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for state.driver=etcd")
	}
}

func TestValidate_RedisDriverNeedsAddr(t *testing.T) {
	cfg := Defaults()
	cfg.State.Driver = "redis"
	cfg.State.RedisAddr = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for redis driver without redisAddr")
	}

	cfg.State.RedisAddr = "localhost:6379"
	if err := Validate(cfg); err != nil {
		t.Fatalf("redis driver with addr should be valid: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Web.Port = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative port")
	}

	cfg.Channels.Web.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

func TestValidate_TelegramNeedsToken(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Enabled = true
	cfg.Channels.Telegram.Token = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled telegram without token")
	}
}

func TestValidate_MaxConcurrentTurns_Boundary(t *testing.T) {
	cfg := Defaults()

	cfg.Engine.MaxConcurrentTurns = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxConcurrentTurns=1 should be valid: %v", err)
	}

	cfg.Engine.MaxConcurrentTurns = 100
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxConcurrentTurns=100 should be valid: %v", err)
	}

	cfg.Engine.MaxConcurrentTurns = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentTurns=0")
	}

	cfg.Engine.MaxConcurrentTurns = 999
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentTurns=999")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.General.DefaultShopID = "blue-lamp-shop"
	original.Engine.HistoryLimit = 40

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.General.DefaultShopID != "blue-lamp-shop" {
		t.Fatalf("defaultShopId = %q, want blue-lamp-shop", loaded.General.DefaultShopID)
	}
	if loaded.Engine.HistoryLimit != 40 {
		t.Fatalf("historyLimit = %d, want 40", loaded.Engine.HistoryLimit)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"general": {"shopDir": "` + dir + `"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.ShopDir != dir {
		t.Fatalf("shopDir = %q, want %q", cfg.General.ShopDir, dir)
	}
	if cfg.Engine.MaxConcurrentTurns != 8 {
		t.Fatalf("maxConcurrentTurns = %d, want default 8", cfg.Engine.MaxConcurrentTurns)
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_Set(t *testing.T) {
	t.Setenv("ASSISTANT_TEST_TOKEN", "tok-123")
	got := ExpandEnvVars(`{"token": "${ASSISTANT_TEST_TOKEN}"}`)
	want := `{"token": "tok-123"}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("ASSISTANT_TEST_UNSET")
	got := ExpandEnvVars(`${ASSISTANT_TEST_UNSET:-fallback}`)
	if got != "fallback" {
		t.Fatalf("got %q, want fallback", got)
	}
}

func TestExpandEnvVars_NoDefaultKeepsLiteral(t *testing.T) {
	os.Unsetenv("ASSISTANT_TEST_UNSET")
	got := ExpandEnvVars(`${ASSISTANT_TEST_UNSET}`)
	if got != "${ASSISTANT_TEST_UNSET}" {
		t.Fatalf("got %q, want literal", got)
	}
}

// --- Accessor ---

func TestGetByPath(t *testing.T) {
	cfg := Defaults()
	v, err := GetByPath(cfg, "channels.webhook.port")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if n, ok := v.(float64); !ok || n != 8090 {
		t.Fatalf("got %v, want 8090", v)
	}
}

func TestGetByPath_Missing(t *testing.T) {
	if _, err := GetByPath(Defaults(), "channels.fax.port"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetByPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "engine.maxConcurrentTurns", "16"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Engine.MaxConcurrentTurns != 16 {
		t.Fatalf("maxConcurrentTurns = %d, want 16", cfg.Engine.MaxConcurrentTurns)
	}

	if err := SetByPath(cfg, "general.defaultShopId", "demo-shop"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.General.DefaultShopID != "demo-shop" {
		t.Fatalf("defaultShopId = %q, want demo-shop", cfg.General.DefaultShopID)
	}
}
