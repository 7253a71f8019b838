package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.Timezone != defaultTimezone {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "api_url: https://urnik.example.si/api/\nbasic_auth:\n  username: admin\n  password: \"\"\npdf:\n  landscape: true\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "https://urnik.example.si/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.BasicAuth != nil {
		t.Error("empty password should disable basic auth")
	}
	if cfg.PDF.Width != defaultPDFWidth || cfg.PDF.TimeoutSeconds != defaultPDFTimeout || !cfg.PDF.Landscape {
		t.Errorf("unexpected pdf config %+v", cfg.PDF)
	}
	if cfg.EffectiveViewURL() != "http://"+defaultListen {
		t.Errorf("EffectiveViewURL = %q", cfg.EffectiveViewURL())
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected YAML error")
	}
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ViewURL = "http://10.0.0.2:8080/"
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ViewURL != "http://10.0.0.2:8080" || got.BasicAuth == nil || got.BasicAuth.Username != "u" {
		t.Errorf("round trip lost data: %+v", got)
	}
}
