package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestServerURL(t *testing.T) {
	cases := []struct {
		server Server
		want   string
	}{
		{Server{Addr: "localhost", Port: 7878}, "http://localhost:7878/"},
		{Server{Addr: "radarr.local", Port: 443, SSL: true}, "https://radarr.local:443/"},
		{Server{Addr: "localhost", Port: 8080, Path: "radarr"}, "http://localhost:8080/radarr/"},
		{Server{Addr: "localhost", Port: 8080, Path: "/radarr/"}, "http://localhost:8080/radarr/"},
	}
	for _, c := range cases {
		if got := c.server.URL(); got != c.want {
			t.Errorf("URL() = %q, want %q", got, c.want)
		}
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
telegram:
  token: "abc"
  password: "secret"
radarr:
  instances:
    - label: main
      server:
        addr: localhost
        port: 7878
      apikey: key
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATARR_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Language != "en-us" {
		t.Errorf("Default language = %q", cfg.Language)
	}
	if cfg.Entrypoints.Add != "start" {
		t.Errorf("Default add entrypoint = %q", cfg.Entrypoints.Add)
	}
	if !cfg.Radarr.Search {
		t.Error("Radarr search should default to true")
	}
	if cfg.Radarr.MinimumAvailability != "announced" {
		t.Errorf("Default minimumAvailability = %q", cfg.Radarr.MinimumAvailability)
	}
	if !cfg.Sonarr.Search || !cfg.Sonarr.SeasonFolder {
		t.Errorf("Sonarr defaults: search=%v seasonFolder=%v", cfg.Sonarr.Search, cfg.Sonarr.SeasonFolder)
	}
	if !cfg.Lidarr.Search {
		t.Error("Lidarr search should default to true")
	}
	if len(cfg.Radarr.Instances) != 1 || cfg.Radarr.Instances[0].Label != "main" {
		t.Errorf("Instances not parsed: %+v", cfg.Radarr.Instances)
	}
	if cfg.ChatIDFile != filepath.Join(dir, "chatid.txt") {
		t.Errorf("ChatIDFile = %q", cfg.ChatIDFile)
	}

	if missing, wrong := cfg.Validate(); len(missing) > 0 || len(wrong) > 0 {
		t.Errorf("Valid config reported missing=%v wrong=%v", missing, wrong)
	}
}

func TestLoadExplicitValuesOverrideDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
telegram:
  token: "abc"
  password: "secret"
radarr:
  search: false
  minimumAvailability: released
  instances:
    - label: main
      server:
        addr: localhost
        port: 7878
      apikey: key
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATARR_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Radarr.Search {
		t.Error("Explicit radarr.search=false was overridden")
	}
	if cfg.Radarr.MinimumAvailability != "released" {
		t.Errorf("minimumAvailability = %q, want released", cfg.Radarr.MinimumAvailability)
	}
}

func TestValidateReportsMissingKeys(t *testing.T) {
	cfg := &Config{Language: "en-us"}
	missing, wrong := cfg.Validate()

	want := map[string]bool{
		"telegram.token":    false,
		"telegram.password": false,
		"radarr.instances":  false,
	}
	for _, key := range missing {
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, seen := range want {
		if !seen {
			t.Errorf("Missing key %q not reported (got %v)", key, missing)
		}
	}
	if len(wrong) != 0 {
		t.Errorf("Unexpected wrong values: %v", wrong)
	}
}

func TestValidateRejectsUnknownLanguage(t *testing.T) {
	cfg := &Config{
		TelegramToken:    "abc",
		TelegramPassword: "secret",
		Language:         "tlh",
		Radarr: Arr{Instances: []Instance{{
			Server: Server{Addr: "localhost", Port: 7878},
			APIKey: "key",
		}}},
	}
	missing, wrong := cfg.Validate()
	if len(missing) != 0 {
		t.Errorf("Unexpected missing keys: %v", missing)
	}
	if len(wrong) != 1 || wrong[0] != "language" {
		t.Errorf("Expected language to be flagged, got %v", wrong)
	}
}
