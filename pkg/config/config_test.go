package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blockmerge/pkg/blocklist"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockmerge.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestValidateLogLevel(t *testing.T) {
	validLevels := []string{"debug", "info", "warn", "error", "DEBUG", "INFO", "WARN", "ERROR"}
	for _, level := range validLevels {
		if err := ValidateLogLevel(level); err != nil {
			t.Errorf("ValidateLogLevel(%s) returned error: %v", level, err)
		}
	}

	invalidLevels := []string{"", "trace", "fatal", "invalid", "debugging"}
	for _, level := range invalidLevels {
		if err := ValidateLogLevel(level); err == nil {
			t.Errorf("ValidateLogLevel(%s) should return error", level)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configEnvVar, "")
	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.File != "" {
		t.Errorf("no config file expected, got %s", cfg.File)
	}
	if cfg.Output.Path != "domains-blocklist.conf" || cfg.Input.Dir != "." {
		t.Errorf("unexpected paths: %+v %+v", cfg.Output, cfg.Input)
	}
	if cfg.Input.Baseline != blocklist.BaselineFileName {
		t.Errorf("Input.Baseline = %s", cfg.Input.Baseline)
	}
	if strings.Join(cfg.Sources.Order, ",") != strings.Join(blocklist.DefaultSourceOrder, ",") {
		t.Errorf("Sources.Order = %v", cfg.Sources.Order)
	}
	if len(cfg.Fetch.Sources) != len(blocklist.DefaultSourceOrder)+1 || cfg.Fetch.Sources[0] != blocklist.BaselineSourceID {
		t.Errorf("Fetch.Sources = %v", cfg.Fetch.Sources)
	}
	if cfg.Fetch.Timeout != 30*time.Second || cfg.Fetch.Concurrency != 4 {
		t.Errorf("unexpected fetch settings: %+v", cfg.Fetch)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.File != "stderr" || cfg.Logging.ErrorLimit != 20 {
		t.Errorf("unexpected logging settings: %+v", cfg.Logging)
	}
	if !strings.HasPrefix(cfg.Fetch.UserAgent, "blockmerge/") {
		t.Errorf("Fetch.UserAgent = %s", cfg.Fetch.UserAgent)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
ignore_retrieval_failure = true

[output]
path = "-"

[input]
dir = "/var/lib/blockmerge"
baseline = ""

[sources]
order = ["NextDNS", "frogeye"]

[logging]
level = "debug"
error_limit = -1

[fetch]
timeout = "5s"
concurrency = 2
cache_dir = "/var/cache/blockmerge"

[fetch.firebog]
url = "https://mirror.example.com/firebog/"
`)

	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.File != path || !cfg.IgnoreRetrievalFailure {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Output.Path != "-" || cfg.Input.Dir != "/var/lib/blockmerge" || cfg.Input.Baseline != "" {
		t.Errorf("unexpected paths: %+v %+v", cfg.Output, cfg.Input)
	}
	if strings.Join(cfg.Sources.Order, ",") != "nextdns,frogeye" {
		t.Errorf("Sources.Order = %v", cfg.Sources.Order)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.ErrorLimit != -1 {
		t.Errorf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Fetch.Timeout != 5*time.Second || cfg.Fetch.Concurrency != 2 || cfg.Fetch.CacheDir != "/var/cache/blockmerge" {
		t.Errorf("unexpected fetch: %+v", cfg.Fetch)
	}
	urls := cfg.Fetch.URLs()
	if len(urls) != 1 || urls["firebog"] != "https://mirror.example.com/firebog/" {
		t.Errorf("URLs() = %v", urls)
	}
}

func TestLoadEnvironment(t *testing.T) {
	path := writeConfig(t, "[output]\npath = \"from-file.conf\"\n")
	t.Setenv(configEnvVar, path)
	t.Setenv("BLOCKMERGE_LOGGING_LEVEL", "warn")

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.File != path || cfg.Output.Path != "from-file.conf" {
		t.Errorf("config path from environment not used: %+v", cfg)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s, want warn", cfg.Logging.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestLoadEmptySourceOrder(t *testing.T) {
	cfg, err := Load(NewViper(), writeConfig(t, "[sources]\norder = []\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Sources.Order) != 0 {
		t.Errorf("Sources.Order = %v, want empty", cfg.Sources.Order)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"log level", "[logging]\nlevel = \"loud\"\n", "invalid log level"},
		{"unknown source", "[sources]\norder = [\"example\"]\n", "sources.order"},
		{"duplicate source", "[sources]\norder = [\"nextdns\", \"nextdns\"]\n", "duplicate source"},
		{"synthetic source", "[sources]\norder = [\"baseline\"]\n", "sources.order"},
		{"fetch source", "[fetch]\nsources = [\"local\"]\n", "fetch.sources"},
		{"timeout", "[fetch]\ntimeout = \"soon\"\n", "fetch.timeout"},
		{"zero timeout", "[fetch]\ntimeout = \"0s\"\n", "fetch.timeout"},
		{"concurrency", "[fetch]\nconcurrency = 0\n", "fetch.concurrency"},
		{"override source", "[fetch.example]\nurl = \"https://example.com\"\n", "fetch.example"},
		{"override url", "[fetch.nextdns]\nurl = \"ftp://example.com/list\"\n", "fetch.nextdns.url"},
		{"override table", "[fetch]\nnextdns = \"https://example.com\"\n", "must be a table"},
		{"output", "[output]\npath = \"\"\n", "output.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(NewViper(), writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
