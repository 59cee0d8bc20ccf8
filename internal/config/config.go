// Package config loads domsnap settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgnsrekt/domsnap/internal/netutil"
)

// Config holds settings for the serve command and the defaults of the
// one-shot commands.
type Config struct {
	// CDP connection settings
	CDPAddress   string
	CDPPort      int
	TabURLFilter string

	// HTTP server
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Evaluation timeouts
	EvalTimeoutMS int
	PickTimeoutMS int

	// Logging
	LogLevel string
	LogFile  string

	// Delivery
	CaptureDir       string
	JournalFile      string
	JournalMaxSizeMB int
	WebhookURL       string
	NotifyURL        string
	Clipboard        bool
	PickerColor      string

	// Browser launch (serve --launch)
	BrowserProfileDir string
	BrowserStartURL   string
	BrowserPath       string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:        getEnvOrDefault("DOMSNAP_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("DOMSNAP_CDP_PORT", 9222),
		TabURLFilter:      getEnvOrDefault("DOMSNAP_TAB_URL_FILTER", ""),
		BindAddr:          getEnvOrDefault("DOMSNAP_BIND_ADDR", "127.0.0.1:8190"),
		PortAutoFallback:  getEnvBoolOrDefault("DOMSNAP_PORT_AUTO_FALLBACK", true),
		EvalTimeoutMS:     getEnvIntOrDefault("DOMSNAP_EVAL_TIMEOUT_MS", 5000),
		PickTimeoutMS:     getEnvIntOrDefault("DOMSNAP_PICK_TIMEOUT_MS", 300000),
		LogLevel:          strings.ToLower(getEnvOrDefault("DOMSNAP_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("DOMSNAP_LOG_FILE", "logs/domsnap.log"),
		CaptureDir:        getEnvOrDefault("DOMSNAP_CAPTURE_DIR", "./captures"),
		JournalFile:       getEnvOrDefault("DOMSNAP_JOURNAL_FILE", ""),
		JournalMaxSizeMB:  getEnvIntOrDefault("DOMSNAP_JOURNAL_MAX_SIZE_MB", 50),
		WebhookURL:        getEnvOrDefault("DOMSNAP_WEBHOOK_URL", ""),
		NotifyURL:         getEnvOrDefault("DOMSNAP_NOTIFY_URL", ""),
		Clipboard:         getEnvBoolOrDefault("DOMSNAP_CLIPBOARD", true),
		PickerColor:       getEnvOrDefault("DOMSNAP_PICKER_COLOR", "#4c9ffe"),
		BrowserProfileDir: getEnvOrDefault("DOMSNAP_BROWSER_PROFILE_DIR", "./browser_profile"),
		BrowserStartURL:   getEnvOrDefault("DOMSNAP_BROWSER_START_URL", "about:blank"),
		BrowserPath:       getEnvOrDefault("DOMSNAP_BROWSER_PATH", ""),
	}

	candidates, err := parsePortCandidates(cfg.BindAddr, getEnvOrDefault("DOMSNAP_PORT_CANDIDATES", "8191-8199"))
	if err != nil {
		return nil, err
	}
	cfg.PortCandidates = candidates

	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if cfg.PickTimeoutMS < cfg.EvalTimeoutMS {
		cfg.PickTimeoutMS = cfg.EvalTimeoutMS
	}
	if cfg.JournalMaxSizeMB < 1 {
		cfg.JournalMaxSizeMB = 1
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint of the browser.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.EvalTimeoutMS) * time.Millisecond
}

func (c *Config) PickTimeout() time.Duration {
	return time.Duration(c.PickTimeoutMS) * time.Millisecond
}

// parsePortCandidates accepts "8191-8199" ranges and comma separated ports
// or host:port entries. Bare ports use the host of bindAddr.
func parsePortCandidates(bindAddr, raw string) ([]string, error) {
	host := "127.0.0.1"
	if i := strings.LastIndex(bindAddr, ":"); i > 0 {
		host = bindAddr[:i]
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, ":") {
			out = append(out, part)
			continue
		}
		if from, to, ok := strings.Cut(part, "-"); ok {
			lo, errLo := strconv.Atoi(strings.TrimSpace(from))
			hi, errHi := strconv.Atoi(strings.TrimSpace(to))
			if errLo != nil || errHi != nil {
				return nil, fmt.Errorf("config: invalid port range %q", part)
			}
			addrs, err := netutil.ExpandPortRange(host, lo, hi)
			if err != nil {
				return nil, fmt.Errorf("config: %w", err)
			}
			out = append(out, addrs...)
			continue
		}
		port, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("config: invalid port %q", part)
		}
		addrs, err := netutil.ExpandPortRange(host, port, port)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		out = append(out, addrs...)
	}
	return out, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
