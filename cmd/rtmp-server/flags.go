package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
)

// version is injected at build time with -ldflags "-X main.version=...". Defaults to dev.
var version = "dev"

// cliConfig holds user-supplied flag values prior to translation into
// srv.Config so main.go can validate and map.
type cliConfig struct {
	configPath  string
	listenAddr  string
	logLevel    string
	streamsDir  string
	maxStreams  int
	showVersion bool

	hookWebhooks    []string // event_type=webhook_url pairs
	hookStdioFormat string   // "json", "env", or "" (disabled)
	hookTimeout     string
	hookConcurrency int
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("rtmp-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	var hookWebhooks stringSliceFlag

	fs.StringVar(&cfg.configPath, "config", "", "Path to a YAML config file (optional; flags override its values)")
	fs.StringVar(&cfg.listenAddr, "listen", "", "TCP listen address (e.g. :1935 or 0.0.0.0:1935)")
	fs.StringVar(&cfg.logLevel, "log.level", "", "Log level: debug|info|warn|error (env STREAMX_LOG_LEVEL, default info)")
	fs.StringVar(&cfg.streamsDir, "streams-dir", "", "Directory under which per-stream HLS output is written")
	fs.IntVar(&cfg.maxStreams, "max-streams", 0, "Maximum number of concurrent publishers (0 = use config/default)")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Var(&hookWebhooks, "hook-webhook", "Hook webhook in format event_type=webhook_url (can be specified multiple times)")
	fs.StringVar(&cfg.hookStdioFormat, "hook-stdio-format", "", "Enable structured stdio output: json|env (empty=disabled)")
	fs.StringVar(&cfg.hookTimeout, "hook-timeout", "30s", "Timeout for hook execution")
	fs.IntVar(&cfg.hookConcurrency, "hook-concurrency", 10, "Maximum concurrent hook executions")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.hookWebhooks = hookWebhooks

	if cfg.logLevel != "" {
		switch cfg.logLevel {
		case "debug", "info", "warn", "error":
		default:
			return nil, fmt.Errorf("invalid log.level %q", cfg.logLevel)
		}
	}

	if err := validateHookConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// stringSliceFlag implements flag.Value for multiple string values.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ", ") }

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// validateHookConfig validates hook configuration settings.
func validateHookConfig(cfg *cliConfig) error {
	if cfg.hookStdioFormat != "" && cfg.hookStdioFormat != "json" && cfg.hookStdioFormat != "env" {
		return fmt.Errorf("invalid hook-stdio-format %q, must be 'json' or 'env'", cfg.hookStdioFormat)
	}

	if cfg.hookTimeout != "" {
		if _, err := parseTimeDuration(cfg.hookTimeout); err != nil {
			return fmt.Errorf("invalid hook-timeout %q: %w", cfg.hookTimeout, err)
		}
	}

	if cfg.hookConcurrency < 1 || cfg.hookConcurrency > 100 {
		return fmt.Errorf("hook-concurrency must be between 1 and 100, got %d", cfg.hookConcurrency)
	}

	for _, webhook := range cfg.hookWebhooks {
		if err := validateHookAssignment("hook-webhook", webhook); err != nil {
			return err
		}
	}

	return nil
}

// parseTimeDuration validates that s looks like a Go duration string.
func parseTimeDuration(s string) (string, error) {
	if len(s) < 2 {
		return "", errors.New("duration too short")
	}
	suffix := s[len(s)-1:]
	if suffix != "s" && suffix != "m" && suffix != "h" {
		return "", errors.New("duration must end with s, m, or h")
	}
	return s, nil
}

// validEventTypes mirrors the EventType constants in internal/rtmp/server/hooks.
var validEventTypes = map[string]bool{
	"connection_accept":  true,
	"connection_close":   true,
	"handshake_complete": true,
	"stream_create":      true,
	"stream_delete":      true,
	"publish_start":      true,
	"publish_stop":       true,
	"play_start":         true,
	"play_stop":          true,
	"codec_detected":     true,
}

// validateHookAssignment validates event_type=value format.
func validateHookAssignment(flagName, assignment string) error {
	parts := strings.SplitN(assignment, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid %s format %q, expected event_type=value", flagName, assignment)
	}
	eventType, value := parts[0], parts[1]
	if eventType == "" {
		return fmt.Errorf("invalid %s: event type cannot be empty", flagName)
	}
	if value == "" {
		return fmt.Errorf("invalid %s: value cannot be empty", flagName)
	}
	if !validEventTypes[eventType] {
		return fmt.Errorf("invalid %s: unknown event type %q", flagName, eventType)
	}
	return nil
}
