package ember

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the core's typed configuration, populated by LoadConfig and
// otherwise safe to construct directly for embedding callers that already
// have their own config layer: a flat struct decoded via mapstructure
// rather than struct tags per format.
type Config struct {
	// Address is the "host:port" the HTTP server listens on.
	Address string `mapstructure:"address"`

	// PublicPath is the root-relative URL prefix injected assets are
	// served under, e.g. "/static".
	PublicPath string `mapstructure:"public_path"`

	// StaticRoot is the filesystem directory the static engine serves
	// from.
	StaticRoot string `mapstructure:"static_root"`

	// ManifestPath is the filesystem path to the route manifest JSON.
	ManifestPath string `mapstructure:"manifest_path"`

	// Render404JSX and Render500JSX are optional jsx keys resolved
	// through the same module-loader mechanism as a route's own jsx key:
	// cached, invalidatable, and called per request. Empty means no
	// custom error page is configured.
	Render404JSX string `mapstructure:"render_404"`
	Render500JSX string `mapstructure:"render_500"`

	// DevMode enables hot-replace: fsnotify watching, cache-busting module
	// reloads, and the SSE broadcast surface.
	DevMode bool `mapstructure:"dev_mode"`

	// WatchPaths lists the directories the dev watcher debounces rebuild
	// triggers from. Ignored unless DevMode is true.
	WatchPaths []string `mapstructure:"watch_paths"`

	// BuildCommand, when non-empty, is the external build tool the dev
	// engine spawns on every rebuild cycle before reloading the
	// manifest; its stderr becomes the error overlay when it fails.
	// Ignored unless DevMode is true.
	BuildCommand string   `mapstructure:"build_command"`
	BuildArgs    []string `mapstructure:"build_args"`

	// PatternCacheSize bounds the compiled-pattern FIFO cache; zero falls
	// back to DefaultPatternCacheCapacity.
	PatternCacheSize int `mapstructure:"pattern_cache_size"`

	// SecurityHeaders overrides or disables (via an empty value) the
	// default security header triplet.
	SecurityHeaders map[string]string `mapstructure:"security_headers"`

	// H2C enables cleartext HTTP/2.
	H2C bool `mapstructure:"h2c"`

	// ReadTimeout and WriteTimeout are in seconds; zero means the
	// net/http default (no timeout).
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// defaultConfig is a Config with every field set to a usable
// development-friendly default.
func defaultConfig() Config {
	return Config{
		Address:          "localhost:8080",
		PublicPath:       "/static",
		StaticRoot:       "public",
		ManifestPath:     "manifest.json",
		PatternCacheSize: DefaultPatternCacheCapacity,
	}
}

// LoadConfig reads a JSON, TOML, or YAML file (dispatched on its
// extension) into a Config seeded with defaultConfig, then applies any
// recognized environment variables on top.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ember: failed to read config file %q: %w", path, err)
	}

	var raw map[string]interface{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("ember: failed to parse JSON config %q: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("ember: failed to parse TOML config %q: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("ember: failed to parse YAML config %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("ember: unrecognized config file extension for %q", path)
	}

	cfg := defaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ember: failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("ember: failed to decode config %q: %w", path, err)
	}

	cfg.applyEnv()

	return &cfg, nil
}

// applyEnv overlays the recognized environment variables onto c. PORT
// rewrites the listen port, PUBLIC_PATH replaces the public path (an
// explicitly set empty value is preserved, meaning no asset prefix at
// all), and DEV=true switches on dev mode.
func (c *Config) applyEnv() {
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		host, _, err := net.SplitHostPort(c.Address)
		if err != nil {
			host = c.Address
		}
		c.Address = net.JoinHostPort(host, port)
	}
	if pp, ok := os.LookupEnv("PUBLIC_PATH"); ok {
		c.PublicPath = pp
	}
	if os.Getenv("DEV") == "true" {
		c.DevMode = true
	}
}
