package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/microcosm/errors"
)

// DefaultEnvPrefix is the prefix of environment variables that override
// file values, e.g. MICROCOSM_HTTP_SERVER_PORT.
const DefaultEnvPrefix = "MICROCOSM"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	EnvFile    string // Direct env file path (optional)
	EnvPrefix  string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// Load reads the YAML file at path into cfg. A .env file next to the
// config (or the one given with WithEnvFile) is loaded into the process
// environment, then prefixed environment variables override file values.
// A missing file or undecodable document is a configuration error.
func Load(path string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{EnvPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	if path == "" || !lc.FileSystem.Exists(path) {
		return errors.Configuration("", fmt.Sprintf("config file not found: %s", path))
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return errors.Configuration("", fmt.Sprintf("failed to read %s", path)).WithCause(err)
	}

	envFile := lc.EnvFile
	if envFile == "" {
		envFile = filepath.Join(filepath.Dir(path), ".env")
	}
	if lc.FileSystem.Exists(envFile) {
		if err := lc.FileSystem.LoadEnv(envFile); err != nil {
			return errors.Configuration("", fmt.Sprintf("failed to load %s", envFile)).WithCause(err)
		}
	}

	bindPrefixedEnv(v, lc.EnvPrefix)

	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		FloatToVersionStringHookFunc(),
	))
	if err := v.Unmarshal(cfg, hooks); err != nil {
		return errors.Configuration("", fmt.Sprintf("failed to decode %s", path)).WithCause(err)
	}
	return nil
}

// FloatToVersionStringHookFunc renders YAML floats decoded into string
// fields the way the node reports versions: 1.0 stays "1.0" and 2.10
// becomes "2.1".
func FloatToVersionStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.String {
			return data, nil
		}
		switch from.Kind() {
		case reflect.Float32, reflect.Float64:
			return FormatVersion(reflect.ValueOf(data).Float()), nil
		}
		return data, nil
	}
}

// FormatVersion formats a numeric version, always keeping a fractional part.
func FormatVersion(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// bindPrefixedEnv copies every PREFIX_* environment variable into v under
// each nested key it could denote.
func bindPrefixedEnv(v *viper.Viper, prefix string) {
	if prefix == "" {
		return
	}
	prefix = strings.ToUpper(prefix) + "_"
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, variant := range generateEnvKeyVariants(strings.TrimPrefix(key, prefix)) {
			if !shadowsScalar(v, variant) {
				v.Set(variant, value)
			}
		}
	}
}

// shadowsScalar reports whether setting key would turn an existing scalar
// parent (e.g. "service" for "service.name") into a map.
func shadowsScalar(v *viper.Viper, key string) bool {
	parts := strings.Split(key, ".")
	for i := 1; i < len(parts); i++ {
		parent := strings.Join(parts[:i], ".")
		if !v.IsSet(parent) {
			continue
		}
		if _, ok := v.Get(parent).(map[string]interface{}); !ok {
			return true
		}
	}
	return false
}

// generateEnvKeyVariants creates all possible key variants for environment variable binding.
// Examples:
//
//	HTTP_SERVER_PORT -> [http_server_port, http.server.port, http.server_port, http_server.port]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}

	// Generate progressive nesting patterns
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
		prefix = strings.Join(parts[:i], "_")
		suffix = strings.Join(parts[i:], ".")
		variants = append(variants, prefix+"."+suffix)
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
