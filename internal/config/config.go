package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"gotrader/internal/logger"
)

const (
	envPrefix = "GOTRADER"
	// managedEnvVar is set by the managed function runtime; only /tmp is writable there.
	managedEnvVar = "AWS_EXECUTION_ENV"
	managedRoot   = "/tmp"
)

// secretKeys are always bound to the environment, even when absent from the file.
var secretKeys = []string{
	"market.api_key",
	"market.api_secret",
	"notify.telegram.bot_token",
	"notify.telegram.chat_id",
}

// Load reads the YAML file at path (plus its include list), applies environment
// overrides (GOTRADER_SECTION_KEY), fills defaults and validates the result.
func Load(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper(path string) (*viper.Viper, error) {
	files, err := resolveIncludes(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	for _, file := range files {
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	v.SetConfigFile(files[len(files)-1])
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	keys := make(keySet)
	flattenKeys("", v.AllSettings(), keys)
	cfg.applyDefaults(keys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	cfg.managed = RunningInManagedEnv()
	return &cfg, nil
}

// Watch reloads the config whenever the file changes and passes every valid
// result to onChange. Invalid edits are logged and skipped.
func Watch(path string, onChange func(*Config)) error {
	v, err := newViper(path)
	if err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		fresh, err := Load(path)
		if err != nil {
			logger.Warnf("config reload skipped (%s): %v", e.Name, err)
			return
		}
		logger.Infof("config reloaded from %s", e.Name)
		onChange(fresh)
	})
	v.WatchConfig()
	return nil
}

// RunningInManagedEnv reports whether the process runs inside a managed
// function environment.
func RunningInManagedEnv() bool {
	_, ok := os.LookupEnv(managedEnvVar)
	return ok
}

// Managed reports whether the config was loaded inside the managed runtime.
func (c *Config) Managed() bool { return c.managed }

// ResolvePath maps a relative artifact path to its location for the current
// environment; under a managed runtime it is rooted in /tmp.
func (c *Config) ResolvePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || !c.managed {
		return p
	}
	return filepath.Join(managedRoot, p)
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// resolveIncludes returns the files to merge in order: includes first, the
// main file last so it wins. Includes are resolved one level deep.
func resolveIncludes(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(abs)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", abs, err)
	}
	var files []string
	for _, inc := range v.GetStringSlice("include") {
		inc = strings.TrimSpace(inc)
		if inc == "" {
			continue
		}
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		if filepath.Clean(inc) == abs {
			return nil, fmt.Errorf("config %s includes itself", abs)
		}
		files = append(files, inc)
	}
	return append(files, abs), nil
}

func flattenKeys(prefix string, node any, dest keySet) {
	m, ok := node.(map[string]any)
	if !ok {
		dest.mark(prefix)
		return
	}
	for k, val := range m {
		next := strings.ToLower(strings.TrimSpace(k))
		if next == "" {
			continue
		}
		if prefix != "" {
			next = prefix + "." + next
		}
		flattenKeys(next, val, dest)
	}
}
