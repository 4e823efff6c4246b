// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads viewer settings from defaults, an optional YAML file
// and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/worldviewer/internal/plugin"
	"github.com/holomush/worldviewer/internal/xdg"
)

// FileName is the config file looked up in the XDG config directory when no
// explicit path is given.
const FileName = "config.yaml"

// Config holds every viewer setting.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Plugins PluginsConfig `koanf:"plugins"`
	Store   StoreConfig   `koanf:"store"`
	Server  ServerConfig  `koanf:"server"`
}

// LogConfig controls the default logger.
type LogConfig struct {
	Format string `koanf:"format" validate:"oneof=json text"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
}

// PluginsConfig controls generator discovery.
type PluginsConfig struct {
	// Dir holds scripted generator directories. Empty means the XDG data dir.
	Dir string `koanf:"dir"`
	// Filter restricts discovery to matching type names.
	Filter string `koanf:"filter"`
	// Namespace is the URI namespace given to instantiated generators.
	Namespace string `koanf:"namespace" validate:"required,excludesall=:"`
}

// StoreConfig locates persisted layer settings.
type StoreConfig struct {
	// Path is the layer settings file. Empty means the XDG config dir.
	Path string `koanf:"path"`
}

// ServerConfig controls the HTTP layer view. An empty Listen disables it.
type ServerConfig struct {
	Listen string `koanf:"listen" validate:"omitempty,hostname_port"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"log.format":        "text",
		"log.level":         "info",
		"plugins.dir":       "",
		"plugins.filter":    "",
		"plugins.namespace": plugin.DefaultNamespace,
		"store.path":        "",
		"server.listen":     "127.0.0.1:9100",
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-format":  "log.format",
	"log-level":   "log.level",
	"plugins-dir": "plugins.dir",
	"filter":      "plugins.filter",
	"namespace":   "plugins.namespace",
	"store":       "store.path",
	"listen":      "server.listen",
}

// RegisterFlags adds the config flags to fs. Flag defaults are empty so that
// only flags set on the command line override the file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-format", "", "log format (json or text)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("plugins-dir", "", "scripted generator directory")
	fs.String("filter", "", "generator type filter (package prefix or glob)")
	fs.String("namespace", "", "URI namespace for instantiated generators")
	fs.String("store", "", "layer settings file")
	fs.String("listen", "", "layer view HTTP address")
}

// Load builds the config. path names the YAML file; when empty, FileName in
// the XDG config directory is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	errb := oops.In("config")
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, errb.Code("CONFIG_DEFAULTS_FAILED").Wrap(err)
		}
	}

	path, required, err := configPath(path)
	if err != nil {
		return nil, errb.Code("CONFIG_PATH_FAILED").Wrap(err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return nil, errb.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
			}
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, errb.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errb.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, errb.Code("CONFIG_PATH_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// Validate checks field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return oops.In("config").Code("CONFIG_INVALID").
				With("field", fe.Namespace()).
				With("rule", fe.Tag()).
				Errorf("invalid %s: %q fails %s", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return oops.In("config").Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}

func (c *Config) resolvePaths() error {
	if c.Plugins.Dir == "" {
		dir, err := xdg.PluginsDir()
		if err != nil {
			return err
		}
		c.Plugins.Dir = dir
	}
	if c.Store.Path == "" {
		path, err := xdg.LayersPath()
		if err != nil {
			return err
		}
		c.Store.Path = path
	}
	return nil
}

// configPath reports the file to load and whether it must exist.
func configPath(path string) (string, bool, error) {
	if path != "" {
		return filepath.Clean(path), true, nil
	}
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", false, err
	}
	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err != nil {
		return "", false, nil //nolint:nilerr // a missing default file means no file
	}
	return candidate, false, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())
