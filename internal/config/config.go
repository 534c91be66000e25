/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package config loads chunktree settings from flags, an optional YAML file and
// CHUNKTREE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"bennypowers.dev/chunktree/depgraph"
	"bennypowers.dev/chunktree/fs"
	"bennypowers.dev/chunktree/viewer"
)

// DefaultFileName is the config file looked up in the package directory when
// --config is not given.
const DefaultFileName = ".chunktree.yaml"

// DefaultOutput is the tree JSON file written in the package directory.
const DefaultOutput = "treeJSON"

// Renderers.
const (
	RendererTemplate = "template"
	RendererECharts  = "echarts"
)

// Config represents the complete application configuration.
type Config struct {
	Package        string            `yaml:"package" mapstructure:"package"`
	Entries        []string          `yaml:"entries" mapstructure:"entries"`
	Output         string            `yaml:"output" mapstructure:"output"`
	Identity       string            `yaml:"identity" mapstructure:"identity"`
	IncludeStatic  bool              `yaml:"include-static" mapstructure:"include-static"`
	Exclude        []string          `yaml:"exclude" mapstructure:"exclude"`
	ExcludeMarkers []string          `yaml:"exclude-markers" mapstructure:"exclude-markers"`
	Alias          map[string]string `yaml:"alias" mapstructure:"alias"`
	ImportMap      string            `yaml:"import-map" mapstructure:"import-map"`
	Conditions     []string          `yaml:"conditions" mapstructure:"conditions"`
	Extensions     []string          `yaml:"extensions" mapstructure:"extensions"`
	Serve          bool              `yaml:"serve" mapstructure:"serve"`
	Open           bool              `yaml:"open" mapstructure:"open"`
	Host           string            `yaml:"host" mapstructure:"host"`
	Port           int               `yaml:"port" mapstructure:"port"`
	Template       string            `yaml:"template" mapstructure:"template"`
	Renderer       string            `yaml:"renderer" mapstructure:"renderer"`
	Log            LoggingConfig     `yaml:"log" mapstructure:"log"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("package", ".")
	v.SetDefault("entries", []string{})
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("identity", depgraph.IdentityResolved.String())
	v.SetDefault("include-static", false)
	v.SetDefault("exclude", []string{})
	v.SetDefault("exclude-markers", depgraph.DefaultExcludeMarkers)
	v.SetDefault("alias", map[string]string{})
	v.SetDefault("import-map", "")
	v.SetDefault("conditions", []string{})
	v.SetDefault("extensions", []string{})
	v.SetDefault("serve", true)
	v.SetDefault("open", true)
	v.SetDefault("host", viewer.DefaultHost)
	v.SetDefault("port", viewer.DefaultPort)
	v.SetDefault("template", "")
	v.SetDefault("renderer", RendererTemplate)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load resolves the configuration held by v. An explicit config file (the
// "config" key) must exist; otherwise DefaultFileName in the package
// directory is read when present.
func Load(fsys fs.FileSystem, v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("CHUNKTREE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	configPath := v.GetString("config")
	if configPath == "" {
		candidate := filepath.Join(v.GetString("package"), DefaultFileName)
		if fs.IsFile(fsys, candidate) {
			configPath = candidate
		}
	}
	if configPath != "" {
		data, err := fsys.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigType("yaml")
		if err := v.MergeConfig(strings.NewReader(string(data))); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IdentityMode returns the parsed identity mode.
func (c *Config) IdentityMode() depgraph.IdentityMode {
	mode, _ := depgraph.ParseIdentityMode(c.Identity)
	return mode
}

// OutputPath returns where the tree JSON goes: "" for stdout, otherwise a
// path resolved against the package directory.
func (c *Config) OutputPath() string {
	switch {
	case c.Output == "-":
		return ""
	case c.Output == "":
		return filepath.Join(c.Package, DefaultOutput)
	case filepath.IsAbs(c.Output):
		return c.Output
	default:
		return filepath.Join(c.Package, c.Output)
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for valid values.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if _, err := depgraph.ParseIdentityMode(c.Identity); err != nil {
		errs = append(errs, ValidationError{Field: "identity", Message: "must be raw or resolved"})
	}
	switch c.Renderer {
	case RendererTemplate, RendererECharts:
	default:
		errs = append(errs, ValidationError{Field: "renderer", Message: fmt.Sprintf("unknown renderer %q", c.Renderer)})
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, ValidationError{Field: "port", Message: "must be between 0 and 65535"})
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "log.level", Message: "must be debug, info, warn or error"})
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "log.format", Message: "must be text or json"})
	}
	if _, err := depgraph.NewExcluder(c.ExcludeMarkers, c.Exclude); err != nil {
		errs = append(errs, ValidationError{Field: "exclude", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var verrs ValidationErrors
	return errors.As(err, &verrs)
}
