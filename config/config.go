// Package config holds the single configuration value passed through a
// documentation run. It is loaded once, defaulted, validated, and then
// treated as read-only.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/route"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Stdout is the output path that writes to standard output.
const Stdout = "-"

const (
	DefaultContentType = "application/json"
	DefaultLocale      = route.DefaultLocale
)

// Config is the complete configuration of a documentation run.
type Config struct {
	Title       string   `yaml:"title"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description"`
	Locale      string   `yaml:"locale"`
	Servers     []Server `yaml:"servers"`

	// Router is the path of a YAML route table. It may be empty when a
	// route source is supplied programmatically.
	Router      string `yaml:"router"`
	Annotations string `yaml:"annotations"`
	Definitions string `yaml:"definitions"`

	DefaultContentType  string `yaml:"default_content_type"`
	IncludeUndocumented bool   `yaml:"include_undocumented"`
	// ValidateOutput checks the rendered document. It is nil until
	// defaults are applied.
	ValidateOutput *bool `yaml:"validate"`
	Concurrency    int   `yaml:"concurrency"`

	Pipelines map[string]route.Pipeline `yaml:"pipelines"`
	// Filters are structural match mappings; see route.ParseFilter.
	Filters []map[string]any `yaml:"filters"`

	SecuritySchemes map[string]SecurityScheme `yaml:"security_schemes"`
	Tags            []Tag                     `yaml:"tags"`

	Outputs []Output `yaml:"outputs"`
}

// Server is an API base URL.
type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// Tag documents an operation tag.
type Tag struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SecurityScheme describes one auth scheme routes may require.
type SecurityScheme struct {
	Type             string      `yaml:"type"`
	Description      string      `yaml:"description"`
	Name             string      `yaml:"name"`
	In               string      `yaml:"in"`
	Scheme           string      `yaml:"scheme"`
	BearerFormat     string      `yaml:"bearer_format"`
	Flows            *OAuthFlows `yaml:"flows"`
	OpenIDConnectURL string      `yaml:"open_id_connect_url"`
}

// OAuthFlows lists the supported OAuth2 flows of a scheme.
type OAuthFlows struct {
	Implicit          *OAuthFlow `yaml:"implicit"`
	Password          *OAuthFlow `yaml:"password"`
	ClientCredentials *OAuthFlow `yaml:"client_credentials"`
	AuthorizationCode *OAuthFlow `yaml:"authorization_code"`
}

// OAuthFlow is a single OAuth2 flow.
type OAuthFlow struct {
	AuthorizationURL string            `yaml:"authorization_url"`
	TokenURL         string            `yaml:"token_url"`
	RefreshURL       string            `yaml:"refresh_url"`
	Scopes           map[string]string `yaml:"scopes"`
}

// Output is a render destination.
type Output struct {
	// Path is a file path, or "-" for standard output.
	Path string `yaml:"path"`
	// Format is json or yaml. It is inferred from the extension when empty.
	Format string `yaml:"format"`
}

var securityTypes = map[string]bool{
	"apiKey":        true,
	"http":          true,
	"oauth2":        true,
	"openIdConnect": true,
}

// Load reads the YAML config at path, resolves relative paths against its
// directory, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without defaults and validation, for callers that override
// settings first.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes a YAML config. Unknown keys are rejected. Defaults are not
// applied.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &docerrors.ConfigError{Message: "failed to parse config", Cause: err}
	}
	return &cfg, nil
}

// Resolve makes every relative input and output path relative to dir.
func (c *Config) Resolve(dir string) {
	resolve := func(p *string) {
		if *p == "" || *p == Stdout || filepath.IsAbs(*p) {
			return
		}
		*p = filepath.Join(dir, *p)
	}
	resolve(&c.Router)
	resolve(&c.Annotations)
	resolve(&c.Definitions)
	for i := range c.Outputs {
		resolve(&c.Outputs[i].Path)
	}
}

// Clone returns a copy of c that can be defaulted or edited without
// touching c. Nested pipeline defaults and filter mappings are shared.
func (c *Config) Clone() *Config {
	out := *c
	out.Servers = slices.Clone(c.Servers)
	out.Filters = slices.Clone(c.Filters)
	out.Tags = slices.Clone(c.Tags)
	out.Outputs = slices.Clone(c.Outputs)
	out.Pipelines = maps.Clone(c.Pipelines)
	out.SecuritySchemes = maps.Clone(c.SecuritySchemes)
	if c.ValidateOutput != nil {
		v := *c.ValidateOutput
		out.ValidateOutput = &v
	}
	return &out
}

// ApplyDefaults fills every optional setting left empty.
func (c *Config) ApplyDefaults() {
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	if c.DefaultContentType == "" {
		c.DefaultContentType = DefaultContentType
	}
	if c.ValidateOutput == nil {
		v := true
		c.ValidateOutput = &v
	}
	if c.Concurrency < 1 {
		c.Concurrency = runtime.GOMAXPROCS(0)
	}
	for i := range c.Outputs {
		if c.Outputs[i].Format == "" {
			c.Outputs[i].Format = inferFormat(c.Outputs[i].Path)
		}
		c.Outputs[i].Format = strings.ToLower(c.Outputs[i].Format)
	}
}

// Validate checks required settings. It returns the first problem as a
// *docerrors.ConfigError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return &docerrors.ConfigError{Field: "title", Message: "is required"}
	}
	if strings.TrimSpace(c.Version) == "" {
		return &docerrors.ConfigError{Field: "version", Message: "is required"}
	}
	if len(c.Outputs) == 0 {
		return &docerrors.ConfigError{Field: "outputs", Message: "at least one output is required"}
	}

	seen := make(map[string]bool, len(c.Outputs))
	for i, out := range c.Outputs {
		key := fmt.Sprintf("outputs[%d]", i)
		if out.Path == "" {
			return &docerrors.ConfigError{Field: key + ".path", Message: "is required"}
		}
		if out.Path != Stdout && seen[out.Path] {
			return &docerrors.ConfigError{Field: key + ".path", Message: fmt.Sprintf("%s is already an output", out.Path)}
		}
		seen[out.Path] = true

		switch out.Format {
		case FormatJSON, FormatYAML:
		case "":
			return &docerrors.ConfigError{Field: key + ".format", Message: "cannot be inferred from the path"}
		default:
			return &docerrors.ConfigError{Field: key + ".format", Message: fmt.Sprintf("unsupported format %q", out.Format)}
		}
	}

	for _, name := range sortedKeys(c.Pipelines) {
		for _, prefix := range c.Pipelines[name].Prefixes {
			if !strings.HasPrefix(prefix, "/") {
				return &docerrors.ConfigError{
					Field:   "pipelines." + name + ".prefixes",
					Message: fmt.Sprintf("prefix %q must start with /", prefix),
				}
			}
		}
	}

	for _, name := range sortedKeys(c.SecuritySchemes) {
		if t := c.SecuritySchemes[name].Type; !securityTypes[t] {
			return &docerrors.ConfigError{
				Field:   "security_schemes." + name + ".type",
				Message: fmt.Sprintf("unsupported type %q", t),
			}
		}
	}

	if _, err := c.RouteFilters(); err != nil {
		return err
	}
	return nil
}

// RouteFilters parses the configured filters.
func (c *Config) RouteFilters() ([]route.Filter, error) {
	filters := make([]route.Filter, 0, len(c.Filters))
	for i, raw := range c.Filters {
		m, err := route.ParseFilter(raw)
		if err != nil {
			var cerr *docerrors.ConfigError
			if errors.As(err, &cerr) {
				prefixed := *cerr
				prefixed.Field = strings.TrimSuffix(fmt.Sprintf("filters[%d].%s", i, cerr.Field), ".")
				return nil, &prefixed
			}
			return nil, err
		}
		filters = append(filters, m)
	}
	return filters, nil
}

// ShouldValidate reports whether the rendered document is validated.
func (c *Config) ShouldValidate() bool {
	return c.ValidateOutput == nil || *c.ValidateOutput
}

func inferFormat(path string) string {
	if path == Stdout {
		return FormatJSON
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
