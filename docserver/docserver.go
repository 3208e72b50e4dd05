// Package docserver serves a rendered document over HTTP: the JSON and YAML
// encodings plus an interactive HTML reference page.
package docserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"maps"
	"net/http"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/gorilla/mux"
	"github.com/vitalvas/refdoc/config"
	"github.com/vitalvas/refdoc/openapi"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(
	template.New("docs").Funcs(sprig.FuncMap()).ParseFS(templatesFS, "templates/*.html"),
)

// UI selects the interactive documentation page.
type UI int

const (
	SwaggerUI UI = iota
	RapiDoc
	Redoc
)

func (u UI) template() string {
	switch u {
	case RapiDoc:
		return "rapidoc.html"
	case Redoc:
		return "redoc.html"
	default:
		return "swagger-ui.html"
	}
}

// ParseUI maps a UI name as used on the command line.
func ParseUI(name string) (UI, error) {
	switch strings.ToLower(name) {
	case "", "swagger", "swagger-ui":
		return SwaggerUI, nil
	case "rapidoc":
		return RapiDoc, nil
	case "redoc":
		return Redoc, nil
	}
	return SwaggerUI, fmt.Errorf("unknown docs UI %q", name)
}

// Config configures the endpoints registered by Register.
type Config struct {
	// UI selects the docs page (default: SwaggerUI).
	UI UI

	// Title overrides the page title (default: info.title).
	Title string

	// JSONFilename is the path of the JSON endpoint (default: "openapi.json").
	// Set to "-" to disable.
	//
	// Relative paths are joined with the base path:
	//
	//	"openapi.json"      -> <basePath>/openapi.json
	//	"v1/openapi.json"   -> <basePath>/v1/openapi.json
	//
	// Absolute paths (starting with "/") are used as-is.
	JSONFilename string

	// YAMLFilename is the path of the YAML endpoint (default: "openapi.yaml").
	// Same rules as JSONFilename.
	YAMLFilename string

	// DisableDocs disables the HTML page.
	DisableDocs bool

	// CacheControl is the Cache-Control value of every response (default:
	// DefaultCacheControl). Set to "-" to omit the header.
	CacheControl string

	// SwaggerUIConfig is merged into the SwaggerUIBundle options, for
	// example {"docExpansion": "none"}. Only used with SwaggerUI.
	//
	// See: https://swagger.io/docs/open-source-tools/swagger-ui/usage/configuration/
	SwaggerUIConfig map[string]any
}

func (cfg *Config) cacheControl() string {
	switch cfg.CacheControl {
	case "":
		return DefaultCacheControl
	case "-":
		return ""
	}
	return cfg.CacheControl
}

func (cfg *Config) jsonFilename() string {
	if cfg.JSONFilename == "" {
		return "openapi.json"
	}
	return cfg.JSONFilename
}

func (cfg *Config) yamlFilename() string {
	if cfg.YAMLFilename == "" {
		return "openapi.yaml"
	}
	return cfg.YAMLFilename
}

// resolvePath returns the route path for filename. Absolute filenames are
// returned as-is; relative ones are joined under basePath.
func resolvePath(basePath, filename string) string {
	if strings.HasPrefix(filename, "/") {
		return filename
	}
	return basePath + "/" + filename
}

// Register adds the document endpoints under basePath. Depending on cfg the
// routes are:
//
//	<basePath>/            - HTML reference page (unless DisableDocs)
//	<JSONFilename path>    - document as JSON (unless "-")
//	<YAMLFilename path>    - document as YAML (unless "-")
//
// Both encodings and the page are rendered once, here; a nil cfg uses the
// defaults. The page points at the JSON endpoint, or at the YAML one when
// JSON is disabled, and is skipped when both are.
func Register(r *mux.Router, basePath string, doc *openapi.Document, cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	basePath = strings.TrimRight(basePath, "/")

	var specURL string

	if name := cfg.yamlFilename(); name != "-" {
		data, err := openapi.Encode(doc, config.FormatYAML)
		if err != nil {
			return err
		}
		specURL = resolvePath(basePath, name)
		if err := handle(r, specURL, "application/x-yaml", cfg.cacheControl(), data); err != nil {
			return err
		}
	}

	if name := cfg.jsonFilename(); name != "-" {
		data, err := openapi.Encode(doc, config.FormatJSON)
		if err != nil {
			return err
		}
		specURL = resolvePath(basePath, name)
		if err := handle(r, specURL, "application/json", cfg.cacheControl(), data); err != nil {
			return err
		}
	}

	if cfg.DisableDocs || specURL == "" {
		return nil
	}

	page, err := renderPage(doc, cfg, specURL)
	if err != nil {
		return err
	}
	if basePath == "" {
		return handle(r, "/", "text/html; charset=utf-8", cfg.cacheControl(), page)
	}
	if err := handle(r, basePath, "text/html; charset=utf-8", cfg.cacheControl(), page); err != nil {
		return err
	}
	return handle(r, basePath+"/", "text/html; charset=utf-8", cfg.cacheControl(), page)
}

func renderPage(doc *openapi.Document, cfg *Config, specURL string) ([]byte, error) {
	title := cfg.Title
	if title == "" {
		title = doc.Info.Title
	}

	options := map[string]any{"dom_id": "#swagger-ui"}
	maps.Copy(options, cfg.SwaggerUIConfig)
	options["url"] = specURL

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, cfg.UI.template(), map[string]any{
		"Title":   title,
		"SpecURL": specURL,
		"Options": options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render docs page: %w", err)
	}
	return buf.Bytes(), nil
}

func handle(r *mux.Router, path, contentType, cacheControl string, data []byte) error {
	p, err := newPayload(contentType, cacheControl, data)
	if err != nil {
		return err
	}
	r.Handle(path, p).Methods(http.MethodGet, http.MethodHead)
	return nil
}
