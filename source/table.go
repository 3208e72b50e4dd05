package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vitalvas/refdoc/route"
	"gopkg.in/yaml.v3"
)

// Table is a static list of endpoints.
type Table []route.Endpoint

// Endpoints returns a copy of the table.
func (t Table) Endpoints(ctx context.Context) ([]route.Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]route.Endpoint(nil), t...), nil
}

type tableFile struct {
	Routes []tableEntry `yaml:"routes"`
}

type tableEntry struct {
	Path      string   `yaml:"path"`
	Verb      string   `yaml:"verb"`
	Verbs     []string `yaml:"verbs"`
	Handle    string   `yaml:"handle"`
	Pipelines []string `yaml:"pipelines"`
}

// LoadTable reads a YAML route table from disk.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseTable decodes a YAML route table:
//
//	routes:
//	  - path: /users/:id
//	    verbs: [get, delete]
//	    handle: users.show
//	    pipelines: [api]
//
// Entries with several verbs expand to one endpoint per verb. An entry
// without a handle gets "<VERB> <path>" for each verb.
func ParseTable(data []byte) (Table, error) {
	var file tableFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}

	var out Table
	for i, entry := range file.Routes {
		if entry.Path == "" {
			return nil, fmt.Errorf("routes[%d]: path is required", i)
		}
		verbs := entry.Verbs
		if entry.Verb != "" {
			verbs = append([]string{entry.Verb}, verbs...)
		}
		if len(verbs) == 0 {
			return nil, fmt.Errorf("routes[%d]: verb is required", i)
		}
		for _, verb := range verbs {
			handle := entry.Handle
			if handle == "" {
				handle = DefaultHandle(strings.ToUpper(verb), entry.Path)
			}
			out = append(out, route.Endpoint{
				Path:      entry.Path,
				Verb:      strings.ToLower(verb),
				Handle:    handle,
				Pipelines: entry.Pipelines,
			})
		}
	}
	return out, nil
}
