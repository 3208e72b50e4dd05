package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/refdoc/config"
	"github.com/vitalvas/refdoc/docerrors"
)

func writeProject(t *testing.T, configYAML string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"routes.yaml": `
routes:
  - {path: /users, verb: get, handle: users.list}
  - {path: "/users/:id", verb: get, handle: users.show}
`,
		"annotations.yaml": `
annotations:
  users.list:
    summary: List users
    responses:
      200: [{$ref: schemas/User}]
  users.show:
    summary: Show user
    responses:
      200: {$ref: schemas/User}
`,
		"definitions.yaml": `
schemas:
  User:
    properties:
      id: {type: uuid, required: true}
`,
		"refdoc.yaml": configYAML,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return filepath.Join(dir, "refdoc.yaml")
}

const projectConfig = `
title: Users API
version: 1.0.0
router: routes.yaml
annotations: annotations.yaml
definitions: definitions.yaml
outputs:
  - path: openapi.json
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestGenerate(t *testing.T) {
	t.Run("configured outputs", func(t *testing.T) {
		cfgPath := writeProject(t, projectConfig)

		_, stderr, err := run(t, "--config", cfgPath, "generate")
		require.NoError(t, err)
		assert.Contains(t, stderr, "document written")

		data, err := os.ReadFile(filepath.Join(filepath.Dir(cfgPath), "openapi.json"))
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "3.0.3", doc["openapi"])
		assert.Len(t, doc["paths"], 2)
	})

	t.Run("output flags replace configured outputs", func(t *testing.T) {
		cfgPath := writeProject(t, projectConfig)
		out := filepath.Join(t.TempDir(), "api.yaml")

		stdout, _, err := run(t, "-c", cfgPath, "generate", "-o", out, "--output", "-")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"openapi": "3.0.3"`)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "openapi: 3.0.3\n")

		_, err = os.Stat(filepath.Join(filepath.Dir(cfgPath), "openapi.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("verbose logs debug records", func(t *testing.T) {
		cfgPath := writeProject(t, projectConfig)
		_, stderr, err := run(t, "-v", "-c", cfgPath, "generate", "-o", "-")
		require.NoError(t, err)
		assert.Contains(t, stderr, "level=DEBUG")
	})

	t.Run("failed output exits with error", func(t *testing.T) {
		cfgPath := writeProject(t, projectConfig)
		blocked := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocked, nil, 0o600))

		stdout, _, err := run(t, "-c", cfgPath, "generate", "-o", filepath.Join(blocked, "x.json"), "-o", "-")
		require.Error(t, err)
		assert.ErrorIs(t, err, docerrors.ErrWrite)
		assert.Contains(t, err.Error(), "1 of 2 outputs failed")
		assert.NotEmpty(t, stdout)
	})

	t.Run("missing config", func(t *testing.T) {
		_, _, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "generate")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("config without outputs", func(t *testing.T) {
		cfgPath := writeProject(t, "title: x\nversion: y\nrouter: routes.yaml\n")
		_, _, err := run(t, "-c", cfgPath, "generate")
		assert.ErrorIs(t, err, docerrors.ErrConfig)
	})
}

func TestApplyGenerateFlags(t *testing.T) {
	cmd := newGenerateCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--output", "a.json", "--output", " - ", "--no-validate"}))

	cfg := &config.Config{Outputs: []config.Output{{Path: "old.json"}}}
	require.NoError(t, applyGenerateFlags(cmd.Flags(), cfg))
	assert.Equal(t, []config.Output{{Path: "a.json"}, {Path: "-"}}, cfg.Outputs)
	assert.False(t, cfg.ShouldValidate())
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid project", func(t *testing.T) {
		cfgPath := writeProject(t, "title: Users API\nversion: 1.0.0\nrouter: routes.yaml\nannotations: annotations.yaml\ndefinitions: definitions.yaml\n")

		stdout, _, err := run(t, "-c", cfgPath, "validate")
		require.NoError(t, err)
		assert.Equal(t, "Users API 1.0.0: valid OpenAPI 3.0.3 document with 2 paths\n", stdout)
	})

	t.Run("unresolved ref", func(t *testing.T) {
		cfgPath := writeProject(t, "title: Users API\nversion: 1.0.0\nrouter: routes.yaml\nannotations: annotations.yaml\n")
		_, _, err := run(t, "-c", cfgPath, "validate")
		assert.Error(t, err)
	})
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"generate", "--unknown-flag"}, want: "unknown flag"},
		{name: "unexpected argument", args: []string{"validate", "extra"}, want: "unexpected arguments: extra"},
		{name: "unknown ui", args: []string{"serve", "--ui", "elements"}, want: "unknown docs UI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUsage)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHelp(t *testing.T) {
	stdout, _, err := run(t)
	require.NoError(t, err)
	assert.Contains(t, stdout, "generate")
	assert.Contains(t, stdout, "serve")
	assert.Contains(t, stdout, "validate")
}
