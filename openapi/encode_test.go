package openapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/refdoc/config"
	"github.com/vitalvas/refdoc/definition"
	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
	"github.com/vitalvas/refdoc/route"
	"gopkg.in/yaml.v3"
)

func sampleDocument(t *testing.T) *Document {
	t.Helper()

	team := definition.NewSchema("Team")
	user := definition.NewSchema("User").
		Describe("A registered user").
		Property("id", map[string]any{"type": "uuid", "required": true}).
		Property("team", team)
	team.Property("name", "string").Property("members", []any{user})

	rate := definition.NewHeaders("RateLimit").Header("X-Limit", "integer")
	resp := definition.NewResponse("UserResponse").
		HeaderRef(rate).
		Content("application/json", user)
	req := definition.NewRequestBody("CreateUser").Content("application/json", user)

	cfg := testConfig()
	cfg.SecuritySchemes = map[string]config.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	return process(t, cfg, []route.Route{
		{
			Path:      "/users",
			Verb:      "get",
			ID:        "listUsers",
			Tags:      []string{"users"},
			Auth:      map[string][]string{"bearer": {}},
			Responses: map[string]route.Response{"200": {Field: field.ListOf(field.RefTo(user))}},
		},
		{
			Path: "/users",
			Verb: "post",
			ID:   "createUser",
			Body: field.RefTo(req),
			Responses: map[string]route.Response{
				"201": {Field: field.RefTo(resp)},
				"409": {NoBody: true},
			},
		},
		{
			Path:       "/users/{id:uuid}",
			Verb:       "delete",
			ID:         "deleteUser",
			Headers:    map[string]field.Field{"X-Reason": field.Primitive("string").Describe("Audit reason")},
			Responses:  map[string]route.Response{"204": {NoBody: true}},
			Deprecated: true,
		},
	})
}

func TestEncode(t *testing.T) {
	doc := sampleDocument(t)

	t.Run("json", func(t *testing.T) {
		data, err := Encode(doc, config.FormatJSON)
		require.NoError(t, err)
		assert.Contains(t, string(data), "\n  \"openapi\": \"3.0.3\"")

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Contains(t, decoded, "paths")
	})

	t.Run("yaml matches json", func(t *testing.T) {
		jsonData, err := Encode(doc, config.FormatJSON)
		require.NoError(t, err)
		yamlData, err := Encode(doc, config.FormatYAML)
		require.NoError(t, err)

		var fromJSON, fromYAML any
		require.NoError(t, json.Unmarshal(jsonData, &fromJSON))
		require.NoError(t, yaml.Unmarshal(yamlData, &fromYAML))

		// Round-trip the YAML value through JSON so numeric types line up.
		normalized, err := json.Marshal(fromYAML)
		require.NoError(t, err)
		var fromYAMLJSON any
		require.NoError(t, json.Unmarshal(normalized, &fromYAMLJSON))

		assert.Equal(t, fromJSON, fromYAMLJSON)
	})

	t.Run("yaml is block style and keeps status codes as strings", func(t *testing.T) {
		data, err := Encode(doc, config.FormatYAML)
		require.NoError(t, err)
		out := string(data)
		assert.Contains(t, out, "openapi: 3.0.3\n")
		assert.Contains(t, out, `"204":`)
		assert.Contains(t, out, "paths:\n  /users:\n")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := Encode(doc, "xml")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("rendered document is valid", func(t *testing.T) {
		assert.NoError(t, Validate(context.Background(), sampleDocument(t)))
	})

	t.Run("yaml data", func(t *testing.T) {
		data, err := Encode(sampleDocument(t), config.FormatYAML)
		require.NoError(t, err)
		assert.NoError(t, ValidateData(context.Background(), data))
	})

	t.Run("missing component", func(t *testing.T) {
		doc := sampleDocument(t)
		delete(doc.Components.Schemas, "Team")

		err := Validate(context.Background(), doc)
		require.Error(t, err)
		assert.ErrorIs(t, err, docerrors.ErrValidation)
	})

	t.Run("missing path parameter", func(t *testing.T) {
		doc := sampleDocument(t)
		doc.Paths["/users/{id}"].Delete.Parameters = nil

		err := Validate(context.Background(), doc)
		assert.ErrorIs(t, err, docerrors.ErrValidation)
	})

	t.Run("not a document", func(t *testing.T) {
		err := ValidateData(context.Background(), []byte("openapi: ["))
		assert.ErrorIs(t, err, docerrors.ErrValidation)
	})
}
