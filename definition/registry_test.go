package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
)

const definitionsYAML = `
schemas:
  User:
    description: A registered user
    properties:
      id: {type: uuid, required: true}
      manager: {$ref: schemas/User}
      team: {$ref: "#/components/schemas/Team"}
  Team:
    properties:
      members: [{$ref: schemas/User}]
headers:
  RateLimit:
    description: Rate limit state
    headers:
      X-RateLimit-Limit: {type: integer, required: true}
responses:
  UserResponse:
    description: The user
    headers:
      - {$ref: headers/RateLimit}
      - {X-Request-Id: uuid}
    content:
      application/json:
        schema: {$ref: schemas/User}
        examples:
          basic: {id: 7c9e6679-7425-40de-944b-e07fc1f90ae7}
request_bodies:
  CreateUser:
    required: false
    content:
      application/json:
        schema:
          name: {type: string, required: true}
`

func TestParseRegistry(t *testing.T) {
	reg, err := ParseRegistry([]byte(definitionsYAML))
	require.NoError(t, err)
	assert.Equal(t, 5, reg.Len())

	t.Run("cyclic textual refs resolve to the same identity", func(t *testing.T) {
		userDef, ok := reg.Resolve(field.DefSchema, "User")
		require.True(t, ok)
		teamDef, ok := reg.Resolve(field.DefSchema, "Team")
		require.True(t, ok)

		user, err := userDef.(SchemaDefinition).SchemaShape()
		require.NoError(t, err)
		assert.Same(t, userDef, user.Object.Properties["manager"].Ref)
		assert.Same(t, teamDef, user.Object.Properties["team"].Ref)

		team, err := teamDef.(SchemaDefinition).SchemaShape()
		require.NoError(t, err)
		require.Len(t, team.Object.Properties["members"].Of, 1)
		assert.Same(t, userDef, team.Object.Properties["members"].Of[0].Ref)
	})

	t.Run("response header sets", func(t *testing.T) {
		def, ok := reg.Resolve(field.DefResponse, "UserResponse")
		require.True(t, ok)
		shape, err := def.(ResponseDefinition).ResponseShape()
		require.NoError(t, err)

		rate, _ := reg.Resolve(field.DefHeaders, "RateLimit")
		require.Len(t, shape.HeaderSets, 2)
		assert.Same(t, rate, shape.HeaderSets[0].Ref)
		assert.Equal(t, field.Primitive("uuid"), shape.HeaderSets[1].Inline["X-Request-Id"])
		assert.NotNil(t, shape.Content["application/json"].Examples["basic"])
	})

	t.Run("request body", func(t *testing.T) {
		def, ok := reg.Resolve(field.DefRequestBody, "CreateUser")
		require.True(t, ok)
		shape, err := def.(RequestBodyDefinition).RequestBodyShape()
		require.NoError(t, err)
		assert.False(t, shape.Required)
		assert.True(t, shape.Content["application/json"].Schema.Properties["name"].Required)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, ok := reg.Resolve(field.DefSchema, "Ghost")
		assert.False(t, ok)
	})
}

func TestParseRegistryErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target error
	}{
		{
			name:   "unknown top-level key",
			input:  "tables: {}",
			target: nil,
		},
		{
			name:   "dangling ref",
			input:  "schemas:\n  A:\n    properties:\n      b: {$ref: schemas/B}\n",
			target: docerrors.ErrReference,
		},
		{
			name:   "bad metadata",
			input:  "schemas:\n  A:\n    properties:\n      n: {type: integer, minimum: low}\n",
			target: docerrors.ErrNormalize,
		},
		{
			name:   "header set pointing at a schema",
			input:  "schemas:\n  A: {}\nresponses:\n  R:\n    headers: [{$ref: schemas/A}]\n",
			target: docerrors.ErrReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.input))
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestParseRegistryEmpty(t *testing.T) {
	reg, err := ParseRegistry(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestLoadRegistry(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "definitions.yaml")
		require.NoError(t, os.WriteFile(path, []byte(definitionsYAML), 0o600))

		reg, err := LoadRegistry(path)
		require.NoError(t, err)
		assert.Equal(t, 5, reg.Len())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestRegistryAdd(t *testing.T) {
	t.Run("duplicate name", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Add(NewSchema("User")))
		err := reg.Add(NewSchema("User"))
		var rerr *docerrors.ReferenceError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "User", rerr.Name)
	})

	t.Run("same definition twice", func(t *testing.T) {
		reg := NewRegistry()
		s := NewSchema("User")
		require.NoError(t, reg.Add(s, s))
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("same name across kinds", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Add(NewSchema("User"), NewResponse("User")))
		assert.Len(t, reg.Definitions(), 2)
	})

	t.Run("binds textual refs", func(t *testing.T) {
		reg := NewRegistry()
		team := NewSchema("Team")
		user := NewSchema("User").Property("team", map[string]any{"$ref": "schemas/Team"})
		require.NoError(t, reg.Add(team, user))
		require.NoError(t, reg.Seal())

		shape, err := user.SchemaShape()
		require.NoError(t, err)
		assert.Same(t, team, shape.Object.Properties["team"].Ref)
	})
}
