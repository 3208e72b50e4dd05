package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
)

func TestSchema(t *testing.T) {
	t.Run("builds an object from properties", func(t *testing.T) {
		s := NewSchema("User").
			Describe("A registered user").
			Property("id", map[string]any{"type": "uuid", "required": true}).
			Property("name", "string").
			Example(map[string]any{"name": "jane"})

		shape, err := s.SchemaShape()
		require.NoError(t, err)
		assert.Equal(t, "User", shape.Name)
		assert.Equal(t, "A registered user", shape.Description)
		assert.Equal(t, field.KindObject, shape.Object.Kind)
		assert.True(t, shape.Object.Properties["id"].Required)
		assert.Equal(t, field.Primitive("string"), shape.Object.Properties["name"])
		assert.Equal(t, map[string]any{"name": "jane"}, shape.Example)
	})

	t.Run("property named type stays a property", func(t *testing.T) {
		shape, err := NewSchema("Pet").Properties(map[string]any{"type": "string", "name": "string"}).SchemaShape()
		require.NoError(t, err)
		assert.Len(t, shape.Object.Properties, 2)
		assert.Equal(t, field.Primitive("string"), shape.Object.Properties["type"])
	})

	t.Run("empty schema is an empty object", func(t *testing.T) {
		shape, err := NewSchema("Empty").SchemaShape()
		require.NoError(t, err)
		assert.Equal(t, field.Object(nil), shape.Object)
	})

	t.Run("identity and kind", func(t *testing.T) {
		s := NewSchema("User")
		assert.Equal(t, field.DefSchema, s.DefKind())
		assert.Equal(t, "User", s.DefName())

		f, err := field.Normalize(s)
		require.NoError(t, err)
		assert.Same(t, s, f.Ref)
	})

	t.Run("shape is computed once", func(t *testing.T) {
		s := NewSchema("User").Property("id", "uuid")
		first, err := s.SchemaShape()
		require.NoError(t, err)
		second, err := s.SchemaShape()
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("mutating a sealed schema panics", func(t *testing.T) {
		s := NewSchema("User")
		_, err := s.SchemaShape()
		require.NoError(t, err)
		assert.PanicsWithValue(t, `definition: schema "User" modified after it was sealed`, func() {
			s.Property("id", "uuid")
		})
	})

	t.Run("bad properties input fails on seal", func(t *testing.T) {
		_, err := NewSchema("User").Properties("nope").SchemaShape()
		assert.ErrorIs(t, err, docerrors.ErrNormalize)
	})

	t.Run("bad property fails with the schema name", func(t *testing.T) {
		s := NewSchema("User").Property("age", map[string]any{"type": "integer", "minimum": "x"})
		_, err := s.SchemaShape()
		require.Error(t, err)
		assert.ErrorIs(t, err, docerrors.ErrNormalize)
		assert.Contains(t, err.Error(), `schema "User"`)

		_, again := s.SchemaShape()
		assert.Equal(t, err, again)
	})
}

func TestResponse(t *testing.T) {
	user := NewSchema("User").Property("id", "uuid")
	rate := NewHeaders("RateLimit").Header("X-RateLimit-Limit", map[string]any{"type": "integer", "required": true})

	t.Run("content and header sets", func(t *testing.T) {
		resp := NewResponse("UserResponse").
			Describe("The user").
			Header("X-Request-Id", "uuid").
			HeaderRef(rate).
			Content("application/json", user).
			Example("application/json", "basic", map[string]any{"id": "1"})

		shape, err := resp.ResponseShape()
		require.NoError(t, err)
		assert.Equal(t, "UserResponse", shape.Name)
		assert.False(t, shape.Required)

		require.Len(t, shape.HeaderSets, 2)
		assert.Equal(t, field.Primitive("uuid"), shape.HeaderSets[0].Inline["X-Request-Id"])
		assert.Same(t, rate, shape.HeaderSets[1].Ref)

		content := shape.Content["application/json"]
		assert.Equal(t, field.KindRef, content.Schema.Kind)
		assert.Same(t, user, content.Schema.Ref)
		assert.Equal(t, map[string]any{"id": "1"}, content.Examples["basic"])
	})

	t.Run("later headers join the implicit set", func(t *testing.T) {
		shape, err := NewResponse("R").Header("A", "string").Header("B", "integer").ResponseShape()
		require.NoError(t, err)
		require.Len(t, shape.HeaderSets, 1)
		assert.Len(t, shape.HeaderSets[0].Inline, 2)
	})

	t.Run("header ref must point at headers", func(t *testing.T) {
		_, err := NewResponse("R").HeaderRef(user).ResponseShape()
		var rerr *docerrors.ReferenceError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "User", rerr.Name)
	})

	t.Run("header must be primitive", func(t *testing.T) {
		_, err := NewResponse("R").Header("X-User", user).ResponseShape()
		var nerr *docerrors.NormalizeError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, "headers[0].X-User", nerr.Path)
	})

	t.Run("textual header ref without resolver", func(t *testing.T) {
		_, err := NewResponse("R").HeaderSet(map[string]any{"$ref": "headers/RateLimit"}).ResponseShape()
		assert.ErrorIs(t, err, docerrors.ErrReference)
	})

	t.Run("content without schema", func(t *testing.T) {
		shape, err := NewResponse("Blob").Content("application/octet-stream", nil).ResponseShape()
		require.NoError(t, err)
		assert.True(t, shape.Content["application/octet-stream"].Schema.IsZero())
	})
}

func TestRequestBody(t *testing.T) {
	t.Run("required by default", func(t *testing.T) {
		shape, err := NewRequestBody("CreateUser").Content("application/json", map[string]any{"name": "string"}).RequestBodyShape()
		require.NoError(t, err)
		assert.True(t, shape.Required)
		assert.Equal(t, field.KindObject, shape.Content["application/json"].Schema.Kind)
	})

	t.Run("optional", func(t *testing.T) {
		shape, err := NewRequestBody("Patch").Required(false).RequestBodyShape()
		require.NoError(t, err)
		assert.False(t, shape.Required)
	})

	t.Run("kind", func(t *testing.T) {
		assert.Equal(t, field.DefRequestBody, NewRequestBody("X").DefKind())
		assert.Equal(t, field.DefResponse, NewResponse("X").DefKind())
	})
}

func TestHeaders(t *testing.T) {
	t.Run("primitive headers", func(t *testing.T) {
		shape, err := NewHeaders("Paging").
			Describe("Paging headers").
			Header("X-Total", map[string]any{"type": "integer", "required": true}).
			Header("X-Cursor", "string").
			HeadersShape()
		require.NoError(t, err)
		assert.Equal(t, "Paging headers", shape.Description)
		assert.True(t, shape.Headers["X-Total"].Required)
	})

	t.Run("non-primitive header", func(t *testing.T) {
		_, err := NewHeaders("Bad").Header("X-List", []any{"string"}).HeadersShape()
		var nerr *docerrors.NormalizeError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, "X-List", nerr.Path)
		assert.Contains(t, nerr.Message, "got list")
	})
}

func TestSeal(t *testing.T) {
	assert.NoError(t, Seal(NewSchema("A")))
	assert.NoError(t, Seal(NewHeaders("H")))
	assert.Error(t, Seal(NewResponse("R").HeaderRef(NewSchema("S"))))
	assert.ErrorIs(t, Seal(NewRequestBody("B").Content("application/json", "nope")), docerrors.ErrNormalize)
}
