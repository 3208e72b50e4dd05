package docerrors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "config with field",
			err:  &ConfigError{Field: "title", Message: "is required"},
			want: "configuration error at title: is required",
		},
		{
			name: "normalize with path",
			err:  &NormalizeError{Path: "properties.id.minimum", Message: "expected a number"},
			want: "normalization error at properties.id.minimum: expected a number",
		},
		{
			name: "route with cause",
			err:  &RouteError{Verb: "get", Path: "/users", Handle: "listUsers", Cause: errors.New("boom")},
			want: "route error for GET /users (listUsers): boom",
		},
		{
			name: "reference",
			err:  &ReferenceError{Kind: "schema", Name: "User", Message: "name already taken"},
			want: `reference error: schema "User": name already taken`,
		},
		{
			name: "validation",
			err:  &ValidationError{Cause: errors.New("paths missing")},
			want: "validation error: paths missing",
		},
		{
			name: "write",
			err:  &WriteError{Target: "out.json", Op: OpInit, Cause: fs.ErrPermission},
			want: "write error for out.json during init: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorsIs(t *testing.T) {
	t.Run("sentinels match through wrapping", func(t *testing.T) {
		err := fmt.Errorf("collect: %w", &ReferenceError{Kind: "schema", Name: "User"})
		assert.ErrorIs(t, err, ErrReference)
		assert.NotErrorIs(t, err, ErrConfig)
	})

	t.Run("causes are unwrapped", func(t *testing.T) {
		err := &WriteError{Target: "x", Op: OpWrite, Cause: fs.ErrPermission}
		assert.ErrorIs(t, err, fs.ErrPermission)
		assert.ErrorIs(t, err, ErrWrite)
	})

	t.Run("route error exposes inner normalize error", func(t *testing.T) {
		err := &RouteError{Path: "/x", Cause: &NormalizeError{Path: "body"}}
		assert.ErrorIs(t, err, ErrRoute)
		assert.ErrorIs(t, err, ErrNormalize)

		var nerr *NormalizeError
		assert.ErrorAs(t, err, &nerr)
		assert.Equal(t, "body", nerr.Path)
	})
}
