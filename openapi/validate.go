package openapi

import (
	"context"
	"encoding/json"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/vitalvas/refdoc/docerrors"
)

// Validate checks doc against the OpenAPI 3.0 specification.
func Validate(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return &docerrors.ValidationError{Message: "failed to encode document", Cause: err}
	}
	return ValidateData(ctx, data)
}

// ValidateData checks a JSON or YAML OpenAPI 3.0 document.
func ValidateData(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return &docerrors.ValidationError{Message: "failed to load document", Cause: err}
	}
	if err := doc.Validate(ctx); err != nil {
		return &docerrors.ValidationError{Cause: err}
	}
	return nil
}
