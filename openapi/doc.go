// Package openapi renders built routes and their collected definitions as an
// OpenAPI v3.0.3 document.
//
// See: https://spec.openapis.org/oas/v3.0.3
//
// # Processing
//
// Process groups routes by path and then by verb. Route paths are converted
// to OpenAPI form:
//
//	/users/:id         -> /users/{id}
//	/files/*path       -> /files/{path}
//	/items/{id:uuid}   -> /items/{id}
//
// Placeholders without a declared path parameter become required path
// parameters. Macros known from mux-style routers pick the schema:
//
//	{id:uuid}   -> {type: string, format: uuid}
//	{n:int}     -> {type: integer}
//	{d:date}    -> {type: string, format: date}
//
// Parameters are listed headers first, then path, then query, each group in
// name order.
//
// # Field Rendering
//
// A ref field renders as a link to components and is never inlined:
//
//	schema        -> {"$ref": "#/components/schemas/User"}
//	response      -> {"$ref": "#/components/responses/UserResponse"}
//	request body  -> {"$ref": "#/components/requestBodies/CreateUser"}
//
// Objects list their required properties in `required`, sorted. A list with
// one member renders its member as `items`; a list with several members
// renders `items: {oneOf: [...]}`.
//
// Header sets have no reusable form in OpenAPI 3.0, so they are expanded into
// the headers of the owning response. Header sets of a request body become
// header parameters of every operation using it.
//
// # Encoding and Validation
//
// Encode produces indented JSON or YAML with identical key names:
//
//	data, err := openapi.Encode(doc, config.FormatYAML)
//
// Validate loads the JSON form with kin-openapi and checks it against the
// OpenAPI 3.0 rules:
//
//	if err := openapi.Validate(ctx, doc); err != nil {
//	    // errors.Is(err, docerrors.ErrValidation)
//	}
package openapi
