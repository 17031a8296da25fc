package gateway

import (
	"context"
	"fmt"

	"github.com/mkarasev/daytrip/tool"
)

// SchemaError reports model output that could not be decoded into the
// requested structure. Raw keeps the sanitized text for diagnostics.
type SchemaError struct {
	Raw string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("model output does not match schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Parse runs a single prompt and decodes the response into T. Markdown code
// fences around the JSON are tolerated.
func Parse[T any](ctx context.Context, g *Gateway, system, user string) (*T, error) {
	raw, err := g.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[T](raw)
	if err != nil {
		return nil, &SchemaError{Raw: sanitizeJSON(raw), Err: err}
	}
	return out, nil
}

// ParseWithTools runs the tool loop over the given registry and decodes the
// final response into T.
func ParseWithTools[T any](ctx context.Context, g *Gateway, system, user string, registry *tool.Registry) (*T, error) {
	response, err := g.run(ctx, buildMessages(system, user), registry)
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[T](response.Text())
	if err != nil {
		return nil, &SchemaError{Raw: sanitizeJSON(response.Text()), Err: err}
	}
	return out, nil
}
