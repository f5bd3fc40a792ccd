package command

import (
	"context"
	"encoding/json"
)

// Request is one step invocation under the contract.
type Request struct {
	// Step is the logical step name, used in diagnostics.
	Step string
	// Options are step-specific string options (argv tokens for external
	// steps).
	Options []string
	// Input is the prior step's output document, or nil for the first step.
	Input json.RawMessage
}

// Runner executes one step invocation and returns its output document.
// Implementations translate their failures into the services error taxonomy;
// the executor handles anything left untyped.
type Runner interface {
	Run(ctx context.Context, req Request) (json.RawMessage, error)
}

// RunnerFunc adapts a function to the Runner interface, used by the built-in
// step adapters.
type RunnerFunc func(ctx context.Context, req Request) (json.RawMessage, error)

func (f RunnerFunc) Run(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}
