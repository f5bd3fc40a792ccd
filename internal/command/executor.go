package command

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"castpress/internal/artifact"
	"castpress/internal/logging"
	"castpress/internal/services"
)

// Spec describes one executor invocation.
type Spec struct {
	Step    string
	Runner  Runner
	Options []string
	Input   json.RawMessage
	// Timeout bounds the invocation; zero means no limit.
	Timeout time.Duration
	// Persist, when set, writes the raw output verbatim to the named
	// artifact before the result is returned.
	Persist *artifact.Descriptor
}

// Executor runs steps under the contract and persists their outputs.
type Executor struct {
	store  *artifact.Store
	logger *slog.Logger
}

// NewExecutor builds an executor writing into the given artifact store.
func NewExecutor(store *artifact.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{store: store, logger: logger}
}

// Execute runs one step to completion and returns its output document.
// Failures come back tagged with the step taxonomy; the executor itself
// never retries.
func (e *Executor) Execute(ctx context.Context, spec Spec) (json.RawMessage, error) {
	if spec.Runner == nil {
		return nil, services.Wrap(services.ErrConfiguration, spec.Step, "execute", "no runner configured", nil)
	}

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	logger := logging.WithContext(runCtx, e.logger)
	start := time.Now()
	output, err := spec.Runner.Run(runCtx, Request{Step: spec.Step, Options: spec.Options, Input: spec.Input})
	if err != nil {
		if spec.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrStepTimeout) {
			err = services.Wrap(services.ErrStepTimeout, spec.Step, "execute", spec.Timeout.String(), err)
		}
		logger.Debug("step execution failed",
			logging.String(logging.FieldStep, spec.Step),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err),
		)
		return nil, err
	}

	if len(output) == 0 || !json.Valid(output) {
		return nil, services.Wrap(services.ErrStepOutputInvalid, spec.Step, "validate output",
			"runner returned a malformed document", nil)
	}

	if spec.Persist != nil {
		path, err := e.store.Save(*spec.Persist, append(append([]byte{}, output...), '\n'))
		if err != nil {
			return nil, services.Wrap(services.ErrStepFailed, spec.Step, "persist output", "", err)
		}
		logger.Debug("artifact written",
			logging.String(logging.FieldStep, spec.Step),
			logging.String(logging.FieldArtifact, path),
		)
	}

	logger.Debug("step executed",
		logging.String(logging.FieldStep, spec.Step),
		logging.Duration("elapsed", time.Since(start)),
	)
	return output, nil
}
