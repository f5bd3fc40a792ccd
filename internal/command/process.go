package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"

	"castpress/internal/services"
)

var commandContext = exec.CommandContext

// ProcessRunner invokes an external step command under the stdin/stdout
// JSON contract. The configured argv is extended with the request options.
type ProcessRunner struct {
	argv []string
}

// NewProcessRunner builds a runner for the given command line.
func NewProcessRunner(argv []string) *ProcessRunner {
	return &ProcessRunner{argv: argv}
}

// Run executes the command, feeding the input document on stdin and reading
// exactly one JSON document from stdout. A non-zero exit becomes
// ErrStepFailed carrying the captured stderr diagnostics; malformed stdout
// becomes ErrStepOutputInvalid; a context deadline becomes ErrStepTimeout.
func (r *ProcessRunner) Run(ctx context.Context, req Request) (json.RawMessage, error) {
	if len(r.argv) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, req.Step, "run command", "empty command line", nil)
	}

	args := append(append([]string{}, r.argv[1:]...), req.Options...)
	cmd := commandContext(ctx, r.argv[0], args...) //nolint:gosec
	if len(req.Input) > 0 {
		cmd.Stdin = bytes.NewReader(req.Input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrStepTimeout, req.Step, "run command", r.argv[0], ctx.Err())
		}
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		return nil, services.Wrap(services.ErrStepFailed, req.Step, "run command", diagnostic, err)
	}

	output := bytes.TrimSpace(stdout.Bytes())
	if len(output) == 0 || !json.Valid(output) {
		return nil, services.Wrap(services.ErrStepOutputInvalid, req.Step, "parse output",
			"step did not emit a single JSON document", nil)
	}
	return json.RawMessage(output), nil
}
