package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid requests rejected before any step runs,
	// such as an illegal transcript state transition.
	ErrConfiguration = errors.New("configuration error")
	// ErrStepFailed marks a step process that exited non-zero.
	ErrStepFailed = errors.New("step failed")
	// ErrStepOutputInvalid marks a step that produced a malformed output document.
	ErrStepOutputInvalid = errors.New("step output invalid")
	// ErrStepTimeout marks a step that exceeded its deadline.
	ErrStepTimeout = errors.New("step timed out")
	// ErrDetectorIO marks an unreadable working directory, distinguished from
	// "no artifacts found yet" so resumption never silently restarts.
	ErrDetectorIO = errors.New("detector io error")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error must abort the run regardless of the step's
// soft/hard declaration. Configuration and detector failures are never
// survivable because they indicate the run was set up incorrectly.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrDetectorIO)
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
