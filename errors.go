package agentm

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrValidationFailed is matched by every *ValidationError.
	ErrValidationFailed = errors.New("validation failed")

	ErrDuplicateCollection = errors.New("collection already registered")
	ErrNoCollection        = errors.New("no collection name")
)

// ValidationError reports a value rejected by a Writable's validator.
type ValidationError struct {
	Key   string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v (%T): %v", e.Key, e.Value, e.Value, ErrValidationFailed)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// PathError reports a dotted path that cannot be resolved because a segment
// holds a value of the wrong shape.
type PathError struct {
	Path    []string
	Segment int
	Value   any
	Msg     string
}

func pathErrf(path []string, seg int, value any, format string, args ...any) error {
	return &PathError{path, seg, value, fmt.Sprintf(format, args...)}
}

func (e *PathError) Error() string {
	var buf strings.Builder
	buf.WriteString(strings.Join(e.Path, "."))
	if e.Segment >= 0 && e.Segment < len(e.Path) {
		buf.WriteString(" at ")
		buf.WriteString(strings.Join(e.Path[:e.Segment+1], "."))
	}
	buf.WriteString(": ")
	buf.WriteString(e.Msg)
	fmt.Fprintf(&buf, " (found %T)", e.Value)
	return buf.String()
}
