package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateFeatureName = errors.New("duplicate feature name")
	ErrUnknownFeature       = errors.New("unknown feature")
	ErrMarkerNotFound       = errors.New("marker not found")
	ErrDuplicateMarker      = errors.New("duplicate marker")
	ErrRegistryClosed       = errors.New("registry has been cleaned up")
	ErrAlreadyInitialized   = errors.New("registry already initialized")
)

// MarkerError reports a template/injection mismatch found during composition.
// It unwraps to ErrMarkerNotFound or ErrDuplicateMarker.
type MarkerError struct {
	Point   InjectionPoint
	Feature string
	// Lines holds the 1-based template lines of every marker for Point
	// (duplicate markers only).
	Lines []int
	Err   error
}

func (e *MarkerError) Error() string {
	switch {
	case errors.Is(e.Err, ErrDuplicateMarker):
		lines := make([]string, len(e.Lines))
		for i, l := range e.Lines {
			lines[i] = fmt.Sprint(l)
		}
		return fmt.Sprintf("%s: %s appears on lines %s", e.Err, e.Point.Marker(), strings.Join(lines, ", "))
	case e.Feature != "":
		return fmt.Sprintf("%s: feature %s injects into %s but the template has no %q line", e.Err, e.Feature, e.Point, e.Point.Marker())
	default:
		return fmt.Sprintf("%s: %s", e.Err, e.Point.Marker())
	}
}

func (e *MarkerError) Unwrap() error {
	return e.Err
}
