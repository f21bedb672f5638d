package features

import (
	"fmt"
	"strings"
)

// InjectionPoint is a named slot in a base shader template.
type InjectionPoint uint8

const (
	VertexPreamble InjectionPoint = iota
	VertexMain
	VertexPostProcess
	FragmentPreamble
	FragmentMain
	FragmentColorCalculation
	FragmentPostProcess

	numInjectionPoints
)

var injectionPointNames = [numInjectionPoints]string{
	VertexPreamble:           "VertexPreamble",
	VertexMain:               "VertexMain",
	VertexPostProcess:        "VertexPostProcess",
	FragmentPreamble:         "FragmentPreamble",
	FragmentMain:             "FragmentMain",
	FragmentColorCalculation: "FragmentColorCalculation",
	FragmentPostProcess:      "FragmentPostProcess",
}

// MarkerPrefix starts every marker line. The point name follows in upper case.
const MarkerPrefix = "// INJECT_"

// InjectionPoints returns every point in declaration order.
func InjectionPoints() []InjectionPoint {
	points := make([]InjectionPoint, numInjectionPoints)
	for i := range points {
		points[i] = InjectionPoint(i)
	}
	return points
}

func (p InjectionPoint) String() string {
	if !p.Valid() {
		return fmt.Sprintf("InjectionPoint(%d)", uint8(p))
	}
	return injectionPointNames[p]
}

func (p InjectionPoint) Valid() bool {
	return p < numInjectionPoints
}

// Marker is the sentinel a template line must consist of (after trimming) to
// be substituted with the injections for p.
func (p InjectionPoint) Marker() string {
	return MarkerPrefix + strings.ToUpper(p.String())
}

func (p InjectionPoint) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid injection point %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *InjectionPoint) UnmarshalText(b []byte) error {
	parsed, err := ParseInjectionPoint(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseInjectionPoint accepts a point name in any case, with or without
// underscores, e.g. "FragmentMain", "fragment_main" or "FRAGMENTMAIN".
func ParseInjectionPoint(s string) (InjectionPoint, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for i, name := range injectionPointNames {
		if strings.ToUpper(name) == norm {
			return InjectionPoint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown injection point %q", s)
}

// pointForMarker maps a trimmed template line to its injection point.
func pointForMarker(line string) (InjectionPoint, bool) {
	if !strings.HasPrefix(line, MarkerPrefix) {
		return 0, false
	}
	for i := range injectionPointNames {
		if line == InjectionPoint(i).Marker() {
			return InjectionPoint(i), true
		}
	}
	return 0, false
}

// ShaderInjection is a block of shader code a feature contributes at one
// injection point. Lower priorities are emitted first.
type ShaderInjection struct {
	Point    InjectionPoint
	Code     string
	Priority int

	// Origin is the name of the contributing feature. The registry fills it
	// in when collecting injections.
	Origin string
}

func NewInjection(point InjectionPoint, code string) ShaderInjection {
	return ShaderInjection{Point: point, Code: code}
}

func WithPriority(point InjectionPoint, code string, priority int) ShaderInjection {
	return ShaderInjection{Point: point, Code: code, Priority: priority}
}

func (i ShaderInjection) String() string {
	return fmt.Sprintf("%s@%s(%d)", i.Origin, i.Point, i.Priority)
}
