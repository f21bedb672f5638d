package features

import (
	"cmp"
	"slices"
	"strings"
)

// templateMarker is a marker line found in a base template.
type templateMarker struct {
	point   InjectionPoint
	segment int
	line    int
}

// scanMarkers splits the template into newline-terminated segments and locates
// the marker line of every injection point in it.
func scanMarkers(template string) ([]string, []templateMarker, error) {
	segments := strings.SplitAfter(template, "\n")

	var found []templateMarker
	var seen [numInjectionPoints]int
	for i, seg := range segments {
		point, ok := pointForMarker(strings.TrimSpace(seg))
		if !ok {
			continue
		}
		if seen[point] != 0 {
			return nil, nil, &MarkerError{
				Point: point,
				Lines: []int{seen[point], i + 1},
				Err:   ErrDuplicateMarker,
			}
		}
		seen[point] = i + 1
		found = append(found, templateMarker{point: point, segment: i, line: i + 1})
	}
	return segments, found, nil
}

// TemplateMarkers returns the injection points a template exposes, in the
// order their markers appear.
func TemplateMarkers(template string) ([]InjectionPoint, error) {
	_, found, err := scanMarkers(template)
	if err != nil {
		return nil, err
	}
	points := make([]InjectionPoint, len(found))
	for i, m := range found {
		points[i] = m.point
	}
	return points, nil
}

// groupInjections buckets injections by point and orders each bucket by
// priority. Equal priorities keep their input order.
func groupInjections(injections []ShaderInjection) [numInjectionPoints][]ShaderInjection {
	var groups [numInjectionPoints][]ShaderInjection
	for _, inj := range injections {
		if !inj.Point.Valid() {
			continue
		}
		groups[inj.Point] = append(groups[inj.Point], inj)
	}
	for _, g := range groups {
		slices.SortStableFunc(g, func(a, b ShaderInjection) int {
			return cmp.Compare(a.Priority, b.Priority)
		})
	}
	return groups
}

// Compose substitutes every marker line of template with the code of the
// injections targeting that point. The order of injections is the global
// contribution order and breaks priority ties. The result is all or nothing.
func Compose(template string, injections []ShaderInjection) (string, error) {
	segments, markers, err := scanMarkers(template)
	if err != nil {
		return "", err
	}

	for _, inj := range injections {
		if !inj.Point.Valid() {
			return "", &MarkerError{Point: inj.Point, Feature: inj.Origin, Err: ErrMarkerNotFound}
		}
	}

	groups := groupInjections(injections)

	var present [numInjectionPoints]bool
	for _, m := range markers {
		present[m.point] = true
	}
	size := len(template)
	for point, g := range groups {
		if len(g) == 0 {
			continue
		}
		if !present[point] {
			return "", &MarkerError{Point: InjectionPoint(point), Feature: g[0].Origin, Err: ErrMarkerNotFound}
		}
		for _, inj := range g {
			size += len(inj.Code) + 1
		}
	}

	var b strings.Builder
	b.Grow(size)
	next := 0
	for i, seg := range segments {
		if next >= len(markers) || markers[next].segment != i {
			b.WriteString(seg)
			continue
		}
		g := groups[markers[next].point]
		next++
		if len(g) == 0 {
			continue
		}
		sep := lineTerminator(seg)
		if sep == "" {
			sep = "\n"
		}
		for j, inj := range g {
			if j > 0 {
				b.WriteString(sep)
			}
			b.WriteString(trimTerminator(inj.Code))
		}
		b.WriteString(lineTerminator(seg))
	}
	return b.String(), nil
}

func lineTerminator(seg string) string {
	switch {
	case strings.HasSuffix(seg, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(seg, "\n"):
		return "\n"
	default:
		return ""
	}
}

func trimTerminator(code string) string {
	return strings.TrimSuffix(code, lineTerminator(code))
}
