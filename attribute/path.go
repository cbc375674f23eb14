package attribute

import "strings"

// Path is an ordered, non-empty sequence of key segments used to address a
// value inside an Attribute tree, e.g. "car.engine.rpm".
type Path struct {
	Segments []string
}

// ParsePath splits a dot-separated path string into segments.
func ParsePath(s string) Path {
	return Path{Segments: strings.Split(s, ".")}
}

func (p Path) String() string {
	return strings.Join(p.Segments, ".")
}
