package portal

import (
	"strings"
	"unicode/utf8"
)

// ShapeGroup is a group label from the shape picker.
type ShapeGroup string

const (
	ShapeCountries ShapeGroup = "Countries and Areas"
	ShapeLakes     ShapeGroup = "Lakes and Reservoirs"
	ShapeLandOnly  ShapeGroup = "Land Only file"
	ShapeSeaOnly   ShapeGroup = "Sea Only file"
	ShapeUSStates  ShapeGroup = "US States"
	ShapeWatershed ShapeGroup = "Watersheds"
	ShapeRegions   ShapeGroup = "World_Regions"
)

// ShapeGroups lists every known group.
func ShapeGroups() []ShapeGroup {
	return []ShapeGroup{
		ShapeCountries, ShapeLakes, ShapeLandOnly, ShapeSeaOnly,
		ShapeUSStates, ShapeWatershed, ShapeRegions,
	}
}

// ShapeReference names one shape inside a group. Group is empty when the
// source string matched no known label; Name then holds the whole string.
type ShapeReference struct {
	Group ShapeGroup
	Name  string
}

// ParseShape splits "<group label><sep><name>" by longest label prefix and
// drops the single separator character after the label.
func ParseShape(s string) ShapeReference {
	var best ShapeGroup
	for _, g := range ShapeGroups() {
		if strings.HasPrefix(s, string(g)) && len(g) > len(best) {
			best = g
		}
	}
	if best == "" {
		return ShapeReference{Name: s}
	}
	rest := s[len(best):]
	if rest != "" {
		_, size := utf8.DecodeRuneInString(rest)
		rest = rest[size:]
	}
	return ShapeReference{Group: best, Name: rest}
}

// Resolved reports whether the group label was recognised.
func (r ShapeReference) Resolved() bool { return r.Group != "" }

func (r ShapeReference) String() string {
	if r.Group == "" {
		return r.Name
	}
	return string(r.Group) + " " + r.Name
}
