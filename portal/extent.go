package portal

import (
	"fmt"
	"strconv"
	"strings"
)

// BBox is a west,south,east,north bounding box in degrees.
type BBox struct {
	West, South, East, North float64
}

// ParseBBox reads "west,south,east,north".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox %q: want 4 comma-separated values, got %d", s, len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := BBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}

// Validate checks coordinate ranges and ordering of latitudes.
func (b BBox) Validate() error {
	for _, lon := range []float64{b.West, b.East} {
		if lon < -180 || lon > 180 {
			return fmt.Errorf("bbox longitude %g out of range", lon)
		}
	}
	for _, lat := range []float64{b.South, b.North} {
		if lat < -90 || lat > 90 {
			return fmt.Errorf("bbox latitude %g out of range", lat)
		}
	}
	if b.South > b.North {
		return fmt.Errorf("bbox south %g above north %g", b.South, b.North)
	}
	return nil
}

func (b BBox) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(b.West) + "," + f(b.South) + "," + f(b.East) + "," + f(b.North)
}

// CombineExtentField computes the new value of the shared extent field.
// The field holds "primary;secondary": a bbox written into "X;Y" keeps X,
// a field without ';' is overwritten and an empty field takes the bbox.
func CombineExtentField(current, bbox string) string {
	if current == "" {
		return bbox
	}
	primary, _, found := strings.Cut(current, ";")
	if !found {
		return bbox
	}
	return primary + ";" + bbox
}
