package portal_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/agharvest/portal"
)

func TestPlotTypes(t *testing.T) {
	all := portal.PlotTypes()
	if len(all) != 22 {
		t.Fatalf("len(PlotTypes()) = %d, want 22", len(all))
	}
	seen := map[portal.PlotType]bool{}
	for _, p := range all {
		if seen[p] {
			t.Fatalf("duplicate plot type %s", p)
		}
		seen[p] = true
		if p.Title() == "" {
			t.Errorf("%s has no title", p)
		}
		byCode, err := portal.ParsePlotType(string(p))
		if err != nil || byCode != p {
			t.Errorf("ParsePlotType(%q) = %q, %v", p, byCode, err)
		}
		byTitle, err := portal.ParsePlotType(p.Title())
		if err != nil || byTitle != p {
			t.Errorf("ParsePlotType(%q) = %q, %v", p.Title(), byTitle, err)
		}
	}
}

func TestParsePlotTypeRejects(t *testing.T) {
	for _, in := range []string{"", "arAvTs", "ArAvTsX", "Scatter"} {
		if _, err := portal.ParsePlotType(in); !errors.Is(err, portal.ErrUnsupportedPlotType) {
			t.Errorf("ParsePlotType(%q) error = %v, want ErrUnsupportedPlotType", in, err)
		}
	}
}

func TestParseShapeRoundTrip(t *testing.T) {
	for _, g := range portal.ShapeGroups() {
		t.Run(string(g), func(t *testing.T) {
			ref := portal.ShapeReference{Group: g, Name: "Some Name"}
			got := portal.ParseShape(ref.String())
			if diff := cmp.Diff(ref, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		in   string
		want portal.ShapeReference
	}{
		{"US States/Iowa", portal.ShapeReference{Group: portal.ShapeUSStates, Name: "Iowa"}},
		{"World_Regions_Europe", portal.ShapeReference{Group: portal.ShapeRegions, Name: "Europe"}},
		{"US States", portal.ShapeReference{Group: portal.ShapeUSStates, Name: ""}},
		{"Mars Craters Olympus", portal.ShapeReference{Name: "Mars Craters Olympus"}},
	}
	for _, tt := range tests {
		got := portal.ParseShape(tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseShape(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
	if portal.ParseShape("Mars Craters").Resolved() {
		t.Fatal("unknown group resolved")
	}
}

func TestCombineExtentField(t *testing.T) {
	tests := []struct {
		name, current, want string
	}{
		{"empty", "", "-100,30,-80,45"},
		{"no separator", "1,2,3,4", "-100,30,-80,45"},
		{"keeps primary", "US States: Iowa;1,2,3,4", "US States: Iowa;-100,30,-80,45"},
		{"empty secondary", "shape;", "shape;-100,30,-80,45"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := portal.CombineExtentField(tt.current, "-100,30,-80,45"); got != tt.want {
				t.Fatalf("CombineExtentField(%q) = %q, want %q", tt.current, got, tt.want)
			}
		})
	}
}

func TestParseBBox(t *testing.T) {
	b, err := portal.ParseBBox("-100, 30, -80, 45")
	if err != nil {
		t.Fatalf("ParseBBox: %v", err)
	}
	if got := b.String(); got != "-100,30,-80,45" {
		t.Fatalf("String() = %q", got)
	}
	for _, bad := range []string{"1,2,3", "a,b,c,d", "-200,0,0,0", "0,50,10,40"} {
		if _, err := portal.ParseBBox(bad); err == nil {
			t.Errorf("ParseBBox(%q) succeeded", bad)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    portal.Date
		wantErr error
	}{
		{in: "2020-01-15", want: portal.Date{Year: 2020, Month: time.January, Day: 15}},
		{in: "2020/03/20", want: portal.Date{Year: 2020, Month: time.March, Day: 20}},
		{in: "Mar 20 2020", want: portal.Date{Year: 2020, Month: time.March, Day: 20}},
		{in: "2021-02-29", wantErr: portal.ErrInvalidDay},
		{in: "2020-04-31", wantErr: portal.ErrInvalidDay},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := portal.ParseDate(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseDate = %v, want %v", got, tt.want)
			}
		})
	}
	if _, err := portal.ParseDate("yesterday"); err == nil {
		t.Fatal("ParseDate(yesterday) succeeded")
	}
}

func TestSelectionValidate(t *testing.T) {
	start := portal.Date{Year: 2020, Month: time.January, Day: 15}
	end := portal.Date{Year: 2020, Month: time.March, Day: 20}
	bbox := portal.BBox{West: -100, South: 30, East: -80, North: 45}
	shape := portal.ParseShape("US States Iowa")

	valid := portal.Selection{PlotType: portal.PlotAreaAveragedSeries, Start: start, End: end, BBox: &bbox}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid selection: %v", err)
	}

	both := valid
	both.Shape = &shape
	if err := both.Validate(); err == nil {
		t.Fatal("bbox and shape accepted together")
	}

	reversed := valid
	reversed.Start, reversed.End = end, start
	if err := reversed.Validate(); err == nil {
		t.Fatal("end before start accepted")
	}

	unknown := valid
	unknown.PlotType = "Nope"
	if err := unknown.Validate(); !errors.Is(err, portal.ErrUnsupportedPlotType) {
		t.Fatalf("unknown plot type: %v", err)
	}

	unresolved := portal.ParseShape("Mars Olympus")
	noGroup := valid
	noGroup.BBox, noGroup.Shape = nil, &unresolved
	if err := noGroup.Validate(); !errors.Is(err, portal.ErrUnresolvedShapeGroup) {
		t.Fatalf("unresolved shape: %v", err)
	}

	for _, in := range []string{"US States", "US States/ "} {
		nameless := portal.ParseShape(in)
		noName := valid
		noName.BBox, noName.Shape = nil, &nameless
		if err := noName.Validate(); err == nil {
			t.Fatalf("shape %q without a name accepted", in)
		}
	}

	named := valid
	named.BBox, named.Shape = nil, &shape
	if err := named.Validate(); err != nil {
		t.Fatalf("named shape: %v", err)
	}
}
