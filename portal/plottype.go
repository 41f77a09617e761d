package portal

import (
	"fmt"
	"strings"
)

// PlotType is a portal plot-type code, the id of its option in the
// service picker.
type PlotType string

const (
	PlotTimeAveragedMap           PlotType = "TmAvMp"
	PlotRecurringAveragesMap      PlotType = "QuCl"
	PlotTimeAveragedOverlayMap    PlotType = "TmAvOvMp"
	PlotAccumulatedMap            PlotType = "AcMp"
	PlotAnimation                 PlotType = "MpAn"
	PlotTimeAveragedDifferenceMap PlotType = "DiTmAvMp"
	PlotCorrelationMap            PlotType = "CoMp"
	PlotAreaAveragedScatter       PlotType = "ArAvSc"
	PlotInteractiveScatter        PlotType = "IaSc"
	PlotStaticScatter             PlotType = "StSc"
	PlotTimeAveragedScatter       PlotType = "TmAvSc"
	PlotAreaAveragedDiffSeries    PlotType = "DiArAvTs"
	PlotAreaAveragedSeries        PlotType = "ArAvTs"
	PlotHovmollerLongitude        PlotType = "HvLt"
	PlotHovmollerLatitude         PlotType = "HvLn"
	PlotRecurringAveragesSeries   PlotType = "InTs"
	PlotHistogram                 PlotType = "HiGm"
	PlotZonalMean                 PlotType = "ZnMn"
	PlotCrossSectionLatitude      PlotType = "CrLt"
	PlotCrossSectionLongitude     PlotType = "CrLn"
	PlotCrossSectionTime          PlotType = "CrTm"
	PlotVerticalProfile           PlotType = "VtPf"
)

var plotTitles = map[PlotType]string{
	PlotTimeAveragedMap:           "Time Averaged Map",
	PlotRecurringAveragesMap:      "Map, Recurring Averages",
	PlotTimeAveragedOverlayMap:    "Time Averaged Overlay Map",
	PlotAccumulatedMap:            "Map, Accumulated",
	PlotAnimation:                 "Animation",
	PlotTimeAveragedDifferenceMap: "Map, Difference of Time Averaged",
	PlotCorrelationMap:            "Map, Correlation",
	PlotAreaAveragedScatter:       "Scatter, Area Averaged (Static)",
	PlotInteractiveScatter:        "Scatter (Interactive)",
	PlotStaticScatter:             "Scatter (Static)",
	PlotTimeAveragedScatter:       "Scatter, Time-Averaged (Interactive)",
	PlotAreaAveragedDiffSeries:    "Time Series, Area-Averaged Differences",
	PlotAreaAveragedSeries:        "Time Series, Area-Averaged",
	PlotHovmollerLongitude:        "Hovmoller, Longitude-Averaged",
	PlotHovmollerLatitude:         "Hovmoller, Latitude-Averaged",
	PlotRecurringAveragesSeries:   "Time Series, Recurring Averages",
	PlotHistogram:                 "Histogram",
	PlotZonalMean:                 "Zonal Mean",
	PlotCrossSectionLatitude:      "Cross Section, Latitude-Pressure",
	PlotCrossSectionLongitude:     "Cross Section, Longitude-Pressure",
	PlotCrossSectionTime:          "Cross Section, Time-Pressure",
	PlotVerticalProfile:           "Vertical Profile",
}

// PlotTypes lists every supported code in picker order.
func PlotTypes() []PlotType {
	return []PlotType{
		PlotTimeAveragedMap, PlotRecurringAveragesMap, PlotTimeAveragedOverlayMap,
		PlotAccumulatedMap, PlotAnimation, PlotTimeAveragedDifferenceMap,
		PlotCorrelationMap, PlotAreaAveragedScatter, PlotInteractiveScatter,
		PlotStaticScatter, PlotTimeAveragedScatter, PlotAreaAveragedDiffSeries,
		PlotAreaAveragedSeries, PlotHovmollerLongitude, PlotHovmollerLatitude,
		PlotRecurringAveragesSeries, PlotHistogram, PlotZonalMean,
		PlotCrossSectionLatitude, PlotCrossSectionLongitude, PlotCrossSectionTime,
		PlotVerticalProfile,
	}
}

// Title is the label the picker shows for p.
func (p PlotType) Title() string { return plotTitles[p] }

// Valid reports whether p is a supported code.
func (p PlotType) Valid() bool {
	_, ok := plotTitles[p]
	return ok
}

// ParsePlotType accepts either a code ("ArAvTs") or its picker title
// ("Time Series, Area-Averaged"). Codes are case-sensitive; titles are not.
func ParsePlotType(s string) (PlotType, error) {
	s = strings.TrimSpace(s)
	if p := PlotType(s); p.Valid() {
		return p, nil
	}
	for p, title := range plotTitles {
		if strings.EqualFold(title, s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPlotType, s)
}
