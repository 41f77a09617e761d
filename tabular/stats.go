package tabular

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// The statistics follow the sample (n-1) conventions used by spreadsheet
// and dataframe tools. Each returns false when there is too little data.

func sum(xs []float64) float64 { return floats.Sum(xs) }

func product(xs []float64) float64 { return floats.Prod(xs) }

func mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return stat.Mean(xs, nil), true
}

func variance(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	return stat.Variance(xs, nil), true
}

func stddev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	return stat.StdDev(xs, nil), true
}

func stderr(xs []float64) (float64, bool) {
	s, ok := stddev(xs)
	if !ok {
		return 0, false
	}
	return stat.StdErr(s, float64(len(xs))), true
}

// meanAbsDev is the mean absolute deviation around the mean. gonum has no
// such reduction.
func meanAbsDev(xs []float64) (float64, bool) {
	m, ok := mean(xs)
	if !ok {
		return 0, false
	}
	var d float64
	for _, x := range xs {
		d += math.Abs(x - m)
	}
	return d / float64(len(xs)), true
}

// quantile interpolates linearly between closest ranks, position
// q*(n-1). stat.Quantile offers only the empirical and LinInterp CDF
// estimates, which give other values for the same q.
func quantile(xs []float64, q float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	s := slices.Clone(xs)
	slices.Sort(s)
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo)), true
}

// mode returns the smallest of the most frequent values. stat.Mode picks
// an arbitrary value on ties, so only its count is used.
func mode(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	_, top := stat.Mode(xs, nil)
	s := slices.Clone(xs)
	slices.Sort(s)
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] == s[i] {
			j++
		}
		if float64(j-i) == top {
			return s[i], true
		}
		i = j
	}
	return s[0], true
}

// skewness is the adjusted Fisher-Pearson coefficient. A constant column
// has zero skew.
func skewness(xs []float64) (float64, bool) {
	if len(xs) < 3 {
		return 0, false
	}
	if floats.Min(xs) == floats.Max(xs) {
		return 0, true
	}
	return stat.Skew(xs, nil), true
}

// kurtosis is the bias-corrected excess kurtosis.
func kurtosis(xs []float64) (float64, bool) {
	if len(xs) < 4 {
		return 0, false
	}
	if floats.Min(xs) == floats.Max(xs) {
		return 0, true
	}
	return stat.ExKurtosis(xs, nil), true
}
