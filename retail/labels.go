package retail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warp/pos-analytics/generic"
)

// =============================================================================
// METRIC MODE
// =============================================================================

// MetricMode lets the user override the detected primary metric.
type MetricMode string

const (
	MetricAuto    MetricMode = "auto"
	MetricDollars MetricMode = "dollars"
	MetricUnits   MetricMode = "units"
)

// ErrUnknownMetricMode is returned for anything but auto, dollars or units.
var ErrUnknownMetricMode = errors.New("unknown metric mode")

// ParseMetricMode accepts "", auto, dollars and units. Empty means auto.
func ParseMetricMode(s string) (MetricMode, error) {
	switch m := MetricMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MetricAuto, nil
	case MetricAuto, MetricDollars, MetricUnits:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetricMode, s)
}

// Resolve returns the metric to display for series.
func (m MetricMode) Resolve(series generic.RawSeries) generic.Metric {
	switch m {
	case MetricDollars:
		return generic.MetricDollars
	case MetricUnits:
		return generic.MetricUnits
	}
	return generic.DetectPrimaryMetric(series)
}

// =============================================================================
// COLUMN LABELS
// =============================================================================

// ColumnLabels are the table headers that go with a slice.
type ColumnLabels struct {
	Current    string `json:"current"`
	YearAgo    string `json:"yearAgo"`
	PriorYear  string `json:"priorYear"`
	YEP        string `json:"yep"`
	Sequential string `json:"sequential,omitempty"` // empty for ytd
}

// LabelsFor derives the headers from the selection. The current year is the
// selection's year, or the latest year in periods when there is no selection
// (ytd).
func LabelsFor(g generic.Granularity, key string, periods generic.RawSeries) ColumnLabels {
	currentYear := ""
	if g != generic.GranularityYTD && len(key) >= 4 {
		currentYear = key[:4]
	} else if years := generic.Years(periods); len(years) > 0 {
		currentYear = years[len(years)-1]
	}
	priorYear := generic.PriorYear(currentYear)
	shortCur, shortPrior := generic.ShortYear(currentYear), generic.ShortYear(priorYear)

	l := ColumnLabels{
		Current:   "Current",
		YearAgo:   "Year Ago",
		PriorYear: "PY " + shortPrior,
		YEP:       "YEP " + shortCur,
	}
	switch g {
	case generic.GranularityMonthly:
		if key != "" {
			mon := generic.MonthName(generic.PeriodKey(key).Month())
			l.Current, l.YearAgo = mon+" "+shortCur, mon+" "+shortPrior
		}
		l.Sequential = "MoM%"
	case generic.GranularityQuarterly:
		if _, q, err := generic.ParseQuarterKey(key); err == nil {
			l.Current, l.YearAgo = string(q)+" "+shortCur, string(q)+" "+shortPrior
		}
		l.Sequential = "QoQ%"
	case generic.GranularityWeekly:
		l.Current, l.YearAgo = "Current Wk", "Year-Ago Wk"
		l.Sequential = "WoW%"
	case generic.GranularityYTD:
		if currentYear != "" {
			l.Current, l.YearAgo = currentYear+" YTD", priorYear+" YTD"
		}
	}
	return l
}
