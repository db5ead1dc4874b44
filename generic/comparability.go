package generic

import (
	"time"
)

// =============================================================================
// COMPARABILITY RESOLVER - Which periods make a fair comparison
// =============================================================================

// KeySets are the three period-key windows behind every slice.
//
//	Current:    the sub-periods making up the selection
//	Comparable: prior-year sub-periods whose calendar identity matches a
//	            present current sub-period (fairness by intersection)
//	FullPrior:  the prior year's equivalent window with no fairness filter,
//	            used only as the pace baseline
//
// Current and Comparable are never padded with zeros: a month missing on
// either side drops out of the YoY comparison instead.
type KeySets struct {
	Current    []PeriodKey
	Comparable []PeriodKey
	FullPrior  []PeriodKey

	CurrentYear string
	PriorYear   string
}

// ResolveMonthly compares a month with the same month one year earlier,
// unconditionally. A month is atomic so there is no partial-window issue.
func ResolveMonthly(series RawSeries, key PeriodKey) KeySets {
	year := key.Year()
	prior := PriorYear(year)
	ks := KeySets{
		Current:     []PeriodKey{key},
		CurrentYear: year,
		PriorYear:   prior,
	}
	if prior == "" {
		return ks
	}
	ks.Comparable = []PeriodKey{MonthKey(prior, key.Month())}
	ks.FullPrior = KeysInYear(series, prior)
	return ks
}

// ResolveQuarterly resolves a quarter of year against the same quarter of year-1.
func ResolveQuarterly(series RawSeries, year string, q Quarter) KeySets {
	prior := PriorYear(year)
	ks := KeySets{
		Current:     presentQuarterKeys(series, year, q),
		CurrentYear: year,
		PriorYear:   prior,
	}
	ks.FullPrior = presentQuarterKeys(series, prior, q)
	ks.Comparable = intersectMonths(ks.FullPrior, ks.Current)
	return ks
}

// ResolveYTD resolves the year-to-date window of the two most recent years.
// The current window is bounded by the months the prior year also has; with a
// single year of data it falls back to every month of that year.
func ResolveYTD(series RawSeries) KeySets {
	older, newer := LatestTwoYears(series)
	ks := KeySets{CurrentYear: newer}
	newerKeys := KeysInYear(series, newer)
	if older == newer {
		ks.Current = newerKeys
		return ks
	}
	ks.PriorYear = older
	olderKeys := KeysInYear(series, older)
	ks.Comparable = intersectMonths(olderKeys, newerKeys)
	ks.Current = intersectMonths(newerKeys, olderKeys)
	if len(ks.Current) == 0 {
		ks.Current = newerKeys
	}
	ks.FullPrior = olderKeys
	return ks
}

// ResolveWeekly compares a week with the week closest to exactly 364 days
// earlier, accepted only within ±7 days. FullPrior is that same week.
func ResolveWeekly(weekly RawSeries, key PeriodKey) KeySets {
	ks := KeySets{Current: []PeriodKey{key}, CurrentYear: key.Year()}
	selected, err := ParseWeekKey(string(key))
	if err != nil {
		return ks
	}
	if match, ok := MatchYearAgoWeek(SortedKeys(weekly), selected); ok {
		ks.Comparable = []PeriodKey{match}
		ks.FullPrior = []PeriodKey{match}
		ks.PriorYear = match.Year()
	}
	return ks
}

// MatchYearAgoWeek finds the key closest to selected-364d within the ±7 day
// tolerance. Keys must be sorted; on a tie the earlier week wins.
func MatchYearAgoWeek(sorted []PeriodKey, selected time.Time) (PeriodKey, bool) {
	target := selected.AddDate(0, 0, -YearAgoWeekOffsetDays)
	tolerance := time.Duration(YearAgoWeekToleranceDays) * day

	var best PeriodKey
	bestDiff := time.Duration(-1)
	for _, k := range sorted {
		t, err := ParseWeekKey(string(k))
		if err != nil {
			continue
		}
		diff := t.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			continue
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = k, diff
		}
	}
	return best, bestDiff >= 0
}

// intersectMonths keeps the keys of from whose month-of-year also appears in with.
func intersectMonths(from, with []PeriodKey) []PeriodKey {
	months := make(map[string]bool, len(with))
	for _, k := range with {
		months[k.Month()] = true
	}
	var out []PeriodKey
	for _, k := range from {
		if months[k.Month()] {
			out = append(out, k)
		}
	}
	return out
}
