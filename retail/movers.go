package retail

import "sort"

// MoversLimit is how many gainers and decliners are kept.
const MoversLimit = 10

// Movers are the products with the largest absolute change against the
// year-ago window.
type Movers struct {
	Gainers   []Row
	Decliners []Row
}

// Movers ranks product rows by change. Without year-ago data both lists are
// empty: a mover needs something to move from.
func (a Analysis) Movers() Movers {
	out := Movers{Gainers: []Row{}, Decliners: []Row{}}
	if !a.Slice.HasComparison() {
		return out
	}
	for _, r := range a.Rows(LevelProduct) {
		switch {
		case r.Change.IsPositive():
			out.Gainers = append(out.Gainers, r)
		case r.Change.IsNegative():
			out.Decliners = append(out.Decliners, r)
		}
	}
	sort.SliceStable(out.Gainers, func(i, j int) bool {
		return out.Gainers[i].Change.GreaterThan(out.Gainers[j].Change)
	})
	sort.SliceStable(out.Decliners, func(i, j int) bool {
		return out.Decliners[i].Change.LessThan(out.Decliners[j].Change)
	})
	if len(out.Gainers) > MoversLimit {
		out.Gainers = out.Gainers[:MoversLimit]
	}
	if len(out.Decliners) > MoversLimit {
		out.Decliners = out.Decliners[:MoversLimit]
	}
	return out
}
