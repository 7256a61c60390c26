package coverage

import "sort"

// Interval is a half-open [Start, End) range of line positions within a
// hunk's Lines slice. Positions are indices into the hunk body, not file
// line numbers.
type Interval struct {
	Start int
	End   int
}

// empty reports whether the interval covers no positions.
func (iv Interval) empty() bool {
	return iv.Start >= iv.End
}

// Merge normalizes a set of intervals into the minimal sorted form: sorted
// by start, with any two intervals that touch or overlap folded into one.
// The input slice is not modified.
func Merge(intervals []Interval) []Interval {
	in := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.empty() {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}

	sort.Slice(in, func(i, j int) bool { return in[i].Start < in[j].Start })

	merged := []Interval{in[0]}
	for _, iv := range in[1:] {
		last := &merged[len(merged)-1]
		// Adjacent intervals merge too, keeping the list minimal.
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Complement returns the sorted intervals of [0, lineCount) not covered by
// the given merged interval list.
func Complement(covered []Interval, lineCount int) []Interval {
	var gaps []Interval
	pos := 0
	for _, iv := range Merge(covered) {
		if iv.Start >= lineCount {
			break
		}
		if iv.Start > pos {
			gaps = append(gaps, Interval{Start: pos, End: iv.Start})
		}
		if iv.End > pos {
			pos = iv.End
		}
	}
	if pos < lineCount {
		gaps = append(gaps, Interval{Start: pos, End: lineCount})
	}
	return gaps
}

// clamp restricts an interval to [0, lineCount).
func clamp(iv Interval, lineCount int) Interval {
	if iv.Start < 0 {
		iv.Start = 0
	}
	if iv.End > lineCount {
		iv.End = lineCount
	}
	return iv
}
