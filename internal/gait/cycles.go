package gait

import "sort"

// SelectCycles chooses the pair of strides to measure. Within maximal runs of
// consecutive valid strides it picks the adjacent pair with the highest
// summed quality; when no run has two members it falls back to the two
// highest-quality valid strides re-ordered chronologically. Fewer than two
// valid strides yields no selection.
func SelectCycles(strides []Stride) (first, second int, ok bool) {
	validCount := 0
	for _, s := range strides {
		if s.Valid {
			validCount++
		}
	}
	if validCount < 2 {
		return 0, 0, false
	}

	// Best adjacent pair within any run of consecutive valid strides.
	bestSum := -1.0
	bestIdx := -1
	for i := 0; i+1 < len(strides); i++ {
		if !strides[i].Valid || !strides[i+1].Valid {
			continue
		}
		sum := strides[i].Quality + strides[i+1].Quality
		if sum > bestSum {
			bestSum = sum
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		return bestIdx, bestIdx + 1, true
	}

	// No adjacent valid pair: take the two globally best by quality.
	type qualIdx struct {
		idx  int
		qual float64
	}
	var valid []qualIdx
	for i, s := range strides {
		if s.Valid {
			valid = append(valid, qualIdx{i, s.Quality})
		}
	}
	sort.SliceStable(valid, func(a, b int) bool { return valid[a].qual > valid[b].qual })
	a, b := valid[0].idx, valid[1].idx
	if a > b {
		a, b = b, a
	}
	return a, b, true
}
