package capture

import "sort"

// Range bounds the device indices a Session may visit.
type Range struct {
	Min  int
	Max  int
	Wrap bool
}

// Contains reports whether i is within the range.
func (r Range) Contains(i int) bool {
	return i >= r.Min && i <= r.Max
}

// Step moves cur by one index in the direction of delta. When present holds
// any in-range index only those are visited. ok is false when the move is
// blocked (clamped at an end, or nothing else to go to), in which case next
// equals cur.
func (r Range) Step(cur, delta int, present []int) (next int, ok bool) {
	if delta == 0 {
		return cur, false
	}
	candidates := r.filter(present)
	if len(candidates) == 0 {
		return r.stepNumeric(cur, delta)
	}

	if delta > 0 {
		i := sort.SearchInts(candidates, cur+1)
		if i < len(candidates) {
			next = candidates[i]
		} else if r.Wrap {
			next = candidates[0]
		} else {
			return cur, false
		}
	} else {
		i := sort.SearchInts(candidates, cur) - 1
		if i >= 0 {
			next = candidates[i]
		} else if r.Wrap {
			next = candidates[len(candidates)-1]
		} else {
			return cur, false
		}
	}
	return next, next != cur
}

func (r Range) stepNumeric(cur, delta int) (int, bool) {
	next := cur + 1
	if delta < 0 {
		next = cur - 1
	}
	switch {
	case next > r.Max && r.Wrap:
		next = r.Min
	case next < r.Min && r.Wrap:
		next = r.Max
	case !r.Contains(next):
		return cur, false
	}
	return next, next != cur
}

func (r Range) filter(present []int) []int {
	var out []int
	for _, i := range present {
		if r.Contains(i) {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
