package itemindex

// IntersectPositions walks ascending a and b and calls fn for every common
// id with its position in a. It stops early if fn returns false.
func IntersectPositions(a, b []int32, fn func(posA int, tid int32) bool) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			if !fn(i, a[i]) {
				return
			}
			i++
			j++
		}
	}
}
