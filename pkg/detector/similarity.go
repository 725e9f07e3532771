// Package detector pkg/detector/similarity.go scores text similarity for
// content comparison.
package detector

// similarity returns a ratio in [0, 1] of how alike two strings are: twice
// the total length of their common matching blocks over the combined length.
// Equal strings score 1, disjoint strings 0.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	total := len(a) + len(b)
	if total == 0 {
		return 1
	}

	matched := matchingBlocks([]byte(a), []byte(b))

	return 2 * float64(matched) / float64(total)
}

// matchingBlocks sums the lengths of the longest common blocks, recursing on
// the text on either side of each match.
func matchingBlocks(a, b []byte) int {
	aStart, bStart, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}

	matched := size
	matched += matchingBlocks(a[:aStart], b[:bStart])
	matched += matchingBlocks(a[aStart+size:], b[bStart+size:])

	return matched
}

// longestMatch finds the longest common substring of a and b.
func longestMatch(a, b []byte) (aStart, bStart, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// lengths[j] is the length of the common suffix of a[:i+1] and b[:j+1]
	// from the previous row.
	lengths := make([]int, len(b))

	for i := range a {
		prev := 0

		for j := range b {
			cur := lengths[j]

			if a[i] == b[j] {
				lengths[j] = prev + 1
				if lengths[j] > size {
					size = lengths[j]
					aStart = i - size + 1
					bStart = j - size + 1
				}
			} else {
				lengths[j] = 0
			}

			prev = cur
		}
	}

	return aStart, bStart, size
}
