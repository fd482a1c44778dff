package state

// TagMask is a bitset of tag indices. A client's tag-membership and a
// monitor's visible tag-set are both masks; bit i corresponds to the
// configured tag at index i.
type TagMask uint32

// Mask returns the mask with only tag i set.
func Mask(i int) TagMask {
	return TagMask(1) << uint(i)
}

// Has reports whether tag i is in the set.
func (m TagMask) Has(i int) bool {
	return m&Mask(i) != 0
}

// First returns the lowest tag index in the set, or -1 for the empty mask.
func (m TagMask) First() int {
	if m == 0 {
		return -1
	}
	i := 0
	for m&1 == 0 {
		m >>= 1
		i++
	}
	return i
}

// Indices returns every tag index in the set in ascending order.
func (m TagMask) Indices() []int {
	var out []int
	for i := 0; i < 32; i++ {
		if m.Has(i) {
			out = append(out, i)
		}
	}
	return out
}
