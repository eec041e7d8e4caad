package name

// Hash computes the 32-bit additive name hash used to prune B-tree
// candidate keys before a full Compare (§4.7, P4): h = h*31 + codepoint,
// folded over the normalized rune sequence.
//
// Hash is defined over the same normalize(s, caseFold) sequence Compare
// walks, so Compare(a, b, f) == 0 implies Hash(a, f) == Hash(b, f) by
// construction (P4) — there is no separate equality path to keep in
// sync.
func Hash(s string, caseFold bool) uint32 {
	var h uint32
	for _, r := range normalize(s, caseFold) {
		h = h*31 + uint32(r)
	}
	return h
}
