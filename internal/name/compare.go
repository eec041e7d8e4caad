package name

// Compare orders a and b the way the HFS+ catalog B-tree orders names
// (§4.7): decompose both (and fold case, if caseFold is set), then
// compare codepoint by codepoint. It returns -1, 0, or +1, following the
// bytes.Compare / strings.Compare convention.
//
// A shorter string that is a prefix of a longer one after normalization
// sorts first, matching libfshfs_name.c's comparison loop.
func Compare(a, b string, caseFold bool) int {
	ra := []rune(normalize(a, caseFold))
	rb := []rune(normalize(b, caseFold))

	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			if ra[i] < rb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ra) < len(rb):
		return -1
	case len(ra) > len(rb):
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b compare equal under Compare.
func Equal(a, b string, caseFold bool) bool {
	return Compare(a, b, caseFold) == 0
}
