package pkgmodel

import (
	"strconv"
	"strings"
)

// CompareVersion reports whether a is strictly greater than b.
//
// Versions are compared component by component after splitting on '.'.
// A pair of components that both parse as integers is compared
// numerically; any other pair (including a missing component, which
// counts as the empty string) is compared lexicographically. The first
// differing component decides. The relation is
// strict: CompareVersion(a, a) is always false, and it is never the case
// that both CompareVersion(a, b) and CompareVersion(b, a) hold.
func CompareVersion(a, b string) bool {
	ac := strings.Split(a, ".")
	bc := strings.Split(b, ".")
	n := len(ac)
	if len(bc) > n {
		n = len(bc)
	}
	for i := 0; i < n; i++ {
		var av, bv string
		if i < len(ac) {
			av = ac[i]
		}
		if i < len(bc) {
			bv = bc[i]
		}
		an, aerr := strconv.Atoi(av)
		bn, berr := strconv.Atoi(bv)
		if aerr == nil && berr == nil {
			if an != bn {
				return an > bn
			}
			continue
		}
		if av != bv {
			return av > bv
		}
	}
	return false
}
