package repo

import (
	"strconv"
	"strings"
)

// CompareVersions orders dotted version strings: each segment compares
// numerically when both sides are numeric, lexicographically otherwise,
// and a longer version wins when the shared segments tie ("1.2.1" >
// "1.2"). No range semantics, just ordering for default selection.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}

	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])

		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}

			continue
		}

		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}

	return 0
}

// HasVersionPrefix reports whether version starts with prefix. Used
// only to suggest near-matches in diagnostics, never to select a
// version.
func HasVersionPrefix(version, prefix string) bool {
	return strings.HasPrefix(version, prefix)
}
