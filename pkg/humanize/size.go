package humanize

var units = []string{"B", "KB", "MB", "GB", "TB"}

// Size reduces a byte count to a value under 1024 and its unit.
func Size(n int64) (float64, string) {
	v := float64(n)

	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}

	return v, units[i]
}
