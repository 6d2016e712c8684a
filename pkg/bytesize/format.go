// Package bytesize renders byte counts in human-friendly form.
package bytesize

import "fmt"

// 1024-based units, matching what docker itself reports.
var units = []string{"B", "KB", "MB", "GB", "TB"}

// Format renders n as a compact size string: 512B, 10.4MB, 1.5GB.
func Format(n int64) string {
	f := float64(n)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%dB", n)
	}
	return fmt.Sprintf("%.1f%s", f, units[i])
}
