package models

import (
	"fmt"
	"time"
)

// Milliseconds converts d to fractional milliseconds
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FormatMillis renders d as milliseconds with two decimals ("12.34")
func FormatMillis(d time.Duration) string {
	return fmt.Sprintf("%.2f", Milliseconds(d))
}

// FormatMegabytes renders a byte count as megabytes with two decimals
func FormatMegabytes(bytes uint64) string {
	return fmt.Sprintf("%.2f", float64(bytes)/1024/1024)
}
