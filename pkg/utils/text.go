// Package utils provides shared helpers for logging, vector math and display text.
package utils

// Truncate keeps the first maxLen bytes of s and appends "..." when it cuts.
// maxLen <= 0 returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateLeft keeps the last maxLen bytes of s behind a "..." prefix, so long
// image paths keep their file name.
func TruncateLeft(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
