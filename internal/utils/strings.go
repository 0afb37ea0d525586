// Package utils holds small helpers shared by configuration and services.
package utils

import "strings"

// ParseCSV splits a comma-separated string and returns trimmed non-empty
// values, or nil when none remain.
func ParseCSV(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseTickers parses a comma-separated ticker list, upper-casing symbols
// and dropping repeats while keeping first-seen order.
func ParseTickers(s string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, v := range ParseCSV(s) {
		ticker := strings.ToUpper(v)
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		result = append(result, ticker)
	}
	return result
}
