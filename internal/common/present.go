package common

import "strings"

// IsPresent is the single definition of "this value carries information".
// It replaces the ad hoc null/'null'/empty checks that otherwise multiply
// around optional extraction fields.
func IsPresent(s string) bool {
	t := strings.TrimSpace(s)
	return t != "" && !strings.EqualFold(t, "null") && !strings.EqualFold(t, "undefined")
}

// FirstPresent returns the first present value, or "".
func FirstPresent(values ...string) string {
	for _, v := range values {
		if IsPresent(v) {
			return v
		}
	}
	return ""
}
