package common

import "strings"

// Filter applies include/exclude substring filters to event bodies before
// delivery. Filtered events are dropped; the batch still commits.
type Filter struct {
	Includes []string
	Excludes []string
}

// Allow reports whether the line passes the include/exclude filters.
func (f *Filter) Allow(line string) bool {
	if len(f.Includes) > 0 {
		ok := false
		for _, inc := range f.Includes {
			if inc == "" || strings.Contains(line, inc) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, exc := range f.Excludes {
		if exc != "" && strings.Contains(line, exc) {
			return false
		}
	}
	return true
}
