package util

import "strings"

// StripEnv returns a copy of environ without the entries whose key is in strip.
// environ is not modified.
func StripEnv(environ []string, strip map[string]struct{}) []string {
	out := make([]string, 0, len(environ))
	for _, entry := range environ {
		key := entry
		if idx := strings.IndexByte(entry, '='); idx >= 0 {
			key = entry[:idx]
		}
		if _, drop := strip[key]; drop {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// KeySet builds a lookup set from names, skipping blanks.
func KeySet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}
