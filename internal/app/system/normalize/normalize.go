// internal/app/system/normalize/normalize.go
package normalize

import "strings"

// Email trims and lower-cases an address. All stored and compared emails go
// through here.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and keeps case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// EmailList normalizes every entry, drops blanks and removes duplicates while
// keeping first-seen order.
func EmailList(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, raw := range list {
		e := Email(raw)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Without returns list minus every entry in drop.
func Without(list []string, drop ...string) []string {
	if len(drop) == 0 {
		return list
	}
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if _, ok := skip[e]; !ok {
			out = append(out, e)
		}
	}
	return out
}
