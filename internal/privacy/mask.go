// Package privacy masks member identity fields for anonymized reads.
package privacy

import "strings"

// MaskEmail masks the local part of an address, keeping the first and last
// character when it is long enough to stay unambiguous.
func MaskEmail(email string) string {
	user, domain, found := strings.Cut(email, "@")
	if !found {
		return MaskName(email)
	}

	var masked string
	if len(user) <= 2 {
		masked = strings.Repeat("*", len(user))
	} else {
		masked = user[:1] + strings.Repeat("*", len(user)-2) + user[len(user)-1:]
	}

	return masked + "@" + domain
}

func MaskName(name string) string {
	if name == "" {
		return name
	}
	if len(name) <= 2 {
		return strings.Repeat("*", len(name))
	}

	stars := len(name) - 2
	if stars < 1 {
		stars = 1
	}
	return name[:1] + strings.Repeat("*", stars) + name[len(name)-1:]
}
