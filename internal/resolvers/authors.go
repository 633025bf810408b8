// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import "strings"

// formatAuthor renders a name as "Family, Given". When only a full name is
// known it is split on the last space; names already containing a comma
// are taken as written.
func formatAuthor(family, given, full string) string {
	family = strings.TrimSpace(family)
	given = strings.TrimSpace(given)
	if family == "" {
		family, given = splitName(full)
	}
	switch {
	case family == "":
		return ""
	case given == "":
		return family
	default:
		return family + ", " + given
	}
}

// splitName splits a display name into family and given parts.
func splitName(name string) (family, given string) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", ""
	}
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name, ""
	}
	return name[idx+1:], name[:idx]
}
