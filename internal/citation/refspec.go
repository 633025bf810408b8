// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// refspecPattern matches "@<uuid>:<keyspec>".
var refspecPattern = regexp.MustCompile(`(?i)^@([0-9a-f-]+):(.*)$`)

// EnsureKey returns the citation's key, assigning a new UUID first if it
// has none.
func EnsureKey(c Citation) string {
	if k, ok := c[KeyField]; ok && k != nil {
		if s, ok := k.(string); ok && s != "" {
			return s
		}
		return fmt.Sprint(k)
	}
	key := uuid.NewString()
	c[KeyField] = key
	return key
}

// Refspec names a value inside a citation as "@<key>:<keyspec>", or just
// "@<key>" when keyspec is empty.
func Refspec(c Citation, keyspec string) string {
	spec := "@" + EnsureKey(c)
	if keyspec != "" {
		spec += provenanceDelimiter + Normalise(keyspec)
	}
	return spec
}

// SplitRefspec parses a refspec into its citation key and keyspec.
func SplitRefspec(spec string) (key, keyspec string, err error) {
	m := refspecPattern.FindStringSubmatch(spec)
	if m == nil {
		return "", "", &SyntaxError{Kind: "refspec", Input: spec, Reason: "expected @<uuid>:<keyspec>"}
	}
	return m[1], m[2], nil
}

// Dereference finds the citation a refspec points at among citations and
// picks the referenced value from it.
func Dereference(citations []Citation, spec string) (Sourced, error) {
	key, keyspec, err := SplitRefspec(spec)
	if err != nil {
		return Sourced{}, err
	}
	for _, c := range citations {
		if k, ok := c[KeyField].(string); ok && k == key {
			return Pick(c, keyspec)
		}
	}
	return Sourced{}, &KeyError{Path: spec}
}
