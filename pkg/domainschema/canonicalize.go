// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package domainschema

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxCanonicalizeDistance bounds how far a value may drift from a
// vocabulary entry and still be considered an unambiguous near match.
const maxCanonicalizeDistance = 2

// Canonicalize maps value to its canonical casing within the named
// vocabulary. An exact case-insensitive match always wins. Failing
// that, it falls back to a bounded Levenshtein distance against every
// entry; it returns the match only when exactly one entry is within
// maxCanonicalizeDistance (an ambiguous near match, e.g. two entries
// equally close, yields "", false rather than guessing).
func (s *Schema) Canonicalize(fieldName, value string) (string, bool) {
	values, ok := s.Vocabularies[fieldName]
	if !ok || value == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range values {
		if strings.ToLower(candidate) == normalized {
			return candidate, true
		}
	}

	best := -1
	bestDist := maxCanonicalizeDistance + 1
	ambiguous := false
	for i, candidate := range values {
		d := levenshtein.ComputeDistance(normalized, strings.ToLower(candidate))
		if d > maxCanonicalizeDistance {
			continue
		}
		switch {
		case d < bestDist:
			best, bestDist, ambiguous = i, d, false
		case d == bestDist:
			ambiguous = true
		}
	}

	if best == -1 || ambiguous {
		return "", false
	}
	return values[best], true
}
