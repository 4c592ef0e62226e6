// SPDX-License-Identifier: MPL-2.0

package maven

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidRange is returned by ParseRange for malformed range syntax.
var ErrInvalidRange = errors.New("invalid version range")

// qualifierRank orders well-known qualifiers. Unknown qualifiers sort after
// all of them, lexically. The empty qualifier is a plain release.
var qualifierRank = map[string]int{ //nolint:gochecknoglobals // read-only lookup table
	"alpha":     1,
	"a":         1,
	"beta":      2,
	"b":         2,
	"milestone": 3,
	"m":         3,
	"rc":        4,
	"cr":        4,
	"snapshot":  5,
	"":          6,
	"ga":        6,
	"final":     6,
	"release":   6,
	"sp":        7,
}

const unknownQualifierRank = 8

type (
	// VersionRange is a union of intervals such as "[1.0,2.0)" or
	// "(,1.0],[1.2,)". A soft requirement like "1.0" is a range that only
	// contains itself.
	VersionRange struct {
		intervals []interval
		soft      string
	}

	interval struct {
		lower, upper         string
		lowerIncl, upperIncl bool
	}

	versionItem struct {
		number    *big.Int
		qualifier string
	}
)

// IsSnapshot reports whether v is a development snapshot.
func IsSnapshot(v string) bool {
	return strings.HasSuffix(strings.ToUpper(v), "-SNAPSHOT")
}

// CompareVersions orders Maven versions, returning -1, 0 or 1. Plain
// MAJOR.MINOR.PATCH versions use semantic-version ordering; everything else
// follows Maven's item-wise rules, where "1.0" equals "1.0.0", qualifiers
// rank alpha < beta < milestone < rc < snapshot < release < sp, and numbers
// compare numerically.
func CompareVersions(a, b string) int {
	if sa, sb := "v"+a, "v"+b; plainSemver(sa) && plainSemver(sb) {
		return semver.Compare(sa, sb)
	}

	ia, ib := parseVersion(a), parseVersion(b)
	for i := range max(len(ia), len(ib)) {
		var x, y versionItem
		if i < len(ia) {
			x = ia[i]
		}
		if i < len(ib) {
			y = ib[i]
		}
		if c := compareItems(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func plainSemver(v string) bool {
	return semver.IsValid(v) && semver.Prerelease(v) == "" && semver.Build(v) == ""
}

// parseVersion splits v at '.', '-' and digit/letter transitions, then drops
// trailing items equal to a zero release.
func parseVersion(v string) []versionItem {
	var items []versionItem
	var cur strings.Builder
	digits := false

	flush := func() {
		tok := cur.String()
		cur.Reset()
		if digits && tok != "" {
			n, _ := new(big.Int).SetString(tok, 10)
			items = append(items, versionItem{number: n})
			return
		}
		items = append(items, versionItem{qualifier: normalizeQualifier(tok)})
	}

	for i, r := range strings.ToLower(strings.TrimSpace(v)) {
		isDigit := r >= '0' && r <= '9'
		switch {
		case r == '.' || r == '-' || r == '_':
			flush()
			digits = false
			continue
		case i > 0 && cur.Len() > 0 && isDigit != digits:
			flush()
		}
		if cur.Len() == 0 {
			digits = isDigit
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		flush()
	}

	for len(items) > 0 && isNullItem(items[len(items)-1]) {
		items = items[:len(items)-1]
	}
	return items
}

func normalizeQualifier(q string) string {
	switch q {
	case "a", "alpha":
		return "alpha"
	case "b", "beta":
		return "beta"
	case "m", "milestone":
		return "milestone"
	case "cr", "rc":
		return "rc"
	case "ga", "final", "release":
		return ""
	}
	return q
}

func isNullItem(it versionItem) bool {
	if it.number != nil {
		return it.number.Sign() == 0
	}
	return it.qualifier == ""
}

// compareItems compares two items. A zero-value item is the implicit
// padding of the shorter version.
func compareItems(x, y versionItem) int {
	switch {
	case x.number != nil && y.number != nil:
		return x.number.Cmp(y.number)
	case x.number != nil:
		// A number beats any qualifier; padding counts as zero.
		if y.qualifier == "" && x.number.Sign() == 0 {
			return 0
		}
		return 1
	case y.number != nil:
		return -compareItems(y, x)
	}

	rx, ry := rank(x.qualifier), rank(y.qualifier)
	if rx != ry {
		if rx < ry {
			return -1
		}
		return 1
	}
	if rx == unknownQualifierRank {
		return strings.Compare(x.qualifier, y.qualifier)
	}
	return 0
}

func rank(q string) int {
	if r, ok := qualifierRank[q]; ok {
		return r
	}
	return unknownQualifierRank
}

// IsRange reports whether spec uses range syntax.
func IsRange(spec string) bool {
	spec = strings.TrimSpace(spec)
	return strings.HasPrefix(spec, "[") || strings.HasPrefix(spec, "(")
}

// ParseRange parses a version requirement.
func ParseRange(spec string) (VersionRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return VersionRange{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}
	if !IsRange(spec) {
		return VersionRange{soft: spec}, nil
	}

	var r VersionRange
	rest := spec
	for rest != "" {
		end := strings.IndexAny(rest, "])")
		if end < 0 || (rest[0] != '[' && rest[0] != '(') {
			return VersionRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, spec)
		}
		iv, err := parseInterval(rest[:end+1])
		if err != nil {
			return VersionRange{}, fmt.Errorf("%w: %q: %w", ErrInvalidRange, spec, err)
		}
		r.intervals = append(r.intervals, iv)
		rest = strings.TrimSpace(rest[end+1:])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ","))
	}
	return r, nil
}

func parseInterval(s string) (interval, error) {
	iv := interval{lowerIncl: s[0] == '[', upperIncl: s[len(s)-1] == ']'}
	body := strings.TrimSpace(s[1 : len(s)-1])

	lower, upper, hasComma := strings.Cut(body, ",")
	if !hasComma {
		if !iv.lowerIncl || !iv.upperIncl || body == "" {
			return interval{}, errors.New("single version must use [v]")
		}
		iv.lower, iv.upper = body, body
		return iv, nil
	}

	iv.lower, iv.upper = strings.TrimSpace(lower), strings.TrimSpace(upper)
	if iv.lower != "" && iv.upper != "" && CompareVersions(iv.lower, iv.upper) > 0 {
		return interval{}, fmt.Errorf("lower bound %s above upper bound %s", iv.lower, iv.upper)
	}
	return iv, nil
}

// IsSoft reports whether the range is a plain version recommendation.
func (r VersionRange) IsSoft() bool { return r.soft != "" }

// Soft returns the recommended version of a soft requirement.
func (r VersionRange) Soft() string { return r.soft }

// Contains reports whether v satisfies the range.
func (r VersionRange) Contains(v string) bool {
	if r.soft != "" {
		return CompareVersions(r.soft, v) == 0
	}
	for _, iv := range r.intervals {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

func (iv interval) contains(v string) bool {
	if iv.lower != "" {
		c := CompareVersions(v, iv.lower)
		if c < 0 || (c == 0 && !iv.lowerIncl) {
			return false
		}
	}
	if iv.upper != "" {
		c := CompareVersions(v, iv.upper)
		if c > 0 || (c == 0 && !iv.upperIncl) {
			return false
		}
	}
	return true
}
