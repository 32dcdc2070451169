package issues

import (
	"fmt"
	"regexp"
	"strconv"
)

// placeholder matches ${PATTERN_GROUP} and ${PATTERN_GROUP_<n>} in name and link templates.
var placeholder = regexp.MustCompile(`\$\{PATTERN_GROUP(?:_([0-9]+))?\}`)

// Pattern is a compiled regular expression used to find issue and label references.
type Pattern struct {
	re *regexp.Regexp
}

// Compile parses expr. An invalid expression is an ErrConfiguration.
func Compile(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid pattern %q: %v", ErrConfiguration, expr, err)
	}
	return &Pattern{re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) String() string {
	return p.re.String()
}

// NumGroups returns the number of capture groups in the pattern.
func (p *Pattern) NumGroups() int {
	return p.re.NumSubexp()
}

// Match is one non-overlapping match. Groups[0] is the whole match; a group
// that did not participate is the empty string.
type Match struct {
	Text   string
	Groups []string
}

// FindAll returns every non-overlapping match in s, left to right.
func (p *Pattern) FindAll(s string) []Match {
	locs := p.re.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, toMatch(s, loc))
	}
	return matches
}

// Find returns the leftmost match in s.
func (p *Pattern) Find(s string) (Match, bool) {
	loc := p.re.FindStringSubmatchIndex(s)
	if loc == nil {
		return Match{}, false
	}
	return toMatch(s, loc), true
}

// MatchString reports whether s contains any match.
func (p *Pattern) MatchString(s string) bool {
	return p.re.MatchString(s)
}

// RemoveAll deletes every match from s.
func (p *Pattern) RemoveAll(s string) string {
	return p.re.ReplaceAllLiteralString(s, "")
}

func toMatch(s string, loc []int) Match {
	groups := make([]string, len(loc)/2)
	for i := range groups {
		start, end := loc[2*i], loc[2*i+1]
		if start >= 0 {
			groups[i] = s[start:end]
		}
	}
	return Match{Text: groups[0], Groups: groups}
}

// Expand substitutes ${PATTERN_GROUP} with the whole match and
// ${PATTERN_GROUP_<n>} with capture group n. Placeholders naming a group the
// pattern does not have are left as written. Substituted text is not rescanned.
func (m Match) Expand(template string) string {
	return placeholder.ReplaceAllStringFunc(template, func(ph string) string {
		sub := placeholder.FindStringSubmatch(ph)
		if sub[1] == "" {
			return m.Text
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil || n >= len(m.Groups) {
			return ph
		}
		return m.Groups[n]
	})
}
