package validate

import (
	"regexp"
	"strings"

	"github.com/loreline/topicsearch/internal/ast"
)

// selectorLike matches free text shaped like a selector: a lowercase
// word, a colon, then anything without whitespace. Quoted text never
// reaches this check.
var selectorLike = regexp.MustCompile(`^[a-z_]+:\S*$`)

// genericFragments are word pieces common enough in selector keys that a
// prefix containing one probably wanted to be a selector, even when it
// resembles no key closely.
var genericFragments = []string{
	"from", "after", "before", "read", "tag", "has",
	"star", "note", "message", "participant", "title", "body", "new",
}

// checkSelectorTypo inspects a free-text token for likely selector
// intent. The token is always kept as literal search text; the warnings
// are advisory only.
//
// A token matching the selector shape whose prefix is within edit
// distance 2 of a known key, or in a substring relation with one, gets a
// "did you mean" suggestion. Failing that, a prefix containing a generic
// fragment gets a plainer warning.
func (r *run) checkSelectorTypo(token string) {
	if !selectorLike.MatchString(token) {
		return
	}
	prefix := token[:strings.Index(token, ":")]
	if ast.KnownKey(prefix) {
		// A recognized key would have parsed as a selector; seeing one
		// here means the token was already handled upstream.
		return
	}

	if suggestion, ok := closestKey(prefix); ok {
		r.warnf("%q looks like a selector - did you mean %q?", token, suggestion)
		return
	}

	for _, fragment := range genericFragments {
		if strings.Contains(prefix, fragment) {
			r.warnf("%q is not a recognized selector; searching for it as text", token)
			return
		}
	}
}

// closestKey finds the known key most likely intended by prefix: any key
// within edit distance 2, or failing that any key in a substring
// relation with the prefix.
func closestKey(prefix string) (string, bool) {
	best := ""
	bestDist := 3
	for _, key := range ast.Keys() {
		if d := levenshtein(prefix, string(key)); d < bestDist {
			best = string(key)
			bestDist = d
		}
	}
	if best != "" {
		return best, true
	}
	for _, key := range ast.Keys() {
		k := string(key)
		if strings.Contains(k, prefix) || strings.Contains(prefix, k) {
			return k, true
		}
	}
	return "", false
}

// levenshtein computes the classic dynamic-programming edit distance
// between a and b, using two rolling rows.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
