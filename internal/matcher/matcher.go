// Package matcher resolves free-text column labels from expense workbooks to
// known plots.
package matcher

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shamba-dev/shamba/internal/model"
)

// MinScore is the token overlap a fuzzy candidate needs to be accepted.
const MinScore = 2

var separators = regexp.MustCompile(`[\s\p{Zs},'-]+`)

// Tokenize lower-cases s, splits it on whitespace, commas, apostrophes and
// hyphens, and drops tokens of two characters or fewer.
func Tokenize(s string) []string {
	parts := separators.Split(strings.ToLower(s), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) > 2 {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Score counts the label tokens that contain, or are contained in, some name token.
func Score(labelTokens, nameTokens []string) int {
	score := 0
	for _, lt := range labelTokens {
		for _, nt := range nameTokens {
			if strings.Contains(nt, lt) || strings.Contains(lt, nt) {
				score++
				break
			}
		}
	}
	return score
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Match returns the plot a label refers to. An exact, case-insensitive,
// trimmed name match wins; otherwise the plot with the highest token overlap
// of at least MinScore. Ties go to the earliest plot in the list.
func Match(label string, plots []model.Plot) (model.Plot, bool) {
	return New(plots).Match(label)
}

// Matcher matches labels against a fixed plot list, tokenizing each plot name once.
type Matcher struct {
	plots  []model.Plot
	names  []string
	tokens [][]string
}

// New prepares a Matcher for plots. The list order decides ties.
func New(plots []model.Plot) *Matcher {
	m := &Matcher{
		plots:  plots,
		names:  make([]string, len(plots)),
		tokens: make([][]string, len(plots)),
	}
	for i, p := range plots {
		m.names[i] = normalize(p.Name)
		m.tokens[i] = Tokenize(p.Name)
	}
	return m
}

// Match resolves label. See the package-level Match.
func (m *Matcher) Match(label string) (model.Plot, bool) {
	want := normalize(label)
	for i, name := range m.names {
		if name == want {
			return m.plots[i], true
		}
	}

	labelTokens := Tokenize(label)
	best, bestScore := -1, 0
	for i, nameTokens := range m.tokens {
		score := Score(labelTokens, nameTokens)
		if score > bestScore && score >= MinScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return model.Plot{}, false
	}
	return m.plots[best], true
}
