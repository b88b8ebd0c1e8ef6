package sources

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Filter selects marker labels by keyword. A label passes when it contains
// any include keyword (or there are none) and no exclude keyword. Matching
// is case insensitive.
type Filter struct {
	include *ahocorasick.Matcher
	exclude *ahocorasick.Matcher
}

func NewFilter(include, exclude []string) *Filter {
	return &Filter{include: matcher(include), exclude: matcher(exclude)}
}

func matcher(words []string) *ahocorasick.Matcher {
	var dict []string
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			dict = append(dict, w)
		}
	}
	if len(dict) == 0 {
		return nil
	}
	return ahocorasick.NewStringMatcher(dict)
}

func (f *Filter) Accept(label string) bool {
	if f == nil {
		return true
	}
	in := []byte(strings.ToLower(label))
	if f.include != nil && len(f.include.MatchThreadSafe(in)) == 0 {
		return false
	}
	return f.exclude == nil || len(f.exclude.MatchThreadSafe(in)) == 0
}
