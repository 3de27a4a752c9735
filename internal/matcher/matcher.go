// Package matcher ranks catalog products and known clients against free
// text typed by the user.
package matcher

import (
	"sort"
	"strings"
)

const (
	DefaultCutoff = 60
	DefaultLimit  = 5
)

// Candidate is anything the matcher can rank by name.
type Candidate interface {
	CandidateID() uint
	CandidateName() string
}

// Result pairs a candidate with its score on a 0..100 scale.
type Result[T Candidate] struct {
	Candidate T   `json:"candidate"`
	Score     int `json:"score"`
}

// Matcher holds the ranking thresholds. The zero value is not useful, use
// New or set both fields.
type Matcher struct {
	Cutoff int
	Limit  int
}

// New returns a matcher with the default cutoff and limit.
func New() Matcher {
	return Matcher{Cutoff: DefaultCutoff, Limit: DefaultLimit}
}

// Match ranks candidates with the default matcher.
func Match[T Candidate](query string, candidates []T) []Result[T] {
	return Rank(New(), query, candidates)
}

// Rank scores every candidate against query and returns those at or above
// m.Cutoff, best first. Candidates with equal scores keep their input
// order and duplicate names are all returned. A blank query matches nothing.
func Rank[T Candidate](m Matcher, query string, candidates []T) []Result[T] {
	results := []Result[T]{}
	if strings.TrimSpace(query) == "" {
		return results
	}

	for _, c := range candidates {
		score := WRatio(query, c.CandidateName())
		if score >= m.Cutoff {
			results = append(results, Result[T]{Candidate: c, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if m.Limit > 0 && len(results) > m.Limit {
		results = results[:m.Limit]
	}
	return results
}
