package matcher

import (
	"math"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	unbaseScale  = 0.95
	partialScale = 0.9
	// applied instead of partialScale when one string is over 8x longer
	longScale = 0.6
)

// Ratio is the plain similarity of two strings on a 0..100 scale.
func Ratio(a, b string) int {
	return ratio(Normalize(a), Normalize(b))
}

// PartialRatio scores the best alignment of the shorter string inside the
// longer one.
func PartialRatio(a, b string) int {
	return partialRatio(Normalize(a), Normalize(b))
}

// TokenSortRatio compares both strings after sorting their words.
func TokenSortRatio(a, b string) int {
	return tokenSortRatio(Normalize(a), Normalize(b), ratio)
}

// TokenSetRatio compares the shared words of both strings against each
// side's leftovers.
func TokenSetRatio(a, b string) int {
	return tokenSetRatio(Normalize(a), Normalize(b), ratio)
}

// WRatio picks the best of the ratio family, weighting partial and token
// based scores down depending on how different the lengths are.
func WRatio(a, b string) int {
	p1, p2 := Normalize(a), Normalize(b)
	if p1 == "" || p2 == "" {
		return 0
	}

	base := float64(ratio(p1, p2))

	l1, l2 := len([]rune(p1)), len([]rune(p2))
	lenRatio := float64(max(l1, l2)) / float64(min(l1, l2))

	if lenRatio < 1.5 {
		tsor := float64(tokenSortRatio(p1, p2, ratio)) * unbaseScale
		tset := float64(tokenSetRatio(p1, p2, ratio)) * unbaseScale
		return round(max(base, tsor, tset))
	}

	scale := partialScale
	if lenRatio > 8 {
		scale = longScale
	}
	partial := float64(partialRatio(p1, p2)) * scale
	ptsor := float64(tokenSortRatio(p1, p2, partialRatio)) * unbaseScale * scale
	ptset := float64(tokenSetRatio(p1, p2, partialRatio)) * unbaseScale * scale
	return round(max(base, partial, ptsor, ptset))
}

func ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return percent(difflib.NewMatcher(chars(a), chars(b)).Ratio())
}

func partialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := chars(a), chars(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0.0
	for _, block := range difflib.NewMatcher(shorter, longer).GetMatchingBlocks() {
		start := max(block.B-block.A, 0)
		end := min(start+len(shorter), len(longer))
		r := difflib.NewMatcher(shorter, longer[start:end]).Ratio()
		if r > 0.995 {
			return 100
		}
		best = max(best, r)
	}
	return percent(best)
}

func tokenSortRatio(a, b string, score func(string, string) int) int {
	return score(sortedTokens(a), sortedTokens(b))
}

func tokenSetRatio(a, b string, score func(string, string) int) int {
	t1, t2 := tokenSet(a), tokenSet(b)

	var inter, diff1, diff2 []string
	for t := range t1 {
		if t2[t] {
			inter = append(inter, t)
		} else {
			diff1 = append(diff1, t)
		}
	}
	for t := range t2 {
		if !t1[t] {
			diff2 = append(diff2, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(diff1)
	sort.Strings(diff2)

	sect := strings.Join(inter, " ")
	combined1 := strings.TrimSpace(sect + " " + strings.Join(diff1, " "))
	combined2 := strings.TrimSpace(sect + " " + strings.Join(diff2, " "))

	return max(
		score(sect, combined1),
		score(sect, combined2),
		score(combined1, combined2),
	)
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

func percent(r float64) int {
	return round(100 * r)
}

func round(f float64) int {
	return int(math.RoundToEven(f))
}
