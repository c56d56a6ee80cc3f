package utils

import "strings"

// Modifier and portion words that carry no identity for matching
// ("grilled chicken sandwich, large" should match "chicken sandwich").
var stopWords = map[string]struct{}{
	"small": {}, "medium": {}, "large": {}, "extra": {},
	"grilled": {}, "fried": {}, "baked": {}, "roasted": {}, "steamed": {},
	"fresh": {}, "organic": {}, "homemade": {}, "classic": {},
	"a": {}, "an": {}, "the": {}, "of": {}, "with": {}, "and": {},
	"plate": {}, "bowl": {}, "cup": {}, "slice": {}, "piece": {},
	"serving": {}, "portion": {}, "half": {}, "whole": {},
}

// NormalizeFoodName case-folds a dish name and strips portion/modifier words
// so "Large Grilled Hamburger" and "hamburger" normalize the same.
func NormalizeFoodName(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,()")
		if f == "" {
			continue
		}
		if _, skip := stopWords[f]; skip {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// NameSimilarity returns a [0,1] similarity between two normalized names,
// 1 - levenshtein/maxlen. 1.0 means identical.
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	d := levenshtein(a, b)
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	return 1 - float64(d)/float64(max)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
