// Package search provides fuzzy text search over a business's catalog.
// Scoring is pure: callers supply the candidate items and receive a ranked,
// truncated result list.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tablelink/ordergate/internal/models"
)

// Scoring weights.
const (
	scoreExactPhrase    = 100
	scoreExactToken     = 10
	scoreSubstringToken = 5
	scoreFuzzyToken     = 3
	bonusAllMatched     = 20
	bonusHalfMatched    = 10
)

// DefaultMaxResults caps the ranked result list.
const DefaultMaxResults = 30

// DefaultEditDistance is the Levenshtein threshold for fuzzy token matches.
const DefaultEditDistance = 2

// Result is one scored catalog item.
type Result struct {
	Item          models.CatalogItem
	Score         int
	MatchedTokens int
	EditDistance  int
}

// Service ranks catalog items against free-text queries.
type Service struct {
	maxResults   int
	editDistance int
}

// NewService creates a search service with default limits.
func NewService() *Service {
	return &Service{maxResults: DefaultMaxResults, editDistance: DefaultEditDistance}
}

var (
	bracketRe  = regexp.MustCompile(`[\(\[\{][^\)\]\}]*[\)\]\}]`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// stopWords and size qualifiers dropped during tokenization.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "with": true,
	"small": true, "medium": true, "large": true, "regular": true,
	"sm": true, "md": true, "lg": true, "xl": true,
}

// Normalize lower-cases text, strips bracketed qualifiers, and collapses
// non-alphanumerics to single spaces.
func Normalize(text string) string {
	t := strings.ToLower(text)
	t = bracketRe.ReplaceAllString(t, " ")
	t = nonAlnumRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Tokenize normalizes and splits text, dropping stop-words and size
// qualifiers.
func Tokenize(text string) []string {
	var tokens []string
	for _, tok := range strings.Fields(Normalize(text)) {
		if stopWords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Search scores every candidate against the query and returns results ranked
// by score desc, summed edit distance asc, matched-token count desc, then
// name asc, truncated to the result cap. Candidates with no matched token
// are excluded.
func (s *Service) Search(query string, catalog []models.CatalogItem) []Result {
	queryNorm := Normalize(query)
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var results []Result
	for _, item := range catalog {
		r := scoreItem(item, queryNorm, queryTokens, s.editDistance)
		if r.MatchedTokens == 0 {
			continue
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.EditDistance != b.EditDistance {
			return a.EditDistance < b.EditDistance
		}
		if a.MatchedTokens != b.MatchedTokens {
			return a.MatchedTokens > b.MatchedTokens
		}
		return a.Item.Name < b.Item.Name
	})

	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}
	return results
}

func scoreItem(item models.CatalogItem, queryNorm string, queryTokens []string, maxDist int) Result {
	nameNorm := Normalize(item.Name)
	nameTokens := Tokenize(item.Name)

	r := Result{Item: item}

	if strings.Contains(nameNorm, queryNorm) {
		r.Score += scoreExactPhrase
		r.MatchedTokens = len(queryTokens)
		return r
	}

	for _, qt := range queryTokens {
		best := 0
		bestDist := 0
		for _, nt := range nameTokens {
			switch {
			case qt == nt:
				best = scoreExactToken
				bestDist = 0
			case best < scoreSubstringToken && (strings.Contains(nt, qt) || strings.Contains(qt, nt)):
				best = scoreSubstringToken
				bestDist = 0
			}
			if best >= scoreExactToken {
				break
			}
		}
		if best == 0 {
			if d := Levenshtein(qt, nameNorm); d <= maxDist {
				best = scoreFuzzyToken
				bestDist = d
			}
		}
		if best > 0 {
			r.Score += best
			r.MatchedTokens++
			r.EditDistance += bestDist
		}
	}

	if r.MatchedTokens == len(queryTokens) {
		r.Score += bonusAllMatched
	} else if r.MatchedTokens*2 >= len(queryTokens) {
		r.Score += bonusHalfMatched
	}
	return r
}

// Levenshtein computes the edit distance between two strings.
func Levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}
	prev := make([]int, len(br)+1)
	cur := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		cur[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(br)]
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
