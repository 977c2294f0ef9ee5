// Package search ranks library tracks against a free-text query.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/llehouerou/ripple/internal/track"
)

// minCoverage is the share of a word's trigrams an item must contain.
const minCoverage = 0.4

// Match is one ranked hit.
type Match struct {
	Index int
	Score float64
}

// Matcher performs trigram search over a fixed track list. Every query
// word must match (AND).
type Matcher struct {
	tracks     []track.Track
	trigrams   []map[string]struct{}
	normalized []string
}

// NewMatcher indexes title, artist and folder of each track.
func NewMatcher(tracks []track.Track) *Matcher {
	m := &Matcher{
		tracks:     tracks,
		trigrams:   make([]map[string]struct{}, len(tracks)),
		normalized: make([]string, len(tracks)),
	}
	for i, t := range tracks {
		text := normalize(strings.Join([]string{t.Title, t.Artist, t.Folder}, " "))
		m.normalized[i] = text
		m.trigrams[i] = generateTrigrams(text)
	}
	return m
}

// Search returns matches best first. A blank query matches everything in
// list order.
func (m *Matcher) Search(query string) []Match {
	words := strings.Fields(normalize(query))
	if len(words) == 0 {
		matches := make([]Match, len(m.tracks))
		for i := range m.tracks {
			matches[i] = Match{Index: i}
		}
		return matches
	}

	wordTrigrams := make([]map[string]struct{}, len(words))
	for i, word := range words {
		wordTrigrams[i] = generateTrigrams(word)
	}

	var matches []Match
	for i := range m.tracks {
		if score := m.score(i, words, wordTrigrams); score > 0 {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Tracks is Search resolved to the matched tracks.
func (m *Matcher) Tracks(query string) []track.Track {
	matches := m.Search(query)
	out := make([]track.Track, len(matches))
	for i, match := range matches {
		out[i] = m.tracks[match.Index]
	}
	return out
}

func (m *Matcher) score(idx int, words []string, wordTrigrams []map[string]struct{}) float64 {
	text := m.normalized[idx]
	total := 0.0
	for i, word := range words {
		// too short for trigrams
		if len([]rune(word)) <= 2 {
			if !strings.Contains(text, word) {
				return 0
			}
			total++
			continue
		}
		// coverage rather than Jaccard so short words still hit long titles
		similarity := coverage(wordTrigrams[i], m.trigrams[idx])
		if similarity < minCoverage {
			return 0
		}
		if strings.Contains(text, word) {
			similarity += 0.5
		}
		total += similarity
	}
	return total / float64(len(words))
}

func normalize(s string) string {
	return strings.ToLower(RemoveDiacritics(s))
}

// generateTrigrams pads s so prefixes and suffixes get their own trigrams.
func generateTrigrams(s string) map[string]struct{} {
	if s == "" {
		return nil
	}
	tris := make(map[string]struct{})
	runes := []rune("  " + s + "  ")
	for i := 0; i <= len(runes)-3; i++ {
		tri := string(runes[i : i+3])
		if strings.TrimSpace(tri) != "" {
			tris[tri] = struct{}{}
		}
	}
	return tris
}

// coverage is |query ∩ item| / |query|.
func coverage(query, item map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hit := 0
	for tri := range query {
		if _, ok := item[tri]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(query))
}

// RemoveDiacritics drops combining marks and folds the common precomposed
// Latin accents, so "cafe" finds "café".
func RemoveDiacritics(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if base, ok := latinFold[r]; ok {
			r = base
		}
		b.WriteRune(r)
	}
	return b.String()
}

var latinFold = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a',
	'À': 'A', 'Á': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A', 'Å': 'A',
	'ç': 'c', 'Ç': 'C',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e',
	'È': 'E', 'É': 'E', 'Ê': 'E', 'Ë': 'E',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i',
	'Ì': 'I', 'Í': 'I', 'Î': 'I', 'Ï': 'I',
	'ñ': 'n', 'Ñ': 'N',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o',
	'Ò': 'O', 'Ó': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u',
	'Ù': 'U', 'Ú': 'U', 'Û': 'U', 'Ü': 'U',
	'ý': 'y', 'ÿ': 'y', 'Ý': 'Y',
}
