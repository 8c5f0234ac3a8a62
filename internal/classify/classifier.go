package classify

import (
	"sort"
	"strings"

	"caregiver-compass/models"
)

// Classifier turns raw query text into a structured signal used to steer
// retrieval and response tone. Classification is a pure function of the
// input text and the static tables: no I/O, no state between calls.
type Classifier struct {
	tables    *Tables
	threshold float64
}

func NewClassifier(tables *Tables, threshold float64) *Classifier {
	if tables == nil {
		tables = DefaultTables()
	}
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Classifier{tables: tables, threshold: threshold}
}

// Classify normalizes the query, detects the urgency flag, and scores it
// against every category keyword set. The best category is reported only if
// its score clears the relevance threshold; otherwise the query is treated
// as general. An empty query classifies as non-emergency with no category.
func (c *Classifier) Classify(text string) models.ClassifiedQuery {
	normalized := c.Normalize(text)
	if normalized == "" {
		return models.ClassifiedQuery{}
	}

	result := models.ClassifiedQuery{
		NormalizedText: normalized,
		IsEmergency:    c.isEmergency(normalized),
		RegionHint:     c.hasRegionHint(normalized),
	}

	category, score := c.bestCategory(normalized)
	if score >= c.threshold {
		result.Category = category
		result.Confidence = score
	}

	return result
}

// Normalize lowercases, collapses whitespace, and rewrites known domain
// misspellings to their canonical form. Rewrites apply only on word
// boundaries: a typo key that is a prefix of its own correction (physio ->
// physiotherapy) must not fire inside the already-correct word.
func (c *Classifier) Normalize(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Join(strings.Fields(normalized), " ")

	// Longer typos first so "bi pap" wins over any shorter overlap.
	typos := make([]string, 0, len(c.tables.Misspellings))
	for typo := range c.tables.Misspellings {
		typos = append(typos, typo)
	}
	sort.Slice(typos, func(i, j int) bool {
		if len(typos[i]) != len(typos[j]) {
			return len(typos[i]) > len(typos[j])
		}
		return typos[i] < typos[j]
	})

	for _, typo := range typos {
		normalized = replaceWord(normalized, typo, c.tables.Misspellings[typo])
	}

	return normalized
}

// replaceWord rewrites occurrences of typo that start and end on word
// boundaries. Words that merely contain the typo are left alone.
func replaceWord(text, typo, canonical string) string {
	var out strings.Builder
	idx := 0
	for {
		i := strings.Index(text[idx:], typo)
		if i < 0 {
			out.WriteString(text[idx:])
			return out.String()
		}
		start := idx + i
		end := start + len(typo)
		leftOK := start == 0 || !isWordChar(rune(text[start-1]))
		rightOK := end == len(text) || !isWordChar(rune(text[end]))
		if leftOK && rightOK {
			out.WriteString(text[idx:start])
			out.WriteString(canonical)
			idx = end
		} else {
			out.WriteString(text[idx : start+1])
			idx = start + 1
		}
	}
}

func (c *Classifier) isEmergency(normalized string) bool {
	for _, kw := range c.tables.EmergencyKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

func (c *Classifier) hasRegionHint(normalized string) bool {
	for _, term := range c.tables.RegionTerms {
		if containsWord(normalized, term) {
			return true
		}
	}
	return false
}

// bestCategory scores each category by its distinct keyword matches and
// returns the winner. Score is matches/(matches+1): one hit scores 0.5,
// additional hits push toward 1.0 without ever reaching it. Ties break
// alphabetically so classification stays deterministic.
func (c *Classifier) bestCategory(normalized string) (string, float64) {
	names := make([]string, 0, len(c.tables.Categories))
	for name := range c.tables.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestScore := 0.0
	for _, name := range names {
		matches := 0
		for _, kw := range c.tables.Categories[name] {
			if strings.Contains(normalized, kw) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		score := float64(matches) / float64(matches+1)
		if score > bestScore {
			best = name
			bestScore = score
		}
	}

	return best, bestScore
}

// containsWord reports whether term appears in text on word boundaries.
// Plain substring matching would let "108" fire inside "1080".
func containsWord(text, term string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		leftOK := start == 0 || !isWordChar(rune(text[start-1]))
		rightOK := end == len(text) || !isWordChar(rune(text[end]))
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
