// Package analyzer derives word statistics, entities and structural
// summaries from text and document trees.
package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[A-Za-z0-9.-]+(?::\d+)?(?:/[^\s<>"']*)?`)
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,3}[\s.-]?)?(?:\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}`)

	sentenceEnd = regexp.MustCompile(`[.!?]+`)
)

// trailing punctuation that ends a sentence rather than a URL
const urlTrailer = ".,;:!?)]}"

// WordCount is one entry of a frequency ranking
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Entities groups pattern matches by kind, each in first-occurrence order
type Entities struct {
	Emails []string `json:"emails"`
	URLs   []string `json:"urls"`
	Phones []string `json:"phones"`
}

// TextReport summarizes a block of text
type TextReport struct {
	Words         int         `json:"words"`
	UniqueWords   int         `json:"unique_words"`
	Sentences     int         `json:"sentences"`
	AvgWordLength float64     `json:"avg_word_length"`
	TopWords      []WordCount `json:"top_words"`
	Entities      Entities    `json:"entities"`
}

// DefaultTopWords is the ranking length used by AnalyzeText
const DefaultTopWords = 10

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// CountWords folds case and counts tokens separated by anything that is not a
// letter or digit
func CountWords(text string) map[string]int {
	fold := cases.Fold()
	counts := make(map[string]int)
	for _, w := range splitWords(text) {
		counts[fold.String(w)]++
	}
	return counts
}

// TopWords ranks counts by frequency, ties broken alphabetically. n <= 0
// returns every word.
func TopWords(counts map[string]int, n int) []WordCount {
	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ExtractEntities scans text for e-mail addresses, URLs and phone-like digit
// groups. Duplicates are kept.
func ExtractEntities(text string) Entities {
	var e Entities
	e.Emails = emailPattern.FindAllString(text, -1)
	for _, u := range urlPattern.FindAllString(text, -1) {
		e.URLs = append(e.URLs, strings.TrimRight(u, urlTrailer))
	}
	for _, p := range phonePattern.FindAllString(text, -1) {
		e.Phones = append(e.Phones, strings.TrimSpace(p))
	}
	return e
}

// AnalyzeText computes word, sentence and entity statistics for text
func AnalyzeText(text string) TextReport {
	words := splitWords(text)
	counts := CountWords(text)

	r := TextReport{
		Words:       len(words),
		UniqueWords: len(counts),
		TopWords:    TopWords(counts, DefaultTopWords),
		Entities:    ExtractEntities(text),
	}

	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += utf8.RuneCountInString(w)
		}
		r.AvgWordLength = float64(total) / float64(len(words))
	}

	for _, s := range sentenceEnd.Split(text, -1) {
		if len(splitWords(s)) > 0 {
			r.Sentences++
		}
	}
	return r
}
