package viewmodel

import (
	"strings"

	"github.com/eringen/spacetravelling/content"
)

// DefaultWordsPerMinute is the assumed reading speed.
const DefaultWordsPerMinute = 200

// CountWords returns the number of whitespace-separated words in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// WordCount sums heading and body words over every section.
func WordCount(sections []content.Section) int {
	total := 0
	for _, sec := range sections {
		total += CountWords(sec.Heading)
		for _, b := range sec.Body {
			total += CountWords(b.Text)
		}
	}
	return total
}

// ReadingTime returns the estimated minutes to read sections at
// DefaultWordsPerMinute, rounded up. Empty content reads in 0 minutes.
func ReadingTime(sections []content.Section) int {
	return minutes(WordCount(sections), DefaultWordsPerMinute)
}

func minutes(words, wpm int) int {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}
	return (words + wpm - 1) / wpm
}
