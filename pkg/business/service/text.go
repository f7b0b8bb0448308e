package service

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

type ITextService interface {
	RemoveTags(input string) string
	CollapseSpaces(input string) string
	ReduceToLength(input string, length int) string
	Clean(input string, length int) string
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// TextService cleans free-form catalog text before it is cached.
type TextService struct{}

func NewTextService() *TextService {
	return &TextService{}
}

func (ts *TextService) RemoveTags(input string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(input, " "))
}

func (ts *TextService) CollapseSpaces(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// ReduceToLength cuts input at a word boundary so the result has at most length runes.
// Non-positive length disables the cut.
func (ts *TextService) ReduceToLength(input string, length int) string {
	if length <= 0 || utf8.RuneCountInString(input) <= length {
		return input
	}
	var builder strings.Builder
	total := 0
	for i, word := range strings.Split(input, " ") {
		wordLen := utf8.RuneCountInString(word)
		if i > 0 {
			wordLen++
		}
		if total+wordLen > length {
			break
		}
		if i > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(word)
		total += wordLen
	}
	return builder.String()
}

// Clean strips markup, collapses whitespace and reduces the text to length runes.
func (ts *TextService) Clean(input string, length int) string {
	return ts.ReduceToLength(ts.CollapseSpaces(ts.RemoveTags(input)), length)
}
